package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"projectdesk/internal/domain"
	"projectdesk/internal/search"
)

// Services bundles the four remote services over one client.
type Services struct {
	Projects  *ProjectService
	Employees *EmployeeService
	Todos     *TodoService
	Notes     *NoteService
}

func NewServices(c *Client) Services {
	return Services{
		Projects:  &ProjectService{Client: c},
		Employees: &EmployeeService{Client: c},
		Todos:     &TodoService{Client: c},
		Notes:     &NoteService{Client: c},
	}
}

type ProjectService struct {
	Client *Client
}

func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	var resp []domain.Project
	err := s.Client.do(ctx, "projects.list", http.MethodGet, "projects", nil, &resp)
	return resp, err
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*domain.Project, error) {
	var resp domain.Project
	err := s.Client.do(ctx, "projects.get", http.MethodGet, fmt.Sprintf("projects/%d", id), nil, &resp)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ProjectService) Search(ctx context.Context, params domain.SearchParams) ([]domain.Project, error) {
	endpoint := "projects/search"
	if q := SearchQuery(params).Encode(); q != "" {
		endpoint += "?" + q
	}
	var resp []domain.Project
	err := s.Client.do(ctx, "projects.search", http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CodeSuggestions fetches the project list and matches codes locally.
func (s *ProjectService) CodeSuggestions(ctx context.Context, query string) ([]domain.CodeSuggestion, error) {
	if query == "" {
		return []domain.CodeSuggestion{}, nil
	}
	projects, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return search.CodeSuggestions(query, projects), nil
}

// SearchQuery encodes params with repeated keys for the multi-valued fields
// and RFC 3339 date bounds.
func SearchQuery(params domain.SearchParams) url.Values {
	q := url.Values{}
	for _, code := range params.ProjectCodes {
		if code != "" {
			q.Add("projectCodes", code)
		}
	}
	if params.Name != "" {
		q.Set("name", params.Name)
	}
	if params.Department != "" {
		q.Set("department", params.Department)
	}
	for _, status := range params.Statuses {
		if status != "" {
			q.Add("statuses", string(status))
		}
	}
	if params.StartDateFrom != nil {
		q.Set("startDateFrom", params.StartDateFrom.Format(time.RFC3339))
	}
	if params.StartDateTo != nil {
		q.Set("startDateTo", params.StartDateTo.Format(time.RFC3339))
	}
	return q
}

type EmployeeService struct {
	Client *Client
}

func (s *EmployeeService) List(ctx context.Context) ([]domain.Employee, error) {
	var resp []domain.Employee
	err := s.Client.do(ctx, "employees.list", http.MethodGet, "employees", nil, &resp)
	return resp, err
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	var resp domain.Employee
	err := s.Client.do(ctx, "employees.get", http.MethodGet, fmt.Sprintf("employees/%d", id), nil, &resp)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ByProject treats an unknown project as having no employees.
func (s *EmployeeService) ByProject(ctx context.Context, projectID int64) ([]domain.Employee, error) {
	var resp []domain.Employee
	err := s.Client.do(ctx, "employees.by_project", http.MethodGet, fmt.Sprintf("projects/%d/employees", projectID), nil, &resp)
	if IsNotFound(err) {
		return []domain.Employee{}, nil
	}
	return resp, err
}

func (s *EmployeeService) Name(ctx context.Context, id int64) (string, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if e == nil {
		return domain.UnknownName, nil
	}
	return e.FullName(), nil
}

type TodoService struct {
	Client *Client
}

func (s *TodoService) List(ctx context.Context) ([]domain.Todo, error) {
	var resp []domain.Todo
	err := s.Client.do(ctx, "todos.list", http.MethodGet, "todos", nil, &resp)
	return resp, err
}

func (s *TodoService) ByProject(ctx context.Context, projectID int64) ([]domain.Todo, error) {
	var resp []domain.Todo
	err := s.Client.do(ctx, "todos.by_project", http.MethodGet, fmt.Sprintf("projects/%d/todos", projectID), nil, &resp)
	if IsNotFound(err) {
		return []domain.Todo{}, nil
	}
	return resp, err
}

func (s *TodoService) Create(ctx context.Context, in domain.NewTodoInput) (*domain.Todo, error) {
	var resp domain.Todo
	if err := s.Client.do(ctx, "todos.create", http.MethodPost, "todos", in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *TodoService) Update(ctx context.Context, id int64, u domain.TodoUpdate) (*domain.Todo, error) {
	return s.patch(ctx, "todos.update", fmt.Sprintf("todos/%d", id), u)
}

func (s *TodoService) Reassign(ctx context.Context, id int64, in domain.ReassignInput) (*domain.Todo, error) {
	return s.patch(ctx, "todos.reassign", fmt.Sprintf("todos/%d/reassign", id), in)
}

func (s *TodoService) ToggleComplete(ctx context.Context, id int64) (*domain.Todo, error) {
	return s.patch(ctx, "todos.toggle", fmt.Sprintf("todos/%d/toggle", id), struct{}{})
}

func (s *TodoService) Delete(ctx context.Context, id int64) (bool, error) {
	err := s.Client.do(ctx, "todos.delete", http.MethodDelete, fmt.Sprintf("todos/%d", id), nil, nil)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TodoService) patch(ctx context.Context, op, endpoint string, body any) (*domain.Todo, error) {
	var resp domain.Todo
	err := s.Client.do(ctx, op, http.MethodPatch, endpoint, body, &resp)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type NoteService struct {
	Client *Client
}

type noteBody struct {
	Content string `json:"content"`
}

func (s *NoteService) ByProject(ctx context.Context, projectID int64) ([]domain.ProjectNote, error) {
	var resp []domain.ProjectNote
	err := s.Client.do(ctx, "notes.by_project", http.MethodGet, fmt.Sprintf("projects/%d/notes", projectID), nil, &resp)
	if IsNotFound(err) {
		return []domain.ProjectNote{}, nil
	}
	return resp, err
}

func (s *NoteService) Create(ctx context.Context, projectID int64, content string) (*domain.ProjectNote, error) {
	var resp domain.ProjectNote
	err := s.Client.do(ctx, "notes.create", http.MethodPost, fmt.Sprintf("projects/%d/notes", projectID), noteBody{Content: content}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Update sends the owning project as a query parameter so the backend can
// reject cross-project edits.
func (s *NoteService) Update(ctx context.Context, projectID, noteID int64, content string) (*domain.ProjectNote, error) {
	var resp domain.ProjectNote
	err := s.Client.do(ctx, "notes.update", http.MethodPatch, notePath(projectID, noteID), noteBody{Content: content}, &resp)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *NoteService) Delete(ctx context.Context, projectID, noteID int64) (bool, error) {
	err := s.Client.do(ctx, "notes.delete", http.MethodDelete, notePath(projectID, noteID), nil, nil)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func notePath(projectID, noteID int64) string {
	return fmt.Sprintf("notes/%d?projectId=%s", noteID, strconv.FormatInt(projectID, 10))
}
