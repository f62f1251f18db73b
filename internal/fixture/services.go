package fixture

import (
	"context"
	"time"

	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
	"projectdesk/internal/metrics"
	"projectdesk/internal/search"
)

// Services bundles the four fixture services over one dataset.
type Services struct {
	Projects  *ProjectService
	Employees *EmployeeService
	Todos     *TodoService
	Notes     *NoteService
}

func NewServices(d *Dataset, opts Options) Services {
	return Services{
		Projects:  &ProjectService{Data: d, Opts: opts},
		Employees: &EmployeeService{Data: d, Opts: opts},
		Todos:     &TodoService{Data: d, Opts: opts},
		Notes:     &NoteService{Data: d, Opts: opts},
	}
}

type ProjectService struct {
	Data *Dataset
	Opts Options
}

func (s *ProjectService) List(ctx context.Context) (out []domain.Project, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "projects.list", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (out *domain.Project, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "projects.get", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	p, ok := listutil.FindByID(s.Data.projects, id)
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	return &cp, nil
}

func (s *ProjectService) Search(ctx context.Context, params domain.SearchParams) (out []domain.Project, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "projects.search", time.Now(), &err)
	if err := Delay(ctx, s.Opts.SearchLatency); err != nil {
		return nil, err
	}
	return search.Filter(params, s.snapshot()), nil
}

// CodeSuggestions answers from memory without simulated latency.
func (s *ProjectService) CodeSuggestions(ctx context.Context, query string) ([]domain.CodeSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return search.CodeSuggestions(query, s.snapshot()), nil
}

func (s *ProjectService) snapshot() []domain.Project {
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	return listutil.Clone(s.Data.projects, domain.Project.Clone)
}

type EmployeeService struct {
	Data *Dataset
	Opts Options
}

func (s *EmployeeService) List(ctx context.Context) (out []domain.Employee, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "employees.list", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	return listutil.Clone(s.Data.employees, nil), nil
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (out *domain.Employee, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "employees.get", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	e, ok := listutil.FindByID(s.Data.employees, id)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ByProject returns the project's assigned employees in assignment order.
// Dangling ids and unknown projects yield nothing.
func (s *EmployeeService) ByProject(ctx context.Context, projectID int64) (out []domain.Employee, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "employees.by_project", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	out = []domain.Employee{}
	p, ok := listutil.FindByID(s.Data.projects, projectID)
	if !ok {
		return out, nil
	}
	for _, id := range p.AssignedEmployeeIDs {
		if e, ok := listutil.FindByID(s.Data.employees, id); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Name returns "First Last" or domain.UnknownName.
func (s *EmployeeService) Name(ctx context.Context, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	return s.Data.employeeRef(id).Name, nil
}

type TodoService struct {
	Data *Dataset
	Opts Options
}

func (s *TodoService) List(ctx context.Context) (out []domain.Todo, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "todos.list", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	return listutil.Clone(s.Data.todos, domain.Todo.Clone), nil
}

func (s *TodoService) ByProject(ctx context.Context, projectID int64) (out []domain.Todo, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "todos.by_project", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	out = listutil.Filter(s.Data.todos, func(t domain.Todo) bool { return t.ProjectID == projectID })
	return listutil.Clone(out, domain.Todo.Clone), nil
}

// Create resolves the assignee and creator names once and stores the todo.
// Unknown employee ids are recorded under domain.UnknownName.
func (s *TodoService) Create(ctx context.Context, in domain.NewTodoInput) (out *domain.Todo, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "todos.create", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	d := s.Data
	d.mu.Lock()
	defer d.mu.Unlock()
	todo := domain.NewTodo(d.nextID(), d.nextID(), domain.TodoDraft{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Assignee:    d.employeeRef(in.AssigneeID),
		Creator:     d.employeeRef(in.CreatorID),
	}, d.now())
	d.todos = append(d.todos, todo)
	cp := todo.Clone()
	return &cp, nil
}

func (s *TodoService) Update(ctx context.Context, id int64, u domain.TodoUpdate) (*domain.Todo, error) {
	return s.mutate(ctx, "todos.update", id, func(t domain.Todo, d *Dataset) domain.Todo {
		return t.WithUpdate(u, d.now())
	})
}

func (s *TodoService) Reassign(ctx context.Context, id int64, in domain.ReassignInput) (*domain.Todo, error) {
	return s.mutate(ctx, "todos.reassign", id, func(t domain.Todo, d *Dataset) domain.Todo {
		return t.Reassigned(d.nextID(), d.employeeRef(in.NewAssigneeID), d.employeeRef(in.ReassignedByID), d.now())
	})
}

func (s *TodoService) ToggleComplete(ctx context.Context, id int64) (*domain.Todo, error) {
	return s.mutate(ctx, "todos.toggle", id, func(t domain.Todo, d *Dataset) domain.Todo {
		return t.Toggled(d.now())
	})
}

// Delete reports false when no todo has id.
func (s *TodoService) Delete(ctx context.Context, id int64) (ok bool, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "todos.delete", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return false, err
	}
	d := s.Data
	d.mu.Lock()
	defer d.mu.Unlock()
	if !listutil.Contains(d.todos, id) {
		return false, nil
	}
	d.todos = listutil.RemoveByID(d.todos, id)
	return true, nil
}

// mutate applies fn to the stored todo under the dataset lock and stores the
// result. A missing id yields nil.
func (s *TodoService) mutate(ctx context.Context, op string, id int64, fn func(domain.Todo, *Dataset) domain.Todo) (out *domain.Todo, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), op, time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	d := s.Data
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := listutil.FindByID(d.todos, id)
	if !ok {
		return nil, nil
	}
	next := fn(current, d)
	d.todos = listutil.ReplaceByID(d.todos, next)
	cp := next.Clone()
	return &cp, nil
}

type NoteService struct {
	Data *Dataset
	Opts Options
}

// ByProject returns the project's notes newest first. Unknown projects have
// no notes.
func (s *NoteService) ByProject(ctx context.Context, projectID int64) (out []domain.ProjectNote, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "notes.by_project", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	s.Data.mu.Lock()
	defer s.Data.mu.Unlock()
	out = listutil.Clone(s.Data.notes[projectID], nil)
	if out == nil {
		out = []domain.ProjectNote{}
	}
	return out, nil
}

func (s *NoteService) Create(ctx context.Context, projectID int64, content string) (out *domain.ProjectNote, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "notes.create", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	d := s.Data
	d.mu.Lock()
	defer d.mu.Unlock()
	note := domain.NewNote(d.nextID(), projectID, content, d.now())
	group := make([]domain.ProjectNote, 0, len(d.notes[projectID])+1)
	group = append(group, note)
	d.notes[projectID] = append(group, d.notes[projectID]...)
	return &note, nil
}

// Update edits a note only when it belongs to projectID.
func (s *NoteService) Update(ctx context.Context, projectID, noteID int64, content string) (out *domain.ProjectNote, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "notes.update", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return nil, err
	}
	d := s.Data
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := listutil.FindByID(d.notes[projectID], noteID)
	if !ok {
		return nil, nil
	}
	next := current.WithContent(content, d.now())
	d.notes[projectID] = listutil.ReplaceByID(d.notes[projectID], next)
	return &next, nil
}

func (s *NoteService) Delete(ctx context.Context, projectID, noteID int64) (ok bool, err error) {
	defer metrics.Since(ctx, s.Opts.recorder(), "notes.delete", time.Now(), &err)
	if err := Delay(ctx, s.Opts.Latency); err != nil {
		return false, err
	}
	d := s.Data
	d.mu.Lock()
	defer d.mu.Unlock()
	if !listutil.Contains(d.notes[projectID], noteID) {
		return false, nil
	}
	d.notes[projectID] = listutil.RemoveByID(d.notes[projectID], noteID)
	return true, nil
}
