package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
	"projectdesk/internal/service"
)

type ProjectState struct {
	Params         domain.SearchParams
	Results        []domain.Project
	Projects       []domain.Project
	Employees      []domain.Employee
	Current        *domain.Project
	Initialized    bool
	Searching      bool
	LoadingProject bool
	HasSearched    bool
	InitError      string
	SearchError    string
	ProjectError   string
}

// ProjectStore backs the search screen and the project profile.
type ProjectStore struct {
	base
	projects  service.ProjectService
	employees service.EmployeeService

	state ProjectState
}

func NewProjectStore(projects service.ProjectService, employees service.EmployeeService, opts Options) *ProjectStore {
	return &ProjectStore{
		base:      newBase("projects", opts),
		projects:  projects,
		employees: employees,
	}
}

// State returns a snapshot that shares nothing with the store.
func (s *ProjectStore) State() ProjectState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Params = cloneParams(s.state.Params)
	out.Results = listutil.Clone(s.state.Results, domain.Project.Clone)
	out.Projects = listutil.Clone(s.state.Projects, domain.Project.Clone)
	out.Employees = listutil.Clone(s.state.Employees, nil)
	if s.state.Current != nil {
		cur := s.state.Current.Clone()
		out.Current = &cur
	}
	return out
}

// Initialize fetches projects and employees concurrently and marks the store
// initialized only when both succeed.
func (s *ProjectStore) Initialize(ctx context.Context) bool {
	var (
		projects  []domain.Project
		employees []domain.Employee
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = s.projects.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		employees, err = s.employees.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.mu.Lock()
		s.state.InitError = ErrConnectionFailed
		s.mu.Unlock()
		s.warn("projects.initialize", 0, err)
		s.publish("projects.failed", 0, nil)
		return false
	}
	s.mu.Lock()
	s.state.Projects = projects
	s.state.Employees = employees
	s.state.Initialized = true
	s.state.InitError = ""
	s.mu.Unlock()
	s.publish("projects.initialized", 0, map[string]any{"projects": len(projects), "employees": len(employees)})
	return true
}

func (s *ProjectStore) SetSearchParams(params domain.SearchParams) {
	s.mu.Lock()
	s.state.Params = cloneParams(params)
	s.mu.Unlock()
	s.publish("projects.params", 0, nil)
}

// ClearSearch resets params, results, the searched flag and the search error.
func (s *ProjectStore) ClearSearch() {
	s.mu.Lock()
	s.state.Params = domain.SearchParams{}
	s.state.Results = nil
	s.state.HasSearched = false
	s.state.SearchError = ""
	s.mu.Unlock()
	s.publish("projects.cleared", 0, nil)
}

// Search runs the held params. Results are cleared up front so a failed
// search never shows stale matches.
func (s *ProjectStore) Search(ctx context.Context) bool {
	s.mu.Lock()
	params := cloneParams(s.state.Params)
	s.state.Searching = true
	s.state.SearchError = ""
	s.state.HasSearched = true
	s.state.Results = nil
	s.mu.Unlock()
	s.publish("projects.searching", 0, nil)

	results, err := s.projects.Search(ctx, params)

	s.mu.Lock()
	s.state.Searching = false
	if err != nil {
		s.state.SearchError = ErrConnectionFailed
	} else {
		s.state.Results = results
	}
	s.mu.Unlock()
	if err != nil {
		s.warn("projects.search", 0, err)
		s.publish("projects.failed", 0, nil)
		return false
	}
	s.publish("projects.searched", 0, map[string]any{"count": len(results)})
	return true
}

// FetchProject loads one project as the current item.
func (s *ProjectStore) FetchProject(ctx context.Context, id int64) *domain.Project {
	s.mu.Lock()
	s.state.LoadingProject = true
	s.state.ProjectError = ""
	s.mu.Unlock()

	project, err := s.projects.Get(ctx, id)

	s.mu.Lock()
	s.state.LoadingProject = false
	switch {
	case err != nil:
		s.state.ProjectError = ErrLoadProject
	case project == nil:
		s.state.Current = nil
		s.state.ProjectError = ErrProjectNotFound
	default:
		s.state.Current = project
	}
	s.mu.Unlock()

	if err != nil {
		s.warn("projects.get", id, err)
		s.publish("projects.failed", id, nil)
		return nil
	}
	s.publish("projects.current", id, nil)
	if project == nil {
		return nil
	}
	cp := project.Clone()
	return &cp
}

// CodeSuggestions returns autocomplete entries, or none when the lookup fails.
func (s *ProjectStore) CodeSuggestions(ctx context.Context, query string) []domain.CodeSuggestion {
	out, err := s.projects.CodeSuggestions(ctx, query)
	if err != nil {
		s.warn("projects.code_suggestions", 0, err)
		return []domain.CodeSuggestion{}
	}
	return out
}

func (s *ProjectStore) HasResults() bool {
	return s.ResultCount() > 0
}

func (s *ProjectStore) ResultCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Results)
}

func (s *ProjectStore) ProjectByID(id int64) (domain.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := listutil.FindByID(s.state.Projects, id)
	if !ok {
		return domain.Project{}, false
	}
	return p.Clone(), true
}

func (s *ProjectStore) EmployeeByID(id int64) (domain.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listutil.FindByID(s.state.Employees, id)
}

// ProjectEmployees returns the loaded employees assigned to projectID, in
// directory order. Dangling ids are skipped.
func (s *ProjectStore) ProjectEmployees(projectID int64) []domain.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := listutil.FindByID(s.state.Projects, projectID)
	if !ok {
		return []domain.Employee{}
	}
	return listutil.Filter(s.state.Employees, func(e domain.Employee) bool { return p.HasEmployee(e.ID) })
}

func cloneParams(p domain.SearchParams) domain.SearchParams {
	out := p
	out.ProjectCodes = append([]string(nil), p.ProjectCodes...)
	out.Statuses = append([]domain.ProjectStatus(nil), p.Statuses...)
	if p.StartDateFrom != nil {
		from := *p.StartDateFrom
		out.StartDateFrom = &from
	}
	if p.StartDateTo != nil {
		to := *p.StartDateTo
		out.StartDateTo = &to
	}
	return out
}
