// Package service defines the per-entity service contracts and the single
// place where an implementation is chosen for them.
//
// Not-found is reported as a nil result (or false for deletes), never as an
// error. Errors mean the call itself failed; remote failures wrap
// domain.ErrConnection.
package service

import (
	"context"
	"fmt"

	"projectdesk/internal/datasource"
	"projectdesk/internal/domain"
	"projectdesk/internal/fixture"
	"projectdesk/internal/remote"
)

type ProjectService interface {
	List(ctx context.Context) ([]domain.Project, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	Search(ctx context.Context, params domain.SearchParams) ([]domain.Project, error)
	CodeSuggestions(ctx context.Context, query string) ([]domain.CodeSuggestion, error)
}

type EmployeeService interface {
	List(ctx context.Context) ([]domain.Employee, error)
	Get(ctx context.Context, id int64) (*domain.Employee, error)
	ByProject(ctx context.Context, projectID int64) ([]domain.Employee, error)
	// Name returns "First Last", or domain.UnknownName for unknown ids.
	Name(ctx context.Context, id int64) (string, error)
}

type TodoService interface {
	List(ctx context.Context) ([]domain.Todo, error)
	ByProject(ctx context.Context, projectID int64) ([]domain.Todo, error)
	Create(ctx context.Context, in domain.NewTodoInput) (*domain.Todo, error)
	Update(ctx context.Context, id int64, u domain.TodoUpdate) (*domain.Todo, error)
	Reassign(ctx context.Context, id int64, in domain.ReassignInput) (*domain.Todo, error)
	ToggleComplete(ctx context.Context, id int64) (*domain.Todo, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type NoteService interface {
	ByProject(ctx context.Context, projectID int64) ([]domain.ProjectNote, error)
	Create(ctx context.Context, projectID int64, content string) (*domain.ProjectNote, error)
	Update(ctx context.Context, projectID, noteID int64, content string) (*domain.ProjectNote, error)
	Delete(ctx context.Context, projectID, noteID int64) (bool, error)
}

var (
	_ ProjectService  = (*fixture.ProjectService)(nil)
	_ EmployeeService = (*fixture.EmployeeService)(nil)
	_ TodoService     = (*fixture.TodoService)(nil)
	_ NoteService     = (*fixture.NoteService)(nil)

	_ ProjectService  = (*remote.ProjectService)(nil)
	_ EmployeeService = (*remote.EmployeeService)(nil)
	_ TodoService     = (*remote.TodoService)(nil)
	_ NoteService     = (*remote.NoteService)(nil)
)

// Provider is the set of services backing one data source.
type Provider struct {
	Mode      datasource.Mode
	Projects  ProjectService
	Employees EmployeeService
	Todos     TodoService
	Notes     NoteService
}

// Deps carries what each implementation needs. Only the part matching the
// requested mode has to be set.
type Deps struct {
	Dataset *fixture.Dataset
	Fixture fixture.Options
	Client  *remote.Client
}

// NewProvider picks the implementations for mode.
func NewProvider(mode datasource.Mode, deps Deps) (*Provider, error) {
	switch mode {
	case datasource.Fixture:
		if deps.Dataset == nil {
			return nil, fmt.Errorf("fixture mode requires a dataset")
		}
		svc := fixture.NewServices(deps.Dataset, deps.Fixture)
		return &Provider{
			Mode:      mode,
			Projects:  svc.Projects,
			Employees: svc.Employees,
			Todos:     svc.Todos,
			Notes:     svc.Notes,
		}, nil
	case datasource.Remote:
		if deps.Client == nil {
			return nil, fmt.Errorf("remote mode requires a client")
		}
		svc := remote.NewServices(deps.Client)
		return &Provider{
			Mode:      mode,
			Projects:  svc.Projects,
			Employees: svc.Employees,
			Todos:     svc.Todos,
			Notes:     svc.Notes,
		}, nil
	default:
		return nil, fmt.Errorf("unknown data source mode %q", mode)
	}
}

// Set holds one provider per mode, built up front, and resolves a request
// override against the configured default.
type Set struct {
	Default   datasource.Mode
	providers map[datasource.Mode]*Provider
}

// NewSet builds the providers for every mode deps can serve. The default mode
// must be among them.
func NewSet(def datasource.Mode, deps Deps) (*Set, error) {
	s := &Set{Default: def, providers: map[datasource.Mode]*Provider{}}
	for _, mode := range []datasource.Mode{datasource.Fixture, datasource.Remote} {
		p, err := NewProvider(mode, deps)
		if err != nil {
			if mode == def {
				return nil, err
			}
			continue
		}
		s.providers[mode] = p
	}
	return s, nil
}

// For returns the provider for the resolved mode. An override naming a mode
// that was not built falls back to the default.
func (s *Set) For(override *datasource.Mode) *Provider {
	mode := datasource.Resolve(s.Default, override)
	if p, ok := s.providers[mode]; ok {
		return p
	}
	return s.providers[s.Default]
}
