package store

import (
	"context"

	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
	"projectdesk/internal/service"
)

type EmployeeState struct {
	Employees []domain.Employee
	Loaded    bool
	Loading   bool
	Error     string
}

// EmployeeStore caches the employee directory for name lookups.
type EmployeeStore struct {
	base
	svc service.EmployeeService

	employees []domain.Employee
	loaded    bool
	loading   bool
	errText   string
}

func NewEmployeeStore(svc service.EmployeeService, opts Options) *EmployeeStore {
	return &EmployeeStore{base: newBase("employees", opts), svc: svc}
}

func (s *EmployeeStore) State() EmployeeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return EmployeeState{
		Employees: listutil.Clone(s.employees, nil),
		Loaded:    s.loaded,
		Loading:   s.loading,
		Error:     s.errText,
	}
}

// Initialize loads the directory once. Later calls are no-ops while the
// directory stays loaded.
func (s *EmployeeStore) Initialize(ctx context.Context) bool {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return true
	}
	s.loading = true
	s.errText = ""
	s.mu.Unlock()

	employees, err := s.svc.List(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.errText = ErrConnectionFailed
		s.mu.Unlock()
		s.warn("employees.list", 0, err)
		s.publish("employees.failed", 0, nil)
		return false
	}
	s.employees = employees
	s.loaded = true
	s.mu.Unlock()
	s.publish("employees.loaded", 0, map[string]any{"count": len(employees)})
	return true
}

func (s *EmployeeStore) ByID(id int64) (domain.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listutil.FindByID(s.employees, id)
}

// Name returns "First Last" for a loaded employee, otherwise
// domain.UnknownName.
func (s *EmployeeStore) Name(id int64) string {
	if e, ok := s.ByID(id); ok {
		return e.FullName()
	}
	return domain.UnknownName
}
