package store

import (
	"context"

	"projectdesk/internal/domain"
	"projectdesk/internal/events"
	"projectdesk/internal/listutil"
	"projectdesk/internal/service"
)

type TodoState struct {
	Todos   []domain.Todo
	Loading bool
	Error   string
}

// TodoStore holds todos across projects. Names come from the shared
// employee directory.
type TodoStore struct {
	base
	svc       service.TodoService
	employees *EmployeeStore

	todos   []domain.Todo
	loading bool
	errText string
}

func NewTodoStore(svc service.TodoService, employees *EmployeeStore, opts Options) *TodoStore {
	return &TodoStore{base: newBase("todos", opts), svc: svc, employees: employees}
}

func (s *TodoStore) State() TodoState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TodoState{
		Todos:   listutil.Clone(s.todos, domain.Todo.Clone),
		Loading: s.loading,
		Error:   s.errText,
	}
}

// Initialize loads the employee directory first, then every todo.
func (s *TodoStore) Initialize(ctx context.Context) bool {
	s.setLoading(true)
	defer s.setLoading(false)
	if !s.employees.Initialize(ctx) {
		s.fail("todos.initialize", 0, nil)
		return false
	}
	todos, err := s.svc.List(ctx)
	if err != nil {
		s.fail("todos.list", 0, err)
		return false
	}
	s.mu.Lock()
	s.todos = todos
	s.errText = ""
	s.mu.Unlock()
	s.publish("todos.loaded", 0, map[string]any{"count": len(todos)})
	return true
}

// LoadProjectTodos replaces the held todos of projectID and keeps the rest.
func (s *TodoStore) LoadProjectTodos(ctx context.Context, projectID int64) bool {
	s.setLoading(true)
	defer s.setLoading(false)
	fetched, err := s.svc.ByProject(ctx, projectID)
	if err != nil {
		s.fail("todos.by_project", projectID, err)
		return false
	}
	s.mu.Lock()
	others := listutil.Filter(s.todos, func(t domain.Todo) bool { return t.ProjectID != projectID })
	s.todos = append(others, fetched...)
	s.errText = ""
	s.mu.Unlock()
	s.publish("todos.loaded", projectID, map[string]any{"project_id": projectID, "count": len(fetched)})
	return true
}

// Add creates a todo and appends it to the held collection.
func (s *TodoStore) Add(ctx context.Context, in domain.NewTodoInput) *domain.Todo {
	todo, err := s.svc.Create(ctx, in)
	if err != nil || todo == nil {
		s.fail("todos.create", 0, err)
		return nil
	}
	s.mu.Lock()
	s.todos = append(s.todos, todo.Clone())
	s.mu.Unlock()
	s.publish("todos.created", todo.ID, map[string]any{"project_id": todo.ProjectID})
	return todo
}

// Update edits title, description or due date. A todo held as completed is
// refused without calling the service.
func (s *TodoStore) Update(ctx context.Context, id int64, u domain.TodoUpdate) bool {
	s.mu.RLock()
	held, ok := listutil.FindByID(s.todos, id)
	s.mu.RUnlock()
	if ok && held.Completed {
		s.log.Debug("refusing update of completed todo")
		return false
	}
	todo, err := s.svc.Update(ctx, id, u)
	return s.replace("todos.update", "todos.updated", id, todo, err)
}

// Reassign hands the todo to a new assignee. Completed todos may be
// reassigned.
func (s *TodoStore) Reassign(ctx context.Context, id int64, in domain.ReassignInput) bool {
	todo, err := s.svc.Reassign(ctx, id, in)
	return s.replace("todos.reassign", "todos.reassigned", id, todo, err)
}

func (s *TodoStore) ToggleComplete(ctx context.Context, id int64) bool {
	todo, err := s.svc.ToggleComplete(ctx, id)
	return s.replace("todos.toggle", "todos.toggled", id, todo, err)
}

// Delete drops the todo from the held collection once the service confirms.
func (s *TodoStore) Delete(ctx context.Context, id int64) bool {
	ok, err := s.svc.Delete(ctx, id)
	if err != nil {
		s.fail("todos.delete", id, err)
		return false
	}
	if !ok {
		return false
	}
	s.mu.Lock()
	s.todos = listutil.RemoveByID(s.todos, id)
	s.mu.Unlock()
	s.publish("todos.deleted", id, nil)
	return true
}

func (s *TodoStore) ProjectTodos(projectID int64) []domain.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := listutil.Filter(s.todos, func(t domain.Todo) bool { return t.ProjectID == projectID })
	return listutil.Clone(out, domain.Todo.Clone)
}

func (s *TodoStore) EmployeeByID(id int64) (domain.Employee, bool) {
	return s.employees.ByID(id)
}

func (s *TodoStore) EmployeeName(id int64) string {
	return s.employees.Name(id)
}

// replace swaps in the service's copy. A nil todo means not found and leaves
// the collection untouched.
func (s *TodoStore) replace(op, evtType string, id int64, todo *domain.Todo, err error) bool {
	if err != nil {
		s.fail(op, id, err)
		return false
	}
	if todo == nil {
		return false
	}
	s.mu.Lock()
	found := listutil.Contains(s.todos, id)
	if found {
		s.todos = listutil.ReplaceByID(s.todos, todo.Clone())
	}
	s.mu.Unlock()
	if !found {
		return false
	}
	s.publish(evtType, id, events.EventPayload{"completed": todo.Completed})
	return true
}

func (s *TodoStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *TodoStore) fail(op string, id int64, err error) {
	s.mu.Lock()
	s.errText = ErrConnectionFailed
	s.mu.Unlock()
	if err != nil {
		s.warn(op, id, err)
	}
	s.publish("todos.failed", id, nil)
}
