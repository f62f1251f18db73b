package store_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projectdesk/internal/domain"
	"projectdesk/internal/events"
	"projectdesk/internal/fixture"
	"projectdesk/internal/service"
	"projectdesk/internal/store"
)

type testEnv struct {
	Ctx       context.Context
	Data      *fixture.Dataset
	Svc       fixture.Services
	Bus       *events.Bus
	Employees *store.EmployeeStore
	Projects  *store.ProjectStore
	Todos     *store.TodoStore
	Notes     *store.NoteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	data := fixture.NewDataset(fixture.DefaultSeed())
	data.Now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	svc := fixture.NewServices(data, fixture.Options{})
	opts := store.Options{Log: zap.NewNop(), Bus: &events.Bus{}}
	employees := store.NewEmployeeStore(svc.Employees, opts)
	return &testEnv{
		Ctx:       context.Background(),
		Data:      data,
		Svc:       svc,
		Bus:       opts.Bus,
		Employees: employees,
		Projects:  store.NewProjectStore(svc.Projects, svc.Employees, opts),
		Todos:     store.NewTodoStore(svc.Todos, employees, opts),
		Notes:     store.NewNoteStore(svc.Notes, opts),
	}
}

var errDown = fmt.Errorf("%w: dial tcp: connection refused", domain.ErrConnection)

// countingTodos counts calls and optionally fails every one of them.
type countingTodos struct {
	service.TodoService
	updates atomic.Int32
	fail    bool
}

func (c *countingTodos) Update(ctx context.Context, id int64, u domain.TodoUpdate) (*domain.Todo, error) {
	c.updates.Add(1)
	if c.fail {
		return nil, errDown
	}
	return c.TodoService.Update(ctx, id, u)
}

func (c *countingTodos) Delete(ctx context.Context, id int64) (bool, error) {
	if c.fail {
		return false, errDown
	}
	return c.TodoService.Delete(ctx, id)
}

type downProjects struct{ service.ProjectService }

func (downProjects) List(context.Context) ([]domain.Project, error) { return nil, errDown }
func (downProjects) Get(context.Context, int64) (*domain.Project, error) {
	return nil, errDown
}
func (downProjects) Search(context.Context, domain.SearchParams) ([]domain.Project, error) {
	return nil, errDown
}
func (downProjects) CodeSuggestions(context.Context, string) ([]domain.CodeSuggestion, error) {
	return nil, errDown
}

func TestProjectStoreInitializeAndGetters(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.Projects.Initialize(env.Ctx))
	st := env.Projects.State()
	assert.True(t, st.Initialized)
	assert.Len(t, st.Projects, 10)
	assert.Len(t, st.Employees, 10)

	p, ok := env.Projects.ProjectByID(2005)
	require.True(t, ok)
	assert.Equal(t, "Mobile App Development", p.Name)
	e, ok := env.Projects.EmployeeByID(1009)
	require.True(t, ok)
	assert.Equal(t, "Christopher Moore", e.FullName())

	emps := env.Projects.ProjectEmployees(2005)
	require.Len(t, emps, 3)
	assert.Equal(t, []int64{1001, 1002, 1009}, []int64{emps[0].ID, emps[1].ID, emps[2].ID})
	assert.Empty(t, env.Projects.ProjectEmployees(42))
}

func TestProjectStoreSearch(t *testing.T) {
	env := newTestEnv(t)
	env.Projects.SetSearchParams(domain.SearchParams{Name: "api"})
	require.True(t, env.Projects.Search(env.Ctx))
	st := env.Projects.State()
	assert.True(t, st.HasSearched)
	assert.False(t, st.Searching)
	require.Len(t, st.Results, 1)
	assert.Equal(t, "API Gateway Implementation", st.Results[0].Name)
	assert.True(t, env.Projects.HasResults())
	assert.Equal(t, 1, env.Projects.ResultCount())

	env.Projects.ClearSearch()
	st = env.Projects.State()
	assert.False(t, st.HasSearched)
	assert.Empty(t, st.Results)
	assert.True(t, st.Params.IsZero())
	assert.False(t, env.Projects.HasResults())
}

func TestProjectStoreSearchFailure(t *testing.T) {
	env := newTestEnv(t)
	projects := store.NewProjectStore(downProjects{}, env.Svc.Employees, store.Options{})
	assert.False(t, projects.Search(env.Ctx))
	st := projects.State()
	assert.Equal(t, store.ErrConnectionFailed, st.SearchError)
	assert.Empty(t, st.Results)
	assert.True(t, st.HasSearched)

	assert.False(t, projects.Initialize(env.Ctx))
	st = projects.State()
	assert.False(t, st.Initialized)
	assert.Empty(t, st.Employees)
	assert.Equal(t, store.ErrConnectionFailed, st.InitError)

	assert.Nil(t, projects.FetchProject(env.Ctx, 2001))
	assert.Equal(t, store.ErrLoadProject, projects.State().ProjectError)
	assert.Empty(t, projects.CodeSuggestions(env.Ctx, "10"))
}

func TestProjectStoreFetchProject(t *testing.T) {
	env := newTestEnv(t)
	p := env.Projects.FetchProject(env.Ctx, 2002)
	require.NotNil(t, p)
	st := env.Projects.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, int64(2002), st.Current.ID)
	assert.Empty(t, st.ProjectError)

	assert.Nil(t, env.Projects.FetchProject(env.Ctx, 9999))
	st = env.Projects.State()
	assert.Nil(t, st.Current)
	assert.Equal(t, store.ErrProjectNotFound, st.ProjectError)
}

func TestTodoStoreGuardRejectsCompletedUpdate(t *testing.T) {
	env := newTestEnv(t)
	spy := &countingTodos{TodoService: env.Svc.Todos}
	todos := store.NewTodoStore(spy, env.Employees, store.Options{})
	require.True(t, todos.Initialize(env.Ctx))

	title := "Renamed"
	// 3001 is completed in the seed.
	assert.False(t, todos.Update(env.Ctx, 3001, domain.TodoUpdate{Title: &title}))
	assert.Equal(t, int32(0), spy.updates.Load())
	held := todos.ProjectTodos(2001)
	assert.Equal(t, "Design homepage mockup", held[0].Title)

	// The service on its own accepts the same edit.
	direct, err := env.Svc.Todos.Update(env.Ctx, 3001, domain.TodoUpdate{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, direct)
	assert.Equal(t, title, direct.Title)

	// Open todos go through.
	assert.True(t, todos.Update(env.Ctx, 3002, domain.TodoUpdate{Title: &title}))
	assert.Equal(t, int32(1), spy.updates.Load())
}

func TestTodoStoreCompletedStaysToggleableAndReassignable(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.Todos.Initialize(env.Ctx))
	assert.True(t, env.Todos.Reassign(env.Ctx, 3001, domain.ReassignInput{NewAssigneeID: 1006, ReassignedByID: 1002}))
	assert.True(t, env.Todos.ToggleComplete(env.Ctx, 3001))

	var got domain.Todo
	for _, todo := range env.Todos.ProjectTodos(2001) {
		if todo.ID == 3001 {
			got = todo
		}
	}
	assert.False(t, got.Completed)
	assert.Len(t, got.AssignmentHistory, 2)
	assert.Equal(t, "Jessica Davis", got.CurrentAssigneeName)
	assert.True(t, got.Consistent())
}

func TestTodoStoreDeleteAbsentIsNoop(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.Todos.Initialize(env.Ctx))
	before := env.Todos.State().Todos
	assert.False(t, env.Todos.Delete(env.Ctx, 424242))
	assert.Equal(t, before, env.Todos.State().Todos)
	assert.Empty(t, env.Todos.State().Error)

	assert.True(t, env.Todos.Delete(env.Ctx, 3003))
	assert.Len(t, env.Todos.State().Todos, len(before)-1)
}

func TestTodoStoreConnectionFailure(t *testing.T) {
	env := newTestEnv(t)
	spy := &countingTodos{TodoService: env.Svc.Todos}
	todos := store.NewTodoStore(spy, env.Employees, store.Options{})
	require.True(t, todos.Initialize(env.Ctx))
	before := todos.State().Todos

	spy.fail = true
	title := "x"
	assert.False(t, todos.Update(env.Ctx, 3002, domain.TodoUpdate{Title: &title}))
	assert.False(t, todos.Delete(env.Ctx, 3002))
	st := todos.State()
	assert.Equal(t, store.ErrConnectionFailed, st.Error)
	assert.Equal(t, before, st.Todos)
}

func TestTodoStoreAddAndLoadProjectTodos(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.Todos.Initialize(env.Ctx))
	todo := env.Todos.Add(env.Ctx, domain.NewTodoInput{ProjectID: 2004, Title: "Model Q3", AssigneeID: 1005, CreatorID: 1005})
	require.NotNil(t, todo)
	assert.Equal(t, "David Jones", todo.CurrentAssigneeName)
	assert.Len(t, env.Todos.ProjectTodos(2004), 1)

	// Another writer adds to project 2001 behind the store's back.
	_, err := env.Svc.Todos.Create(env.Ctx, domain.NewTodoInput{ProjectID: 2001, Title: "External", AssigneeID: 1001, CreatorID: 1002})
	require.NoError(t, err)
	require.True(t, env.Todos.LoadProjectTodos(env.Ctx, 2001))
	assert.Len(t, env.Todos.ProjectTodos(2001), 4)
	assert.Len(t, env.Todos.ProjectTodos(2004), 1)
	assert.Len(t, env.Todos.State().Todos, 12)

	assert.Equal(t, "Amanda Wilson", env.Todos.EmployeeName(1008))
	assert.Equal(t, domain.UnknownName, env.Todos.EmployeeName(1))
}

func TestNoteStoreLifecycle(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.Notes.Load(env.Ctx, 2001))
	assert.Equal(t, 3, env.Notes.NoteCount(2001))

	note := env.Notes.Add(env.Ctx, 2001, "Retro scheduled")
	require.NotNil(t, note)
	notes := env.Notes.ProjectNotes(2001)
	require.Len(t, notes, 4)
	assert.Equal(t, note.ID, notes[0].ID)

	assert.True(t, env.Notes.Update(env.Ctx, 2001, note.ID, "Retro moved"))
	assert.Equal(t, "Retro moved", env.Notes.ProjectNotes(2001)[0].Content)
	assert.False(t, env.Notes.Update(env.Ctx, 2002, note.ID, "cross"))

	before := env.Notes.ProjectNotes(2001)
	assert.False(t, env.Notes.Delete(env.Ctx, 2001, 999999))
	assert.Equal(t, before, env.Notes.ProjectNotes(2001))
	assert.True(t, env.Notes.Delete(env.Ctx, 2001, note.ID))
	assert.Equal(t, 3, env.Notes.NoteCount(2001))

	assert.NotNil(t, env.Notes.ProjectNotes(77))
	assert.Empty(t, env.Notes.ProjectNotes(77))
}

func TestSubscriptionsAreScopedPerStore(t *testing.T) {
	env := newTestEnv(t)
	var todoEvents, noteEvents []string
	unsub := env.Todos.Subscribe(func(e events.Event) { todoEvents = append(todoEvents, e.Type) })
	env.Notes.Subscribe(func(e events.Event) { noteEvents = append(noteEvents, e.Type) })

	require.True(t, env.Todos.Initialize(env.Ctx))
	require.True(t, env.Todos.ToggleComplete(env.Ctx, 3002))
	require.True(t, env.Notes.Load(env.Ctx, 2001))
	unsub()
	require.True(t, env.Todos.Delete(env.Ctx, 3002))

	assert.Equal(t, []string{"todos.loaded", "todos.toggled"}, todoEvents)
	assert.Equal(t, []string{"notes.loaded"}, noteEvents)
}

func TestEmployeeStoreFailure(t *testing.T) {
	emps := store.NewEmployeeStore(failingEmployees{}, store.Options{})
	assert.False(t, emps.Initialize(context.Background()))
	st := emps.State()
	assert.False(t, st.Loaded)
	assert.Equal(t, store.ErrConnectionFailed, st.Error)
	assert.Equal(t, domain.UnknownName, emps.Name(1001))

	todos := store.NewTodoStore(nil, emps, store.Options{})
	assert.False(t, todos.Initialize(context.Background()))
	assert.Equal(t, store.ErrConnectionFailed, todos.State().Error)
}

type failingEmployees struct{ service.EmployeeService }

func (failingEmployees) List(context.Context) ([]domain.Employee, error) {
	return nil, errDown
}
