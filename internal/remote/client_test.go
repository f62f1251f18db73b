package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdesk/internal/domain"
	"projectdesk/internal/remote"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
	ReqID  string
}

func newBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*remote.Client, func() []recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery,
			Body: string(b), ReqID: r.Header.Get(remote.RequestIDHeader),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := remote.New(srv.URL + "/api/")
	return c, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNotFoundMapsToNil(t *testing.T) {
	c, history := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "nope"})
	})
	svc := remote.NewServices(c)
	ctx := context.Background()

	p, err := svc.Projects.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, p)

	todo, err := svc.Todos.ToggleComplete(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, todo)

	ok, err := svc.Notes.Delete(ctx, 2001, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	name, err := svc.Employees.Name(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownName, name)

	_, err = svc.Projects.List(ctx)
	assert.ErrorIs(t, err, domain.ErrConnection)

	calls := history()
	require.Len(t, calls, 5)
	assert.Equal(t, "/api/projects/1", calls[0].Path)
	assert.Equal(t, http.MethodPatch, calls[1].Method)
	assert.Equal(t, "/api/todos/2/toggle", calls[1].Path)
	assert.Equal(t, "/api/notes/3", calls[2].Path)
	assert.Equal(t, "projectId=2001", calls[2].Query)
	assert.NotEmpty(t, calls[0].ReqID)
	assert.NotEqual(t, calls[0].ReqID, calls[1].ReqID)
}

func TestServerErrorIsConnectionFailure(t *testing.T) {
	c, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := remote.NewServices(c).Todos.Create(context.Background(), domain.NewTodoInput{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnection)
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestTimeoutIsConnectionFailure(t *testing.T) {
	release := make(chan struct{})
	c, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.Timeout = 20 * time.Millisecond
	_, err := remote.NewServices(c).Employees.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestUnreachableIsConnectionFailure(t *testing.T) {
	c := remote.New("http://127.0.0.1:1")
	c.Timeout = time.Second
	_, err := remote.NewServices(c).Notes.ByProject(context.Background(), 2001)
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestRequestBodies(t *testing.T) {
	c, history := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1})
	})
	svc := remote.NewServices(c)
	ctx := context.Background()

	_, err := svc.Todos.Reassign(ctx, 3001, domain.ReassignInput{NewAssigneeID: 1006, ReassignedByID: 1002})
	require.NoError(t, err)
	_, err = svc.Todos.Update(ctx, 3001, domain.TodoUpdate{}.ClearDueDate())
	require.NoError(t, err)
	_, err = svc.Notes.Create(ctx, 2001, "hello")
	require.NoError(t, err)

	calls := history()
	assert.JSONEq(t, `{"newAssigneeId":1006,"reassignedById":1002}`, calls[0].Body)
	assert.JSONEq(t, `{"dueDate":null}`, calls[1].Body)
	assert.Equal(t, "/api/projects/2001/notes", calls[2].Path)
	assert.JSONEq(t, `{"content":"hello"}`, calls[2].Body)
}

func TestSearchQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := remote.SearchQuery(domain.SearchParams{
		ProjectCodes:  []string{"1023", "", "1089"},
		Name:          "api",
		Statuses:      []domain.ProjectStatus{domain.StatusActive, domain.StatusOnHold},
		StartDateFrom: &from,
	})
	assert.Equal(t, []string{"1023", "1089"}, q["projectCodes"])
	assert.Equal(t, []string{"active", "on-hold"}, q["statuses"])
	assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("startDateFrom"))
	assert.Empty(t, q.Get("department"))
	assert.Empty(t, remote.SearchQuery(domain.SearchParams{}).Encode())
}
