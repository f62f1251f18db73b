package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdesk/internal/datasource"
	"projectdesk/internal/domain"
	"projectdesk/internal/fixture"
	"projectdesk/internal/listutil"
	"projectdesk/internal/metrics"
	"projectdesk/internal/remote"
	"projectdesk/internal/server"
	"projectdesk/internal/service"
)

type testServer struct {
	URL    string
	Client remote.Services
	Data   *fixture.Dataset
}

func newTestServer(t *testing.T, def datasource.Mode, upstream *remote.Client) *testServer {
	t.Helper()
	data := fixture.NewDataset(fixture.DefaultSeed())
	data.Now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	set, err := service.NewSet(def, service.Deps{Dataset: data, Client: upstream})
	require.NoError(t, err)
	handler, err := server.New(server.Config{
		Providers: set,
		BasePath:  "/api",
		Metrics:   metrics.NewPrometheus().Handler(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{
		URL:    srv.URL,
		Client: remote.NewServices(remote.New(srv.URL + "/api")),
		Data:   data,
	}
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	resp, body := getJSON(t, ts.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "fixture", body["source"])
	assert.NotEmpty(t, resp.Header.Get(remote.RequestIDHeader))
}

func TestSearchOverHTTP(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	ctx := context.Background()

	got, err := ts.Client.Projects.Search(ctx, domain.SearchParams{Name: "api"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "API Gateway Implementation", got[0].Name)

	got, err = ts.Client.Projects.Search(ctx, domain.SearchParams{ProjectCodes: []string{"1023", "1089"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2001, 2007}, ids(got))

	// The bound is read as a calendar date in its own zone.
	from := time.Date(2024, 1, 1, 2, 0, 0, 0, time.FixedZone("east", 5*3600))
	got, err = ts.Client.Projects.Search(ctx, domain.SearchParams{
		Statuses:      []domain.ProjectStatus{domain.ProjectStatus("completed"), domain.ProjectStatus("on-hold")},
		StartDateFrom: &from,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2002, 2007}, ids(got))

	all, err := ts.Client.Projects.Search(ctx, domain.SearchParams{})
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestSearchRejectsBadDate(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	resp, body := getJSON(t, ts.URL+"/api/projects/search?startDateFrom=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bad_request", envelope["code"])
}

func TestNotFoundEnvelope(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	resp, body := getJSON(t, ts.URL+"/api/projects/9999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not_found", envelope["code"])

	p, err := ts.Client.Projects.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, p)
	e, err := ts.Client.Employees.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestEmployeesOverHTTP(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	ctx := context.Background()
	emps, err := ts.Client.Employees.ByProject(ctx, 2005)
	require.NoError(t, err)
	assert.Equal(t, []int64{1001, 1002, 1009}, ids(emps))

	name, err := ts.Client.Employees.Name(ctx, 1009)
	require.NoError(t, err)
	assert.Equal(t, "Christopher Moore", name)
	name, err = ts.Client.Employees.Name(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownName, name)
}

func TestTodoLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	ctx := context.Background()
	due := "2024-08-01"
	created, err := ts.Client.Todos.Create(ctx, domain.NewTodoInput{
		ProjectID: 2001, Title: "Write release notes", DueDate: &due, AssigneeID: 1002, CreatorID: 1001,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Greater(t, created.ID, int64(4021))
	assert.Equal(t, int64(1002), created.CurrentAssigneeID)
	require.Len(t, created.AssignmentHistory, 1)

	cleared, err := ts.Client.Todos.Update(ctx, created.ID, domain.TodoUpdate{}.ClearDueDate())
	require.NoError(t, err)
	require.NotNil(t, cleared)
	assert.Nil(t, cleared.DueDate)
	assert.Equal(t, "Write release notes", cleared.Title)

	moved, err := ts.Client.Todos.Reassign(ctx, created.ID, domain.ReassignInput{NewAssigneeID: 4242, ReassignedByID: 1001})
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Len(t, moved.AssignmentHistory, 2)
	assert.Equal(t, domain.UnknownName, moved.CurrentAssigneeName)
	assert.True(t, moved.Consistent())

	done, err := ts.Client.Todos.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.True(t, done.Completed)

	byProject, err := ts.Client.Todos.ByProject(ctx, 2001)
	require.NoError(t, err)
	assert.Len(t, byProject, 4)

	ok, err := ts.Client.Todos.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ts.Client.Todos.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := ts.Client.Todos.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNotesScopedByProject(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	ctx := context.Background()
	note, err := ts.Client.Notes.Create(ctx, 2003, "Kickoff moved to Monday")
	require.NoError(t, err)
	require.NotNil(t, note)

	notes, err := ts.Client.Notes.ByProject(ctx, 2003)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	assert.Equal(t, note.ID, notes[0].ID)

	wrong, err := ts.Client.Notes.Update(ctx, 2004, note.ID, "hijacked")
	require.NoError(t, err)
	assert.Nil(t, wrong)

	edited, err := ts.Client.Notes.Update(ctx, 2003, note.ID, "Kickoff moved to Tuesday")
	require.NoError(t, err)
	require.NotNil(t, edited)
	assert.Equal(t, "Kickoff moved to Tuesday", edited.Content)

	ok, err := ts.Client.Notes.Delete(ctx, 2004, note.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = ts.Client.Notes.Delete(ctx, 2003, note.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/notes/4001", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestModeOverride(t *testing.T) {
	dead := remote.New("http://127.0.0.1:1/api")
	dead.Timeout = time.Second
	ts := newTestServer(t, datasource.Remote, dead)

	resp, body := getJSON(t, ts.URL+"/api/projects/2001")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "remote", resp.Header.Get(server.SourceHeader))
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "upstream_unavailable", envelope["code"])

	resp, body = getJSON(t, ts.URL+"/api/projects/2001?mock")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fixture", resp.Header.Get(server.SourceHeader))
	assert.Equal(t, "Website Redesign", body["name"])

	resp, _ = getJSON(t, ts.URL+"/api/projects/2001?mock=false")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, datasource.Fixture, nil)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(raw), "go_goroutines"))
}

func ids[T listutil.Keyed](items []T) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.GetID())
	}
	return out
}
