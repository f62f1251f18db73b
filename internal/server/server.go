// Package server exposes the project, employee, todo and note services over
// the REST contract the remote client speaks.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"projectdesk/internal/datasource"
	"projectdesk/internal/domain"
	"projectdesk/internal/remote"
	"projectdesk/internal/service"
)

// SourceHeader names the data source that served a request.
const SourceHeader = "X-Data-Source"

// Config for the HTTP API handler.
type Config struct {
	Providers *service.Set
	BasePath  string
	Log       *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"project not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}
type providerKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler serving the projectdesk API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Providers == nil {
		return nil, errors.New("server: providers required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(sourceSelector(cfg.Providers))
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics)
	}

	hcfg := huma.DefaultConfig("Projectdesk API", "1.0.0")
	hcfg.OpenAPIPath = path.Join(basePath, "openapi")
	hcfg.DocsPath = path.Join(basePath, "docs")
	hcfg.SchemasPath = path.Join(basePath, "schemas")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerProjects(group)
	registerEmployees(group)
	registerTodos(group)
	registerNotes(group)

	return router, nil
}

// requestLogger tags each request with an id and logs it once served.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(remote.RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(remote.RequestIDHeader, reqID)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(started)),
				zap.String("request_id", reqID),
				zap.String("source", ww.Header().Get(SourceHeader)),
			)
		})
	}
}

// sourceSelector resolves the ?mock / ?api override against the default
// data source and stores the chosen provider on the request.
func sourceSelector(set *service.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := set.For(datasource.FromQuery(r.URL.Query()))
			if p != nil {
				w.Header().Set(SourceHeader, p.Mode.String())
			}
			ctx := context.WithValue(r.Context(), providerKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func provider(ctx context.Context) (*service.Provider, error) {
	p, _ := ctx.Value(providerKey{}).(*service.Provider)
	if p == nil {
		return nil, newAPIError(http.StatusServiceUnavailable, "no_data_source", "no data source configured", nil)
	}
	return p, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func notFound(what string) huma.StatusError {
	return newAPIError(http.StatusNotFound, "not_found", what+" not found", nil)
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrConnection):
		return newAPIError(http.StatusBadGateway, "upstream_unavailable", msg, nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusGatewayTimeout, "timeout", msg, nil)
	case strings.Contains(strings.ToLower(msg), "invalid"), strings.Contains(strings.ToLower(msg), "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusBadGateway:
		return "upstream_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		body := map[string]string{"status": "ok"}
		if p, err := provider(ctx); err == nil {
			body["source"] = p.Mode.String()
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: body}, nil
	})
}

func registerProjects(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*listBody[domain.Project], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Projects.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-projects",
		Method:      http.MethodGet,
		Path:        "/projects/search",
		Summary:     "Search projects",
		Description: "projectCodes and statuses may repeat; any match within a field counts and every set field must match.",
		Errors:      []int{http.StatusBadRequest, http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*listBody[domain.Project], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		var q map[string][]string
		if req := requestFrom(ctx); req != nil {
			q = req.URL.Query()
		}
		params, err := searchParams(q)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		out, err := p.Projects.Search(ctx, params)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*itemBody[domain.Project], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Projects.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			return nil, notFound("project")
		}
		return item(*out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-employees",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/employees",
		Summary:     "Employees assigned to a project",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*listBody[domain.Employee], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Employees.ByProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})
}

func registerEmployees(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employees",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*listBody[domain.Employee], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Employees.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-employee",
		Method:      http.MethodGet,
		Path:        "/employees/{id}",
		Summary:     "Get employee",
		Errors:      []int{http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*itemBody[domain.Employee], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Employees.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			return nil, notFound("employee")
		}
		return item(*out), nil
	})
}

func registerTodos(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-todos",
		Method:      http.MethodGet,
		Path:        "/todos",
		Summary:     "List todos",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*listBody[domain.Todo], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Todos.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-todos",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/todos",
		Summary:     "List todos of a project",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*listBody[domain.Todo], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Todos.ByProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})

	// Todo bodies are decoded from the raw request so an explicit null
	// dueDate survives.
	huma.Register(api, huma.Operation{
		OperationID:   "create-todo",
		Method:        http.MethodPost,
		Path:          "/todos",
		Summary:       "Create todo",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*itemBody[domain.Todo], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		var in domain.NewTodoInput
		if err := decodeBody(ctx, &in); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		out, err := p.Todos.Create(ctx, in)
		if err != nil {
			return nil, handleError(err)
		}
		return item(*out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-todo",
		Method:      http.MethodPatch,
		Path:        "/todos/{id}",
		Summary:     "Update todo title, description or due date",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*itemBody[domain.Todo], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		var u domain.TodoUpdate
		if err := decodeBody(ctx, &u); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		out, err := p.Todos.Update(ctx, input.ID, u)
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			return nil, notFound("todo")
		}
		return item(*out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reassign-todo",
		Method:      http.MethodPatch,
		Path:        "/todos/{id}/reassign",
		Summary:     "Reassign todo",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *reassignInput) (*itemBody[domain.Todo], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Todos.Reassign(ctx, input.ID, domain.ReassignInput{
			NewAssigneeID:  input.Body.NewAssigneeID,
			ReassignedByID: input.Body.ReassignedByID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			return nil, notFound("todo")
		}
		return item(*out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-todo",
		Method:      http.MethodPatch,
		Path:        "/todos/{id}/toggle",
		Summary:     "Toggle todo completion",
		Errors:      []int{http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*itemBody[domain.Todo], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Todos.ToggleComplete(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			return nil, notFound("todo")
		}
		return item(*out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-todo",
		Method:        http.MethodDelete,
		Path:          "/todos/{id}",
		Summary:       "Delete todo",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := p.Todos.Delete(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if !ok {
			return nil, notFound("todo")
		}
		return &struct{}{}, nil
	})
}

func registerNotes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-project-notes",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/notes",
		Summary:     "List notes of a project, newest first",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, input *idPath) (*listBody[domain.ProjectNote], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Notes.ByProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return list(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-note",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/notes",
		Summary:       "Create note",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusBadGateway},
	}, func(ctx context.Context, input *noteCreateInput) (*itemBody[domain.ProjectNote], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		out, err := p.Notes.Create(ctx, input.ID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return item(*out), nil
	})

	// Note edits are scoped by the projectId query parameter; a note of
	// another project reads as not found.
	huma.Register(api, huma.Operation{
		OperationID: "update-note",
		Method:      http.MethodPatch,
		Path:        "/notes/{id}",
		Summary:     "Update note content",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *noteUpdateInput) (*itemBody[domain.ProjectNote], error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		if input.ProjectID == 0 {
			return nil, notFound("note")
		}
		out, err := p.Notes.Update(ctx, input.ProjectID, input.ID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			return nil, notFound("note")
		}
		return item(*out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-note",
		Method:        http.MethodDelete,
		Path:          "/notes/{id}",
		Summary:       "Delete note",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, input *notePath) (*struct{}, error) {
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		if input.ProjectID == 0 {
			return nil, notFound("note")
		}
		ok, err := p.Notes.Delete(ctx, input.ProjectID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if !ok {
			return nil, notFound("note")
		}
		return &struct{}{}, nil
	})
}
