package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"projectdesk/internal/domain"
	"projectdesk/internal/search"
)

// Request payloads

type NoteRequest struct {
	Content string `json:"content"`
}

type ReassignRequest struct {
	NewAssigneeID  int64 `json:"newAssigneeId"`
	ReassignedByID int64 `json:"reassignedById"`
}

// Path and query inputs

type idPath struct {
	ID int64 `path:"id"`
}

type notePath struct {
	ID        int64 `path:"id"`
	ProjectID int64 `query:"projectId"`
}

type noteCreateInput struct {
	ID   int64       `path:"id"`
	Body NoteRequest `json:"body"`
}

type noteUpdateInput struct {
	ID        int64       `path:"id"`
	ProjectID int64       `query:"projectId"`
	Body      NoteRequest `json:"body"`
}

type reassignInput struct {
	ID   int64           `path:"id"`
	Body ReassignRequest `json:"body"`
}

// Response bodies

type listBody[T any] struct {
	Body []T `json:"body"`
}

type itemBody[T any] struct {
	Body T `json:"body"`
}

func list[T any](items []T) *listBody[T] {
	if items == nil {
		items = []T{}
	}
	return &listBody[T]{Body: items}
}

func item[T any](v T) *itemBody[T] {
	return &itemBody[T]{Body: v}
}

// searchParams reads the project search query. projectCodes and statuses
// repeat; date bounds accept RFC 3339 or a bare date.
func searchParams(q url.Values) (domain.SearchParams, error) {
	params := domain.SearchParams{
		ProjectCodes: q["projectCodes"],
		Name:         q.Get("name"),
		Department:   q.Get("department"),
	}
	for _, s := range q["statuses"] {
		params.Statuses = append(params.Statuses, domain.ProjectStatus(s))
	}
	var err error
	if params.StartDateFrom, err = queryDate(q, "startDateFrom"); err != nil {
		return domain.SearchParams{}, err
	}
	if params.StartDateTo, err = queryDate(q, "startDateTo"); err != nil {
		return domain.SearchParams{}, err
	}
	return params, nil
}

func queryDate(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, ok := search.ParseDate(raw); ok {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid %s %q", key, raw)
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func requestFrom(ctx context.Context) *http.Request {
	req, _ := ctx.Value(requestKey{}).(*http.Request)
	return req
}

// decodeBody unmarshals the buffered request body into out.
func decodeBody(ctx context.Context, out any) error {
	data := bytes.TrimSpace(bodyBytes(ctx))
	if len(data) == 0 {
		return fmt.Errorf("body required")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}
