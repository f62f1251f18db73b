// Package search implements the project search predicate and code
// autocomplete. Malformed parameters never fail; they just stop constraining.
package search

import (
	"strings"
	"time"

	"projectdesk/internal/domain"
)

const dateLayout = "2006-01-02"

// Filter returns the projects matching every constrained dimension of params,
// preserving input order.
func Filter(params domain.SearchParams, projects []domain.Project) []domain.Project {
	c := compile(params)
	out := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		if c.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether a single project satisfies params.
func Match(params domain.SearchParams, p domain.Project) bool {
	return compile(params).match(p)
}

// CodeSuggestions returns {code, name} pairs for the projects whose code
// contains query. An empty query suggests nothing.
func CodeSuggestions(query string, projects []domain.Project) []domain.CodeSuggestion {
	out := []domain.CodeSuggestion{}
	if query == "" {
		return out
	}
	for _, p := range projects {
		if strings.Contains(p.ProjectCode, query) {
			out = append(out, domain.CodeSuggestion{Code: p.ProjectCode, Name: p.Name})
		}
	}
	return out
}

// CalendarDate reduces t to midnight UTC of its calendar date in t's own
// location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD date, also accepting a longer timestamp whose
// first ten characters are the date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type compiled struct {
	codes      []string
	name       string
	department string
	statuses   map[domain.ProjectStatus]struct{}
	from       *time.Time
	to         *time.Time
}

func compile(params domain.SearchParams) compiled {
	c := compiled{
		name:       strings.ToLower(params.Name),
		department: strings.ToLower(params.Department),
	}
	for _, code := range params.ProjectCodes {
		if code != "" {
			c.codes = append(c.codes, code)
		}
	}
	for _, status := range params.Statuses {
		if status == "" {
			continue
		}
		if c.statuses == nil {
			c.statuses = map[domain.ProjectStatus]struct{}{}
		}
		c.statuses[status] = struct{}{}
	}
	if params.StartDateFrom != nil {
		from := CalendarDate(*params.StartDateFrom)
		c.from = &from
	}
	if params.StartDateTo != nil {
		to := CalendarDate(*params.StartDateTo)
		c.to = &to
	}
	return c
}

func (c compiled) match(p domain.Project) bool {
	if len(c.codes) > 0 && !containsAny(p.ProjectCode, c.codes) {
		return false
	}
	if c.name != "" && !strings.Contains(strings.ToLower(p.Name), c.name) {
		return false
	}
	if c.department != "" && !strings.Contains(strings.ToLower(p.Department), c.department) {
		return false
	}
	if c.statuses != nil {
		if _, ok := c.statuses[p.Status]; !ok {
			return false
		}
	}
	if c.from == nil && c.to == nil {
		return true
	}
	start, ok := ParseDate(p.StartDate)
	if !ok {
		return false
	}
	if c.from != nil && start.Before(*c.from) {
		return false
	}
	if c.to != nil && start.After(*c.to) {
		return false
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
