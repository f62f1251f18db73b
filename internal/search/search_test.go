package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdesk/internal/domain"
	"projectdesk/internal/search"
)

func strPtr(s string) *string { return &s }

func sample() []domain.Project {
	return []domain.Project{
		{ID: 2001, ProjectCode: "10234567", Name: "Website Redesign", Department: "Engineering", StartDate: "2024-01-15", EndDate: strPtr("2024-06-30"), Status: domain.StatusActive},
		{ID: 2002, ProjectCode: "10345678", Name: "Q1 Marketing Campaign", Department: "Marketing", StartDate: "2024-02-01", Status: domain.StatusCompleted},
		{ID: 2007, ProjectCode: "10890123", Name: "Cloud Migration", Department: "Engineering", StartDate: "2024-05-01", Status: domain.StatusOnHold},
		{ID: 2010, ProjectCode: "11123456", Name: "API Gateway Implementation", Department: "Engineering", StartDate: "2024-03-15", Status: domain.StatusActive},
		{ID: 2099, ProjectCode: "99999999", Name: "Broken Dates", Department: "Ops", StartDate: "soon", Status: domain.StatusActive},
	}
}

func ids(projects []domain.Project) []int64 {
	out := make([]int64, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ID)
	}
	return out
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEmptyParamsReturnAllInOrder(t *testing.T) {
	in := sample()
	assert.Equal(t, ids(in), ids(search.Filter(domain.SearchParams{}, in)))
}

func TestOwnStatusAlwaysMatches(t *testing.T) {
	for _, p := range sample() {
		params := domain.SearchParams{Statuses: []domain.ProjectStatus{p.Status}}
		assert.True(t, search.Match(params, p), p.Name)
	}
}

func TestNameIsCaseInsensitiveSubstring(t *testing.T) {
	got := search.Filter(domain.SearchParams{Name: "api"}, sample())
	require.Len(t, got, 1)
	assert.Equal(t, "API Gateway Implementation", got[0].Name)
}

func TestOrWithinFieldAndAcrossFields(t *testing.T) {
	params := domain.SearchParams{ProjectCodes: []string{"1023", "1089"}}
	assert.Equal(t, []int64{2001, 2007}, ids(search.Filter(params, sample())))

	params.Statuses = []domain.ProjectStatus{domain.StatusActive}
	assert.Equal(t, []int64{2001}, ids(search.Filter(params, sample())))

	params.Statuses = append(params.Statuses, domain.StatusOnHold)
	assert.Equal(t, []int64{2001, 2007}, ids(search.Filter(params, sample())))
}

func TestDepartmentSubstring(t *testing.T) {
	got := search.Filter(domain.SearchParams{Department: "ENGIN"}, sample())
	assert.Equal(t, []int64{2001, 2007, 2010}, ids(got))
}

func TestDateRangeInclusive(t *testing.T) {
	params := domain.SearchParams{StartDateFrom: day(2024, 1, 15), StartDateTo: day(2024, 3, 15)}
	assert.Equal(t, []int64{2001, 2002, 2010}, ids(search.Filter(params, sample())))
}

func TestInvertedRangeIsEmpty(t *testing.T) {
	params := domain.SearchParams{StartDateFrom: day(2024, 6, 1), StartDateTo: day(2024, 1, 1)}
	assert.Empty(t, search.Filter(params, sample()))
}

func TestBoundUsesItsOwnCalendarDate(t *testing.T) {
	// 23:30 on Jan 14 in UTC-5 is already Jan 15 in UTC; the bound stays Jan 14.
	loc := time.FixedZone("EST", -5*60*60)
	from := time.Date(2024, 1, 14, 23, 30, 0, 0, loc)
	to := time.Date(2024, 1, 15, 23, 59, 0, 0, loc)
	params := domain.SearchParams{StartDateFrom: &from, StartDateTo: &to}
	assert.Equal(t, []int64{2001}, ids(search.Filter(params, sample())))
}

func TestUnparseableStartDateNeverMatchesBounds(t *testing.T) {
	params := domain.SearchParams{Name: "broken", StartDateFrom: day(1900, 1, 1)}
	assert.Empty(t, search.Filter(params, sample()))
	assert.Len(t, search.Filter(domain.SearchParams{Name: "broken"}, sample()), 1)
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	params := domain.SearchParams{ProjectCodes: []string{""}, Statuses: []domain.ProjectStatus{""}}
	assert.Len(t, search.Filter(params, sample()), len(sample()))
}

func TestCodeSuggestions(t *testing.T) {
	assert.Empty(t, search.CodeSuggestions("", sample()))
	got := search.CodeSuggestions("345", sample())
	assert.Equal(t, []domain.CodeSuggestion{
		{Code: "10234567", Name: "Website Redesign"},
		{Code: "10345678", Name: "Q1 Marketing Campaign"},
		{Code: "11123456", Name: "API Gateway Implementation"},
	}, got)
}
