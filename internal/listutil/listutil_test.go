package listutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
)

func notes() []domain.ProjectNote {
	return []domain.ProjectNote{
		{ID: 1, ProjectID: 10, Content: "a"},
		{ID: 2, ProjectID: 10, Content: "b"},
		{ID: 3, ProjectID: 11, Content: "c"},
	}
}

func TestReplaceByID(t *testing.T) {
	in := notes()
	out := listutil.ReplaceByID(in, domain.ProjectNote{ID: 2, ProjectID: 10, Content: "B"})
	assert.Equal(t, "B", out[1].Content)
	assert.Equal(t, "b", in[1].Content)

	same := listutil.ReplaceByID(in, domain.ProjectNote{ID: 99})
	assert.Equal(t, in, same)
}

func TestRemoveByID(t *testing.T) {
	in := notes()
	out := listutil.RemoveByID(in, 1)
	assert.Len(t, out, 2)
	assert.Len(t, in, 3)
	assert.Equal(t, in, listutil.RemoveByID(in, 42))
}

func TestFindAndMax(t *testing.T) {
	in := notes()
	got, ok := listutil.FindByID(in, 3)
	assert.True(t, ok)
	assert.Equal(t, "c", got.Content)
	_, ok = listutil.FindByID(in, 4)
	assert.False(t, ok)
	assert.Equal(t, int64(3), listutil.MaxID(in))
	assert.Equal(t, int64(0), listutil.MaxID([]domain.ProjectNote(nil)))
}

func TestCloneIsIndependent(t *testing.T) {
	end := "2024-06-30"
	in := []domain.Project{{ID: 1, EndDate: &end, AssignedEmployeeIDs: []int64{1, 2}}}
	out := listutil.Clone(in, domain.Project.Clone)
	out[0].AssignedEmployeeIDs[0] = 9
	*out[0].EndDate = "2030-01-01"
	assert.Equal(t, int64(1), in[0].AssignedEmployeeIDs[0])
	assert.Equal(t, "2024-06-30", *in[0].EndDate)
	assert.Nil(t, listutil.Clone[domain.Project](nil, nil))
}

func TestFilterKeepsOrder(t *testing.T) {
	out := listutil.Filter(notes(), func(n domain.ProjectNote) bool { return n.ProjectID == 10 })
	assert.Equal(t, []int64{1, 2}, []int64{out[0].ID, out[1].ID})
}
