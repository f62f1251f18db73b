package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

type TodoAssignment struct {
	ID             int64     `json:"id" yaml:"id"`
	AssignedToID   int64     `json:"assignedToId" yaml:"assignedToId"`
	AssignedToName string    `json:"assignedToName" yaml:"assignedToName"`
	AssignedByID   int64     `json:"assignedById" yaml:"assignedById"`
	AssignedByName string    `json:"assignedByName" yaml:"assignedByName"`
	AssignedAt     time.Time `json:"assignedAt" yaml:"assignedAt"`
}

type Todo struct {
	ID                  int64            `json:"id" yaml:"id"`
	ProjectID           int64            `json:"projectId" yaml:"projectId"`
	Title               string           `json:"title" yaml:"title"`
	Description         string           `json:"description" yaml:"description"`
	DueDate             *string          `json:"dueDate" yaml:"dueDate" format:"date"`
	Completed           bool             `json:"completed" yaml:"completed"`
	CreatedAt           time.Time        `json:"createdAt" yaml:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt" yaml:"updatedAt"`
	CreatedByID         int64            `json:"createdById" yaml:"createdById"`
	CreatedByName       string           `json:"createdByName" yaml:"createdByName"`
	CurrentAssigneeID   int64            `json:"currentAssigneeId" yaml:"currentAssigneeId"`
	CurrentAssigneeName string           `json:"currentAssigneeName" yaml:"currentAssigneeName"`
	AssignmentHistory   []TodoAssignment `json:"assignmentHistory" yaml:"assignmentHistory"`
}

func (t Todo) GetID() int64 { return t.ID }

// TodoDraft carries the caller-supplied fields of a new todo. Names are
// resolved by the service before the draft reaches NewTodo.
type TodoDraft struct {
	ProjectID   int64
	Title       string
	Description string
	DueDate     *string
	Assignee    EmployeeRef
	Creator     EmployeeRef
}

// NewTodo builds an open todo whose history holds exactly the initial
// assignment from creator to assignee.
func NewTodo(id, assignmentID int64, d TodoDraft, now time.Time) Todo {
	now = now.UTC()
	t := Todo{
		ID:            id,
		ProjectID:     d.ProjectID,
		Title:         d.Title,
		Description:   d.Description,
		DueDate:       cloneString(d.DueDate),
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedByID:   d.Creator.ID,
		CreatedByName: d.Creator.Name,
		AssignmentHistory: []TodoAssignment{{
			ID:             assignmentID,
			AssignedToID:   d.Assignee.ID,
			AssignedToName: d.Assignee.Name,
			AssignedByID:   d.Creator.ID,
			AssignedByName: d.Creator.Name,
			AssignedAt:     now,
		}},
	}
	t.syncAssignee()
	return t
}

// Clone returns a copy that shares no history slice or due date with t.
func (t Todo) Clone() Todo {
	out := t
	out.DueDate = cloneString(t.DueDate)
	out.AssignmentHistory = append([]TodoAssignment(nil), t.AssignmentHistory...)
	return out
}

// WithUpdate applies the provided fields of u and bumps UpdatedAt. The
// assignment fields and completion flag are never touched.
func (t Todo) WithUpdate(u TodoUpdate, now time.Time) Todo {
	out := t.Clone()
	if u.Title != nil {
		out.Title = *u.Title
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.DueDateSet {
		out.DueDate = cloneString(u.DueDate)
	}
	out.UpdatedAt = now.UTC()
	return out
}

// Reassigned appends a history entry handing the todo from its current
// assignee to to, recorded as done by by. Reassigning to the current
// assignee still appends.
func (t Todo) Reassigned(entryID int64, to, by EmployeeRef, now time.Time) Todo {
	now = now.UTC()
	out := t.Clone()
	out.AssignmentHistory = append(out.AssignmentHistory, TodoAssignment{
		ID:             entryID,
		AssignedToID:   to.ID,
		AssignedToName: to.Name,
		AssignedByID:   by.ID,
		AssignedByName: by.Name,
		AssignedAt:     now,
	})
	out.syncAssignee()
	out.UpdatedAt = now
	return out
}

// Toggled flips the completion flag. History is left alone.
func (t Todo) Toggled(now time.Time) Todo {
	out := t.Clone()
	out.Completed = !out.Completed
	out.UpdatedAt = now.UTC()
	return out
}

// CurrentAssignment returns the tail of the history.
func (t Todo) CurrentAssignment() (TodoAssignment, bool) {
	if len(t.AssignmentHistory) == 0 {
		return TodoAssignment{}, false
	}
	return t.AssignmentHistory[len(t.AssignmentHistory)-1], true
}

// Consistent reports whether the current assignee mirrors the history tail.
func (t Todo) Consistent() bool {
	last, ok := t.CurrentAssignment()
	if !ok {
		return false
	}
	return last.AssignedToID == t.CurrentAssigneeID && last.AssignedToName == t.CurrentAssigneeName
}

func (t *Todo) syncAssignee() {
	if last, ok := t.CurrentAssignment(); ok {
		t.CurrentAssigneeID = last.AssignedToID
		t.CurrentAssigneeName = last.AssignedToName
	}
}

// TodoUpdate is a partial update of a todo's editable fields. A nil Title or
// Description is left unchanged. DueDate is applied only when DueDateSet is
// true, in which case a nil DueDate clears it.
type TodoUpdate struct {
	Title       *string
	Description *string
	DueDate     *string
	DueDateSet  bool
}

// IsEmpty reports whether the update carries no field at all.
func (u TodoUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && !u.DueDateSet
}

// ClearDueDate returns u marked to remove the due date.
func (u TodoUpdate) ClearDueDate() TodoUpdate {
	u.DueDate = nil
	u.DueDateSet = true
	return u
}

// SetDueDate returns u marked to replace the due date with date.
func (u TodoUpdate) SetDueDate(date string) TodoUpdate {
	u.DueDate = &date
	u.DueDateSet = true
	return u
}

func (u TodoUpdate) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if u.Title != nil {
		out["title"] = *u.Title
	}
	if u.Description != nil {
		out["description"] = *u.Description
	}
	if u.DueDateSet {
		if u.DueDate == nil {
			out["dueDate"] = nil
		} else {
			out["dueDate"] = *u.DueDate
		}
	}
	return json.Marshal(out)
}

func (u *TodoUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = TodoUpdate{}
	if v, ok := raw["title"]; ok && !isNullJSON(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		u.Title = &s
	}
	if v, ok := raw["description"]; ok && !isNullJSON(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		u.Description = &s
	}
	if v, ok := raw["dueDate"]; ok {
		u.DueDateSet = true
		if !isNullJSON(v) {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			u.DueDate = &s
		}
	}
	return nil
}

func isNullJSON(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// NewTodoInput is the create request for a todo, by employee id.
type NewTodoInput struct {
	ProjectID   int64   `json:"projectId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"dueDate"`
	AssigneeID  int64   `json:"assigneeId"`
	CreatorID   int64   `json:"creatorId"`
}

// ReassignInput hands a todo to NewAssigneeID on behalf of ReassignedByID.
type ReassignInput struct {
	NewAssigneeID  int64 `json:"newAssigneeId"`
	ReassignedByID int64 `json:"reassignedById"`
}
