package domain

import (
	"errors"
	"time"
)

// ErrConnection marks a failed call to the remote backend (network error,
// timeout or unexpected status). Not-found is never reported through it.
var ErrConnection = errors.New("connection failed")

// UnknownName is the display name used when an employee id does not resolve.
const UnknownName = "Unknown"

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusOnHold    ProjectStatus = "on-hold"
	StatusCompleted ProjectStatus = "completed"
)

// ProjectStatuses lists the known statuses in display order.
var ProjectStatuses = []ProjectStatus{StatusActive, StatusOnHold, StatusCompleted}

// Label returns the human readable status, or the raw value when unknown.
func (s ProjectStatus) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusOnHold:
		return "On Hold"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

type Employee struct {
	ID         int64          `json:"id" yaml:"id"`
	FirstName  string         `json:"firstName" yaml:"firstName"`
	LastName   string         `json:"lastName" yaml:"lastName"`
	Department string         `json:"department" yaml:"department"`
	Position   string         `json:"position" yaml:"position"`
	HireDate   string         `json:"hireDate" yaml:"hireDate" format:"date"`
	Status     EmployeeStatus `json:"status" yaml:"status" enum:"active,inactive"`
}

func (e Employee) GetID() int64 { return e.ID }

// FullName joins first and last name the way the directory displays them.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Ref returns the denormalized snapshot embedded into todos.
func (e Employee) Ref() EmployeeRef {
	return EmployeeRef{ID: e.ID, Name: e.FullName()}
}

// EmployeeRef is an id plus the display name captured at the time of use.
type EmployeeRef struct {
	ID   int64
	Name string
}

type Project struct {
	ID                  int64         `json:"id" yaml:"id"`
	ProjectCode         string        `json:"projectCode" yaml:"projectCode"`
	Name                string        `json:"name" yaml:"name"`
	Description         string        `json:"description" yaml:"description"`
	Department          string        `json:"department" yaml:"department"`
	StartDate           string        `json:"startDate" yaml:"startDate" format:"date"`
	EndDate             *string       `json:"endDate" yaml:"endDate" format:"date"`
	Status              ProjectStatus `json:"status" yaml:"status" enum:"active,on-hold,completed"`
	AssignedEmployeeIDs []int64       `json:"assignedEmployeeIds" yaml:"assignedEmployeeIds"`
}

func (p Project) GetID() int64 { return p.ID }

// HasEmployee reports whether id is among the assigned employees.
func (p Project) HasEmployee(id int64) bool {
	for _, assigned := range p.AssignedEmployeeIDs {
		if assigned == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Project) Clone() Project {
	out := p
	if p.EndDate != nil {
		end := *p.EndDate
		out.EndDate = &end
	}
	out.AssignedEmployeeIDs = append([]int64(nil), p.AssignedEmployeeIDs...)
	return out
}

type ProjectNote struct {
	ID        int64     `json:"id" yaml:"id"`
	ProjectID int64     `json:"projectId" yaml:"projectId"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func (n ProjectNote) GetID() int64 { return n.ID }

// NewNote builds a note with both timestamps set to now.
func NewNote(id, projectID int64, content string, now time.Time) ProjectNote {
	now = now.UTC()
	return ProjectNote{
		ID:        id,
		ProjectID: projectID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithContent returns n with new content and a bumped UpdatedAt.
func (n ProjectNote) WithContent(content string, now time.Time) ProjectNote {
	n.Content = content
	n.UpdatedAt = now.UTC()
	return n
}

// SearchParams narrows a project listing. Every field is optional; an empty
// field places no constraint on its dimension.
type SearchParams struct {
	ProjectCodes  []string        `json:"projectCodes,omitempty"`
	Name          string          `json:"name,omitempty"`
	Department    string          `json:"department,omitempty"`
	StartDateFrom *time.Time      `json:"startDateFrom,omitempty"`
	StartDateTo   *time.Time      `json:"startDateTo,omitempty"`
	Statuses      []ProjectStatus `json:"statuses,omitempty"`
}

// IsZero reports whether no dimension is constrained.
func (p SearchParams) IsZero() bool {
	return len(p.ProjectCodes) == 0 && p.Name == "" && p.Department == "" &&
		p.StartDateFrom == nil && p.StartDateTo == nil && len(p.Statuses) == 0
}

// CodeSuggestion pairs a project code with its project name for autocomplete.
type CodeSuggestion struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
