package store

import (
	"context"

	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
	"projectdesk/internal/service"
)

type NoteState struct {
	Notes   map[int64][]domain.ProjectNote
	Loading bool
	Error   string
}

// NoteStore keeps notes grouped by project, newest first.
type NoteStore struct {
	base
	svc service.NoteService

	notes   map[int64][]domain.ProjectNote
	loading bool
	errText string
}

func NewNoteStore(svc service.NoteService, opts Options) *NoteStore {
	return &NoteStore{base: newBase("notes", opts), svc: svc, notes: map[int64][]domain.ProjectNote{}}
}

func (s *NoteStore) State() NoteState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := make(map[int64][]domain.ProjectNote, len(s.notes))
	for id, group := range s.notes {
		notes[id] = listutil.Clone(group, nil)
	}
	return NoteState{Notes: notes, Loading: s.loading, Error: s.errText}
}

func (s *NoteStore) Load(ctx context.Context, projectID int64) bool {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	notes, err := s.svc.ByProject(ctx, projectID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.errText = ErrConnectionFailed
	} else {
		s.notes[projectID] = notes
		s.errText = ""
	}
	s.mu.Unlock()
	if err != nil {
		s.warn("notes.by_project", projectID, err)
		s.publish("notes.failed", projectID, nil)
		return false
	}
	s.publish("notes.loaded", projectID, map[string]any{"count": len(notes)})
	return true
}

// Add creates a note and puts it first in the project's group.
func (s *NoteStore) Add(ctx context.Context, projectID int64, content string) *domain.ProjectNote {
	note, err := s.svc.Create(ctx, projectID, content)
	if err != nil || note == nil {
		s.fail("notes.create", projectID, err)
		return nil
	}
	s.mu.Lock()
	group := make([]domain.ProjectNote, 0, len(s.notes[projectID])+1)
	group = append(group, *note)
	s.notes[projectID] = append(group, s.notes[projectID]...)
	s.mu.Unlock()
	s.publish("notes.created", note.ID, map[string]any{"project_id": projectID})
	return note
}

func (s *NoteStore) Update(ctx context.Context, projectID, noteID int64, content string) bool {
	note, err := s.svc.Update(ctx, projectID, noteID, content)
	if err != nil {
		s.fail("notes.update", noteID, err)
		return false
	}
	if note == nil {
		return false
	}
	s.mu.Lock()
	found := listutil.Contains(s.notes[projectID], noteID)
	if found {
		s.notes[projectID] = listutil.ReplaceByID(s.notes[projectID], *note)
	}
	s.mu.Unlock()
	if found {
		s.publish("notes.updated", noteID, map[string]any{"project_id": projectID})
	}
	return found
}

func (s *NoteStore) Delete(ctx context.Context, projectID, noteID int64) bool {
	ok, err := s.svc.Delete(ctx, projectID, noteID)
	if err != nil {
		s.fail("notes.delete", noteID, err)
		return false
	}
	if !ok {
		return false
	}
	s.mu.Lock()
	if group, exists := s.notes[projectID]; exists {
		s.notes[projectID] = listutil.RemoveByID(group, noteID)
	}
	s.mu.Unlock()
	s.publish("notes.deleted", noteID, map[string]any{"project_id": projectID})
	return true
}

// ProjectNotes returns the held notes of projectID; never nil.
func (s *NoteStore) ProjectNotes(projectID int64) []domain.ProjectNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := listutil.Clone(s.notes[projectID], nil)
	if out == nil {
		out = []domain.ProjectNote{}
	}
	return out
}

func (s *NoteStore) NoteCount(projectID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes[projectID])
}

func (s *NoteStore) fail(op string, id int64, err error) {
	s.mu.Lock()
	s.errText = ErrConnectionFailed
	s.mu.Unlock()
	if err != nil {
		s.warn(op, id, err)
	}
	s.publish("notes.failed", id, nil)
}
