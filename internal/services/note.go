package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/storage"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

const (
	msgNoteFieldsRequired = "Title and content are required"
	msgNoteTitleTooLong   = "Title must be at most 255 characters"
	msgInvalidCategory    = "Invalid category_id for this user"
	msgNoteNotFound       = "Note not found"
	msgExportNotFound     = "Export not found"
)

// ErrExportsDisabled is returned by export operations when no object
// storage backend is configured.
var ErrExportsDisabled = errors.New("note exports are disabled")

// NoteRepository defines owner-scoped persistence for notes.
type NoteRepository interface {
	List(ctx context.Context, userID int64) ([]types.Note, error)
	Get(ctx context.Context, id, userID int64) (types.Note, error)
	Create(ctx context.Context, userID int64, in types.NoteInput) (types.Note, error)
	Update(ctx context.Context, id, userID int64, in types.NoteInput) (types.Note, error)
	Delete(ctx context.Context, id, userID int64) error
}

// CategoryLookup resolves a category only if the caller owns it.
type CategoryLookup interface {
	Get(ctx context.Context, id, userID int64) (types.Category, error)
}

// ObjectStore is the subset of object storage used for exports.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Export describes a stored snapshot of a user's notes.
type Export struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type exportDocument struct {
	UserID     int64        `json:"user_id"`
	ExportedAt time.Time    `json:"exported_at"`
	Notes      []types.Note `json:"notes"`
}

// NoteService encapsulates note use-cases for the calling identity.
type NoteService struct {
	repo       NoteRepository
	categories CategoryLookup
	objects    ObjectStore
	events     EventPublisher
}

// NewNoteService constructs a NoteService. objects may be nil, in which
// case exports are disabled.
func NewNoteService(repo NoteRepository, categories CategoryLookup, objects ObjectStore, events EventPublisher) *NoteService {
	return &NoteService{
		repo:       repo,
		categories: categories,
		objects:    objects,
		events:     events,
	}
}

func (s *NoteService) List(ctx context.Context, id auth.Identity) ([]types.Note, error) {
	return s.repo.List(ctx, id.UserID)
}

func (s *NoteService) Get(ctx context.Context, id auth.Identity, noteID int64) (types.Note, error) {
	note, err := s.repo.Get(ctx, noteID, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Note{}, notFoundError(msgNoteNotFound)
		}
		return types.Note{}, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

func (s *NoteService) Create(ctx context.Context, id auth.Identity, in types.NoteInput) (types.Note, error) {
	in = trimInput(in)
	if err := validateNoteFields(in); err != nil {
		return types.Note{}, err
	}
	if err := s.checkCategory(ctx, id, in.CategoryID); err != nil {
		return types.Note{}, err
	}

	note, err := s.repo.Create(ctx, id.UserID, in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidReference):
			return types.Note{}, validationError(msgInvalidCategory)
		case errors.Is(err, store.ErrValueTooLong):
			return types.Note{}, validationError(msgNoteTitleTooLong)
		}
		return types.Note{}, fmt.Errorf("create note: %w", err)
	}

	publishEvent(ctx, s.events, types.EventNoteCreated, id.UserID, note.ID)
	return note, nil
}

// Update replaces a note's editable fields. Ownership is checked before the
// category reference, which is checked before the fields themselves.
func (s *NoteService) Update(ctx context.Context, id auth.Identity, noteID int64, in types.NoteInput) (types.Note, error) {
	if _, err := s.Get(ctx, id, noteID); err != nil {
		return types.Note{}, err
	}
	if err := s.checkCategory(ctx, id, in.CategoryID); err != nil {
		return types.Note{}, err
	}
	in = trimInput(in)
	if err := validateNoteFields(in); err != nil {
		return types.Note{}, err
	}

	note, err := s.repo.Update(ctx, noteID, id.UserID, in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.Note{}, notFoundError(msgNoteNotFound)
		case errors.Is(err, store.ErrInvalidReference):
			return types.Note{}, validationError(msgInvalidCategory)
		case errors.Is(err, store.ErrValueTooLong):
			return types.Note{}, validationError(msgNoteTitleTooLong)
		}
		return types.Note{}, fmt.Errorf("update note: %w", err)
	}

	publishEvent(ctx, s.events, types.EventNoteUpdated, id.UserID, note.ID)
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, id auth.Identity, noteID int64) error {
	if err := s.repo.Delete(ctx, noteID, id.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError(msgNoteNotFound)
		}
		return fmt.Errorf("delete note: %w", err)
	}
	publishEvent(ctx, s.events, types.EventNoteDeleted, id.UserID, noteID)
	return nil
}

// ExportsEnabled reports whether an object store is configured.
func (s *NoteService) ExportsEnabled() bool {
	return s.objects != nil
}

// Export writes a JSON snapshot of the caller's notes to object storage.
func (s *NoteService) Export(ctx context.Context, id auth.Identity) (Export, error) {
	if s.objects == nil {
		return Export{}, ErrExportsDisabled
	}

	notes, err := s.repo.List(ctx, id.UserID)
	if err != nil {
		return Export{}, fmt.Errorf("list notes: %w", err)
	}
	payload, err := json.Marshal(exportDocument{
		UserID:     id.UserID,
		ExportedAt: time.Now().UTC(),
		Notes:      notes,
	})
	if err != nil {
		return Export{}, fmt.Errorf("encode export: %w", err)
	}

	exportID := uuid.NewString()
	key := exportKey(id.UserID, exportID)
	if err := s.objects.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
		return Export{}, fmt.Errorf("store export: %w", err)
	}

	publish(ctx, s.events, types.Event{
		Type:       types.EventNotesExported,
		UserID:     id.UserID,
		ResourceID: exportID,
		OccurredAt: time.Now().UTC(),
	})
	return Export{ID: exportID, Key: key}, nil
}

// OpenExport returns a reader over one of the caller's exports. The key is
// derived from the caller's id, so another user's export id resolves to a
// missing object.
func (s *NoteService) OpenExport(ctx context.Context, id auth.Identity, exportID string) (io.ReadCloser, error) {
	if s.objects == nil {
		return nil, ErrExportsDisabled
	}
	parsed, err := uuid.Parse(exportID)
	if err != nil {
		return nil, notFoundError(msgExportNotFound)
	}

	reader, err := s.objects.Get(ctx, exportKey(id.UserID, parsed.String()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundError(msgExportNotFound)
		}
		return nil, fmt.Errorf("open export: %w", err)
	}
	return reader, nil
}

func (s *NoteService) checkCategory(ctx context.Context, id auth.Identity, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categories.Get(ctx, *categoryID, id.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationError(msgInvalidCategory)
		}
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}

func validateNoteFields(in types.NoteInput) error {
	if in.Title == "" || in.Content == "" {
		return validationError(msgNoteFieldsRequired)
	}
	if utf8.RuneCountInString(in.Title) > store.MaxNoteTitleLength {
		return validationError(msgNoteTitleTooLong)
	}
	return nil
}

func trimInput(in types.NoteInput) types.NoteInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	return in
}

func exportKey(userID int64, exportID string) string {
	return fmt.Sprintf("exports/%d/%s.json", userID, exportID)
}
