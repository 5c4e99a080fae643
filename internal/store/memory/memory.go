// Package memory is an in-process implementation of the note store. It keeps
// the same ownership and constraint behavior as the Postgres repositories and
// backs the service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

// Store holds users, categories and notes behind a single lock so that
// cross-table effects (a category delete clearing note references) are atomic.
type Store struct {
	mu sync.RWMutex

	nextUserID     int64
	nextCategoryID int64
	nextNoteID     int64
	touch          int64

	users      map[int64]types.User
	emails     map[string]int64
	categories map[int64]types.Category
	notes      map[int64]noteRecord
}

type noteRecord struct {
	note  types.Note
	touch int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:      make(map[int64]types.User),
		emails:     make(map[string]int64),
		categories: make(map[int64]types.Category),
		notes:      make(map[int64]noteRecord),
	}
}

// Users returns the credential store view.
func (s *Store) Users() *Users { return &Users{s: s} }

// Notes returns the note repository view.
func (s *Store) Notes() *Notes { return &Notes{s: s} }

// Categories returns the category repository view.
func (s *Store) Categories() *Categories { return &Categories{s: s} }

type Users struct{ s *Store }

func (u *Users) GetByEmail(_ context.Context, email string) (types.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	id, ok := u.s.emails[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u.s.users[id], nil
}

func (u *Users) Create(_ context.Context, user types.User) (types.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if tooLong(user.Email, store.MaxEmailLength) {
		return types.User{}, store.ErrValueTooLong
	}
	if _, exists := u.s.emails[user.Email]; exists {
		return types.User{}, store.ErrConflict
	}
	u.s.nextUserID++
	user.ID = u.s.nextUserID
	user.CreatedAt = time.Now().UTC()
	u.s.users[user.ID] = user
	u.s.emails[user.Email] = user.ID
	return user, nil
}

type Categories struct{ s *Store }

func (c *Categories) List(_ context.Context, userID int64) ([]types.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	out := make([]types.Category, 0)
	for _, category := range c.s.categories {
		if category.UserID == userID {
			out = append(out, category)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (c *Categories) Get(_ context.Context, id, userID int64) (types.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	category, ok := c.s.categories[id]
	if !ok || category.UserID != userID {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (c *Categories) GetByName(_ context.Context, userID int64, name string) (types.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	for _, category := range c.s.categories {
		if category.UserID == userID && category.Name == name {
			return category, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (c *Categories) Create(_ context.Context, userID int64, name string) (types.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if tooLong(name, store.MaxCategoryNameLength) {
		return types.Category{}, store.ErrValueTooLong
	}
	if _, ok := c.s.users[userID]; !ok {
		return types.Category{}, store.ErrInvalidReference
	}
	for _, category := range c.s.categories {
		if category.UserID == userID && category.Name == name {
			return types.Category{}, store.ErrConflict
		}
	}
	c.s.nextCategoryID++
	category := types.Category{
		ID:        c.s.nextCategoryID,
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	c.s.categories[category.ID] = category
	return category, nil
}

// Delete removes the category and detaches it from the owner's notes.
func (c *Categories) Delete(_ context.Context, id, userID int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	category, ok := c.s.categories[id]
	if !ok || category.UserID != userID {
		return store.ErrNotFound
	}
	delete(c.s.categories, id)
	for noteID, rec := range c.s.notes {
		if rec.note.CategoryID != nil && *rec.note.CategoryID == id {
			rec.note.CategoryID = nil
			c.s.notes[noteID] = rec
		}
	}
	return nil
}

type Notes struct{ s *Store }

// List returns the owner's notes, most recently written first, with category
// names resolved.
func (n *Notes) List(_ context.Context, userID int64) ([]types.Note, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	records := make([]noteRecord, 0)
	for _, rec := range n.s.notes {
		if rec.note.UserID == userID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].touch > records[j].touch })

	out := make([]types.Note, 0, len(records))
	for _, rec := range records {
		note := rec.note
		if note.CategoryID != nil {
			if category, ok := n.s.categories[*note.CategoryID]; ok && category.UserID == userID {
				name := category.Name
				note.CategoryName = &name
			}
		}
		out = append(out, note)
	}
	return out, nil
}

func (n *Notes) Get(_ context.Context, id, userID int64) (types.Note, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	rec, ok := n.s.notes[id]
	if !ok || rec.note.UserID != userID {
		return types.Note{}, store.ErrNotFound
	}
	return rec.note, nil
}

func (n *Notes) Create(_ context.Context, userID int64, in types.NoteInput) (types.Note, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	if tooLong(in.Title, store.MaxNoteTitleLength) {
		return types.Note{}, store.ErrValueTooLong
	}
	if err := n.s.checkCategory(userID, in.CategoryID); err != nil {
		return types.Note{}, err
	}
	now := time.Now().UTC()
	n.s.nextNoteID++
	n.s.touch++
	note := types.Note{
		ID:         n.s.nextNoteID,
		UserID:     userID,
		CategoryID: copyID(in.CategoryID),
		Title:      in.Title,
		Content:    in.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	n.s.notes[note.ID] = noteRecord{note: note, touch: n.s.touch}
	return note, nil
}

func (n *Notes) Update(_ context.Context, id, userID int64, in types.NoteInput) (types.Note, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	rec, ok := n.s.notes[id]
	if !ok || rec.note.UserID != userID {
		return types.Note{}, store.ErrNotFound
	}
	if tooLong(in.Title, store.MaxNoteTitleLength) {
		return types.Note{}, store.ErrValueTooLong
	}
	if err := n.s.checkCategory(userID, in.CategoryID); err != nil {
		return types.Note{}, err
	}
	n.s.touch++
	rec.touch = n.s.touch
	rec.note.Title = in.Title
	rec.note.Content = in.Content
	rec.note.CategoryID = copyID(in.CategoryID)
	rec.note.UpdatedAt = time.Now().UTC()
	n.s.notes[id] = rec
	return rec.note, nil
}

func (n *Notes) Delete(_ context.Context, id, userID int64) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	rec, ok := n.s.notes[id]
	if !ok || rec.note.UserID != userID {
		return store.ErrNotFound
	}
	delete(n.s.notes, id)
	return nil
}

// checkCategory mirrors the composite (category_id, user_id) foreign key.
// Callers must hold the lock.
func (s *Store) checkCategory(userID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	category, ok := s.categories[*categoryID]
	if !ok || category.UserID != userID {
		return store.ErrInvalidReference
	}
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// tooLong mirrors a VARCHAR(limit) column, which counts characters.
func tooLong(v string, limit int) bool {
	return utf8.RuneCountInString(v) > limit
}
