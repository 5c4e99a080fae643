package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/notekeeper/apiserver/types"
)

var noteColumns = []string{"id", "user_id", "category_id", "title", "content", "created_at", "updated_at"}

// NoteRepository handles persistence for notes. All access goes through the
// owned repository or carries an explicit user_id filter.
type NoteRepository struct {
	db    *sql.DB
	owned *Owned[types.Note]
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{
		db:    db,
		owned: NewOwned(db, "notes", noteColumns, scanNote),
	}
}

// List returns the user's notes with their category names, most recently
// updated first.
func (r *NoteRepository) List(ctx context.Context, userID int64) ([]types.Note, error) {
	const query = `
		SELECT n.id, n.user_id, n.category_id, n.title, n.content, n.created_at, n.updated_at,
		       c.name AS category_name
		FROM notes n
		LEFT JOIN categories c ON n.category_id = c.id AND c.user_id = n.user_id
		WHERE n.user_id = $1
		ORDER BY n.updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]types.Note, 0)
	for rows.Next() {
		var (
			note         types.Note
			categoryID   sql.NullInt64
			categoryName sql.NullString
		)
		if err := rows.Scan(
			&note.ID,
			&note.UserID,
			&categoryID,
			&note.Title,
			&note.Content,
			&note.CreatedAt,
			&note.UpdatedAt,
			&categoryName,
		); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			note.CategoryID = &categoryID.Int64
		}
		if categoryName.Valid {
			note.CategoryName = &categoryName.String
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepository) Get(ctx context.Context, id, userID int64) (types.Note, error) {
	return r.owned.FindOwned(ctx, id, userID)
}

func (r *NoteRepository) Create(ctx context.Context, userID int64, in types.NoteInput) (types.Note, error) {
	now := time.Now().UTC()
	return r.owned.CreateOwned(ctx, userID, []Field{
		{Column: "category_id", Value: nullableID(in.CategoryID)},
		{Column: "title", Value: in.Title},
		{Column: "content", Value: in.Content},
		{Column: "created_at", Value: now},
		{Column: "updated_at", Value: now},
	})
}

func (r *NoteRepository) Update(ctx context.Context, id, userID int64, in types.NoteInput) (types.Note, error) {
	return r.owned.UpdateOwned(ctx, id, userID, []Field{
		{Column: "title", Value: in.Title},
		{Column: "content", Value: in.Content},
		{Column: "category_id", Value: nullableID(in.CategoryID)},
		{Column: "updated_at", Value: time.Now().UTC()},
	})
}

func (r *NoteRepository) Delete(ctx context.Context, id, userID int64) error {
	return r.owned.DeleteOwned(ctx, id, userID)
}

func scanNote(s Scanner) (types.Note, error) {
	var (
		note       types.Note
		categoryID sql.NullInt64
	)
	if err := s.Scan(
		&note.ID,
		&note.UserID,
		&categoryID,
		&note.Title,
		&note.Content,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		return types.Note{}, err
	}
	if categoryID.Valid {
		note.CategoryID = &categoryID.Int64
	}
	return note, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
