package types

import "time"

// Note is a piece of text owned by exactly one user and optionally filed
// under one of that user's categories.
type Note struct {
	// ID is the unique identifier of the note.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the owner. It is always taken from the
	// authenticated identity, never from client input.
	UserID int64 `json:"user_id" db:"user_id"`

	// CategoryID optionally references a category owned by the same user.
	CategoryID *int64 `json:"category_id" db:"category_id"`

	// CategoryName is populated by list queries that join categories.
	CategoryName *string `json:"category_name,omitempty" db:"category_name"`

	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NoteInput carries the client-editable fields of a note.
type NoteInput struct {
	Title      string
	Content    string
	CategoryID *int64
}
