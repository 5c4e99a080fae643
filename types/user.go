package types

import "time"

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Email is the normalized (trimmed, lower-cased) login address.
	// It is unique across all users.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the salted bcrypt digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"-" db:"created_at"`
}
