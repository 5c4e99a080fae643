package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a uniqueness constraint rejects a write.
var ErrConflict = errors.New("conflict")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	stringTooLong       = "22001"
)

// Column limits from the schema, counted in characters.
const (
	MaxEmailLength        = 255
	MaxNoteTitleLength    = 255
	MaxCategoryNameLength = 100
)

// ErrValueTooLong is returned when a value exceeds its column's length.
var ErrValueTooLong = errors.New("value too long")

// ErrInvalidReference is returned when a foreign key points at a missing row.
var ErrInvalidReference = errors.New("invalid reference")

// translateError maps driver constraint errors onto store sentinels.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return ErrConflict
		case foreignKeyViolation:
			return ErrInvalidReference
		case stringTooLong:
			return ErrValueTooLong
		}
	}
	return err
}
