package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const ownerColumn = "user_id"

// errOwnerField guards against callers trying to set the owner column from
// caller-supplied fields; the owner always comes from the userID argument.
var errOwnerField = errors.New("owner column cannot be assigned")

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Field is a single column assignment. Column names come from repository
// code, never from request input.
type Field struct {
	Column string
	Value  any
}

// Owned is a repository over a table whose rows carry a user_id owner
// column. Every statement it builds either filters on user_id or stamps it,
// so a row owned by someone else behaves exactly like a missing row.
type Owned[T any] struct {
	db      *sql.DB
	table   string
	columns string
	scan    func(Scanner) (T, error)
}

// NewOwned builds an owned repository for table. columns is the select list
// scan expects, in order.
func NewOwned[T any](db *sql.DB, table string, columns []string, scan func(Scanner) (T, error)) *Owned[T] {
	return &Owned[T]{
		db:      db,
		table:   table,
		columns: strings.Join(columns, ", "),
		scan:    scan,
	}
}

// FindOwned returns the row with id owned by userID, or ErrNotFound.
func (o *Owned[T]) FindOwned(ctx context.Context, id, userID int64) (T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s = $2`, o.columns, o.table, ownerColumn)
	return o.scanOne(o.db.QueryRowContext(ctx, query, id, userID))
}

// FindOwnedBy returns the first row owned by userID whose column equals value.
func (o *Owned[T]) FindOwnedBy(ctx context.Context, userID int64, column string, value any) (T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2 LIMIT 1`, o.columns, o.table, ownerColumn, column)
	return o.scanOne(o.db.QueryRowContext(ctx, query, userID, value))
}

// ListOwned returns every row owned by userID in the given order.
func (o *Owned[T]) ListOwned(ctx context.Context, userID int64, orderBy string) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, o.columns, o.table, ownerColumn)
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	rows, err := o.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := o.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateOwned inserts a row stamped with userID and returns it.
func (o *Owned[T]) CreateOwned(ctx context.Context, userID int64, fields []Field) (T, error) {
	var zero T
	columns := []string{ownerColumn}
	placeholders := []string{"$1"}
	args := []any{userID}
	for _, f := range fields {
		if f.Column == ownerColumn {
			return zero, errOwnerField
		}
		args = append(args, f.Value)
		columns = append(columns, f.Column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		o.table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		o.columns,
	)
	item, err := o.scan(o.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return zero, translateError(err)
	}
	return item, nil
}

// UpdateOwned applies fields to the row with id owned by userID. It returns
// ErrNotFound when no such row exists for that owner.
func (o *Owned[T]) UpdateOwned(ctx context.Context, id, userID int64, fields []Field) (T, error) {
	var zero T
	if len(fields) == 0 {
		return o.FindOwned(ctx, id, userID)
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		if f.Column == ownerColumn {
			return zero, errOwnerField
		}
		args = append(args, f.Value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}
	args = append(args, id, userID)

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $%d AND %s = $%d RETURNING %s`,
		o.table,
		strings.Join(assignments, ", "),
		len(args)-1,
		ownerColumn,
		len(args),
		o.columns,
	)
	return o.scanOne(o.db.QueryRowContext(ctx, query, args...))
}

// DeleteOwned removes the row with id owned by userID, or returns ErrNotFound.
func (o *Owned[T]) DeleteOwned(ctx context.Context, id, userID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND %s = $2`, o.table, ownerColumn)
	result, err := o.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (o *Owned[T]) scanOne(row Scanner) (T, error) {
	item, err := o.scan(row)
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, translateError(err)
	}
	return item, nil
}
