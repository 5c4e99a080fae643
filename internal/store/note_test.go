package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/notekeeper/apiserver/types"
)

func newNoteRepoWithMock(t *testing.T) (*NoteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewNoteRepository(db), mock
}

func int64Ptr(v int64) *int64 { return &v }

func TestNoteRepository_ListJoinsCategoriesForOwner(t *testing.T) {
	repo, mock := newNoteRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)LEFT JOIN categories c ON n.category_id = c.id AND c.user_id = n.user_id\s+WHERE n.user_id = \$1\s+ORDER BY n.updated_at DESC`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category_id", "title", "content", "created_at", "updated_at", "category_name"}).
			AddRow(int64(2), int64(1), int64(7), "b", "body b", now, now, "work").
			AddRow(int64(1), int64(1), nil, "a", "body a", now, now, nil))

	notes, err := repo.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].CategoryID == nil || *notes[0].CategoryID != 7 || notes[0].CategoryName == nil || *notes[0].CategoryName != "work" {
		t.Fatalf("unexpected first note: %+v", notes[0])
	}
	if notes[1].CategoryID != nil || notes[1].CategoryName != nil {
		t.Fatalf("expected uncategorized second note: %+v", notes[1])
	}
}

func TestNoteRepository_CreateWithoutCategory(t *testing.T) {
	repo, mock := newNoteRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(exact(`INSERT INTO notes (user_id, category_id, title, content, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, user_id, category_id, title, content, created_at, updated_at`)).
		WithArgs(int64(1), nil, "title", "content", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(int64(3), int64(1), nil, "title", "content", now, now))

	note, err := repo.Create(context.Background(), 1, types.NoteInput{Title: "title", Content: "content"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if note.ID != 3 || note.UserID != 1 || note.CategoryID != nil {
		t.Fatalf("unexpected note: %+v", note)
	}
}

func TestNoteRepository_CreateForeignKeyViolation(t *testing.T) {
	repo, mock := newNoteRepoWithMock(t)

	mock.ExpectQuery(`^INSERT INTO notes`).
		WithArgs(int64(1), int64(99), "t", "c", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := repo.Create(context.Background(), 1, types.NoteInput{Title: "t", Content: "c", CategoryID: int64Ptr(99)})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("want ErrInvalidReference, got %v", err)
	}
}

func TestNoteRepository_StringTooLongIsValueTooLong(t *testing.T) {
	repo, mock := newNoteRepoWithMock(t)

	mock.ExpectQuery(`^INSERT INTO notes`).
		WillReturnError(&pq.Error{Code: "22001"})
	mock.ExpectQuery(`^UPDATE notes`).
		WillReturnError(&pq.Error{Code: "22001"})

	_, err := repo.Create(context.Background(), 1, types.NoteInput{Title: "t", Content: "c"})
	if !errors.Is(err, ErrValueTooLong) {
		t.Fatalf("Create: want ErrValueTooLong, got %v", err)
	}
	_, err = repo.Update(context.Background(), 3, 1, types.NoteInput{Title: "t", Content: "c"})
	if !errors.Is(err, ErrValueTooLong) {
		t.Fatalf("Update: want ErrValueTooLong, got %v", err)
	}
}

func TestNoteRepository_UpdateFiltersByOwner(t *testing.T) {
	repo, mock := newNoteRepoWithMock(t)

	mock.ExpectQuery(exact(`UPDATE notes SET title = $1, content = $2, category_id = $3, updated_at = $4 WHERE id = $5 AND user_id = $6 RETURNING id, user_id, category_id, title, content, created_at, updated_at`)).
		WithArgs("t", "c", int64(7), sqlmock.AnyArg(), int64(3), int64(2)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), 3, 2, types.NoteInput{Title: "t", Content: "c", CategoryID: int64Ptr(7)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestNoteRepository_GetAndDelete(t *testing.T) {
	repo, mock := newNoteRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(exact(`SELECT id, user_id, category_id, title, content, created_at, updated_at FROM notes WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(3), int64(1)).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(int64(3), int64(1), int64(4), "t", "c", now, now))
	mock.ExpectExec(exact(`DELETE FROM notes WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	note, err := repo.Get(context.Background(), 3, 1)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if note.CategoryID == nil || *note.CategoryID != 4 {
		t.Fatalf("unexpected note: %+v", note)
	}
	if err := repo.Delete(context.Background(), 3, 1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}
