package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/store/memory"
	"github.com/notekeeper/apiserver/types"
)

type brokenUserRepo struct{}

func (brokenUserRepo) GetByEmail(context.Context, string) (types.User, error) {
	return types.User{}, errDBDown
}

func (brokenUserRepo) Create(context.Context, types.User) (types.User, error) {
	return types.User{}, errDBDown
}

// brokenNoteRepo fails every call with err.
type brokenNoteRepo struct {
	err error
}

func (r brokenNoteRepo) List(context.Context, int64) ([]types.Note, error) { return nil, r.err }
func (r brokenNoteRepo) Get(context.Context, int64, int64) (types.Note, error) {
	return types.Note{}, r.err
}
func (r brokenNoteRepo) Create(context.Context, int64, types.NoteInput) (types.Note, error) {
	return types.Note{}, r.err
}
func (r brokenNoteRepo) Update(context.Context, int64, int64, types.NoteInput) (types.Note, error) {
	return types.Note{}, r.err
}
func (r brokenNoteRepo) Delete(context.Context, int64, int64) error { return r.err }

func newBrokenAPI(t *testing.T, noteErr error) (*testAPI, string) {
	t.Helper()

	tokens, err := auth.NewTokenManager(testSecret)
	if err != nil {
		t.Fatalf("NewTokenManager error: %v", err)
	}
	users, err := services.NewUserService(brokenUserRepo{}, auth.NewPasswordHasher(), tokens, nil)
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}
	s := memory.New()

	router := NewRouter(RouterConfig{
		Logger:     zerolog.Nop(),
		Users:      users,
		Notes:      services.NewNoteService(brokenNoteRepo{err: noteErr}, s.Categories(), nil, nil),
		Categories: services.NewCategoryService(s.Categories(), nil),
		Tokens:     tokens,
		DBClock: func(context.Context) (time.Time, error) {
			return time.Time{}, errDBDown
		},
	})

	token, err := tokens.Issue(1, "alice@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return &testAPI{t: t, router: router, tokens: tokens}, token
}

func TestStoreFailuresReturnGenericBody(t *testing.T) {
	api, token := newBrokenAPI(t, fmt.Errorf("list notes: %w", errDBDown))

	rec := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	expectError(t, rec, http.StatusInternalServerError, "Internal server error")

	rec = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	expectError(t, rec, http.StatusInternalServerError, "Internal server error")

	rec = api.do(http.MethodGet, "/api/notes", token, nil)
	expectError(t, rec, http.StatusInternalServerError, "Internal server error")

	rec = api.do(http.MethodDelete, "/api/notes/1", token, nil)
	expectError(t, rec, http.StatusInternalServerError, "Internal server error")
}

func TestDeadlineExceededIsGatewayTimeout(t *testing.T) {
	api, token := newBrokenAPI(t, fmt.Errorf("list notes: %w", context.DeadlineExceeded))

	rec := api.do(http.MethodGet, "/api/notes", token, nil)
	expectError(t, rec, http.StatusGatewayTimeout, "Request timed out")
}

func TestRequestDeadline(t *testing.T) {
	var remaining time.Duration
	handler := requestDeadline(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Fatal("expected a deadline on the request context")
		}
		remaining = time.Until(deadline)
	}))
	httptestRecorder(handler, http.MethodGet, "/")

	if remaining <= 0 || remaining > time.Second {
		t.Fatalf("unexpected remaining time %s", remaining)
	}
	if requestTimeout >= 15*time.Second {
		t.Fatalf("requestTimeout %s must stay below the server write timeout", requestTimeout)
	}
}

func TestRequestIDHeaderIsReturned(t *testing.T) {
	api := newTestAPI(t, apiOptions{})

	rec := api.do(http.MethodGet, "/health", "", nil)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id response header")
	}
}
