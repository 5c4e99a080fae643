package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/storage"
	"github.com/notekeeper/apiserver/internal/store/memory"
)

const testSecret = "handler-test-secret"

type testAPI struct {
	t      *testing.T
	router http.Handler
	tokens *auth.TokenManager
}

type apiOptions struct {
	exports bool
	dbClock DBClock
}

func newTestAPI(t *testing.T, opts apiOptions) *testAPI {
	t.Helper()

	s := memory.New()
	tokens, err := auth.NewTokenManager(testSecret)
	if err != nil {
		t.Fatalf("NewTokenManager error: %v", err)
	}
	users, err := services.NewUserService(s.Users(), auth.NewPasswordHasher(), tokens, nil)
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}

	var objects services.ObjectStore
	if opts.exports {
		objects = storage.NewStorage(storage.NewMemoryBucket("test"))
	}

	clock := opts.dbClock
	if clock == nil {
		clock = func(context.Context) (time.Time, error) {
			return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}

	router := NewRouter(RouterConfig{
		Logger:     zerolog.Nop(),
		Users:      users,
		Notes:      services.NewNoteService(s.Notes(), s.Categories(), objects, nil),
		Categories: services.NewCategoryService(s.Categories(), nil),
		Tokens:     tokens,
		DBClock:    clock,
	})
	return &testAPI{t: t, router: router, tokens: tokens}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(email string) (string, int64) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("register %s: expected 201, got %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp RegisterResponse
	decode(a.t, rec, &resp)
	return resp.Token, resp.User.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var body map[string]any
	decode(t, rec, &body)
	if len(body) != 1 || body["error"] != message {
		t.Fatalf("expected {error:%q}, got %s", message, rec.Body.String())
	}
}

var errDBDown = errors.New("connection refused")

func httptestRecorder(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}
