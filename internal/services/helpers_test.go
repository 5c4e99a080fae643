package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/store/memory"
	"github.com/notekeeper/apiserver/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event types.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) eventTypes() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	tokens     *auth.TokenManager
	events     *recordingPublisher
	users      *UserService
	notes      *NoteService
	categories *CategoryService
}

func newFixture(t *testing.T, objects ObjectStore) *fixture {
	t.Helper()
	s := memory.New()
	tokens, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)
	events := &recordingPublisher{}

	users, err := NewUserService(s.Users(), auth.NewPasswordHasher(), tokens, events)
	require.NoError(t, err)

	return &fixture{
		store:      s,
		tokens:     tokens,
		events:     events,
		users:      users,
		notes:      NewNoteService(s.Notes(), s.Categories(), objects, events),
		categories: NewCategoryService(s.Categories(), events),
	}
}

func (f *fixture) register(t *testing.T, email string) auth.Identity {
	t.Helper()
	result, err := f.users.Register(context.Background(), email, "secret123")
	require.NoError(t, err)
	return auth.Identity{UserID: result.User.ID, Email: result.User.Email}
}

func requireKind(t *testing.T, err error, kind Kind, message string) {
	t.Helper()
	require.Error(t, err)
	var svcErr *Error
	require.True(t, errors.As(err, &svcErr), "expected *services.Error, got %T: %v", err, err)
	require.Equal(t, kind, svcErr.Kind)
	if message != "" {
		require.Equal(t, message, svcErr.Message)
	}
}
