package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeeper/apiserver/internal/storage"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

func TestNoteService_CreateStampsOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")

	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "  groceries ", Content: " milk "})
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, note.UserID)
	assert.Equal(t, "groceries", note.Title)
	assert.Equal(t, "milk", note.Content)
	assert.Nil(t, note.CategoryID)
}

func TestNoteService_CreateRequiresFields(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.register(t, "alice@example.com")

	_, err := f.notes.Create(context.Background(), alice, types.NoteInput{Title: "  ", Content: "x"})
	requireKind(t, err, KindValidation, "Title and content are required")
}

func TestNoteService_CrossUserAccessIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = f.notes.Get(ctx, bob, note.ID)
	requireKind(t, err, KindNotFound, "Note not found")

	_, err = f.notes.Update(ctx, bob, note.ID, types.NoteInput{Title: "x", Content: "y"})
	requireKind(t, err, KindNotFound, "Note not found")

	err = f.notes.Delete(ctx, bob, note.ID)
	requireKind(t, err, KindNotFound, "Note not found")

	_, err = f.notes.Get(ctx, alice, 9999)
	requireKind(t, err, KindNotFound, "Note not found")

	got, err := f.notes.Get(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestNoteService_ForeignCategoryIsBadRequest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	aliceCategory, err := f.categories.Create(ctx, alice, "work")
	require.NoError(t, err)

	_, err = f.notes.Create(ctx, bob, types.NoteInput{Title: "t", Content: "c", CategoryID: &aliceCategory.ID})
	requireKind(t, err, KindValidation, "Invalid category_id for this user")

	missing := int64(4242)
	_, err = f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c", CategoryID: &missing})
	requireKind(t, err, KindValidation, "Invalid category_id for this user")

	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c", CategoryID: &aliceCategory.ID})
	require.NoError(t, err)
	require.NotNil(t, note.CategoryID)
	assert.Equal(t, aliceCategory.ID, *note.CategoryID)
}

func TestNoteService_UpdateCheckOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	bobCategory, err := f.categories.Create(ctx, bob, "private")
	require.NoError(t, err)
	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	// Ownership wins over every other failure.
	_, err = f.notes.Update(ctx, bob, note.ID, types.NoteInput{CategoryID: &bobCategory.ID})
	requireKind(t, err, KindNotFound, "Note not found")

	// Category is checked before the fields.
	_, err = f.notes.Update(ctx, alice, note.ID, types.NoteInput{CategoryID: &bobCategory.ID})
	requireKind(t, err, KindValidation, "Invalid category_id for this user")

	_, err = f.notes.Update(ctx, alice, note.ID, types.NoteInput{Title: "only title"})
	requireKind(t, err, KindValidation, "Title and content are required")

	updated, err := f.notes.Update(ctx, alice, note.ID, types.NoteInput{Title: " new ", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "body", updated.Content)
}

func TestNoteService_DeleteAndEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")

	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c"})
	require.NoError(t, err)
	_, err = f.notes.Update(ctx, alice, note.ID, types.NoteInput{Title: "t2", Content: "c2"})
	require.NoError(t, err)
	require.NoError(t, f.notes.Delete(ctx, alice, note.ID))

	err = f.notes.Delete(ctx, alice, note.ID)
	requireKind(t, err, KindNotFound, "Note not found")

	assert.Equal(t, []types.EventType{
		types.EventUserRegistered,
		types.EventNoteCreated,
		types.EventNoteUpdated,
		types.EventNoteDeleted,
	}, f.events.eventTypes())
}

func TestNoteService_ExportDisabled(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.register(t, "alice@example.com")

	assert.False(t, f.notes.ExportsEnabled())
	_, err := f.notes.Export(context.Background(), alice)
	assert.ErrorIs(t, err, ErrExportsDisabled)
}

func TestNoteService_ExportRoundTripIsOwnerScoped(t *testing.T) {
	objects := storage.NewStorage(storage.NewMemoryBucket("exports-test"))
	f := newFixture(t, objects)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	_, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	export, err := f.notes.Export(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "exports/1/"+export.ID+".json", export.Key)

	reader, err := f.notes.OpenExport(ctx, alice, export.ID)
	require.NoError(t, err)
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	require.NoError(t, err)

	var doc exportDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, alice.UserID, doc.UserID)
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, "t", doc.Notes[0].Title)

	_, err = f.notes.OpenExport(ctx, bob, export.ID)
	requireKind(t, err, KindNotFound, "Export not found")

	_, err = f.notes.OpenExport(ctx, alice, "../../etc/passwd")
	requireKind(t, err, KindNotFound, "Export not found")
}

func TestNoteService_TitleLengthCountsCharacters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")

	longest := strings.Repeat("é", 255)
	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: longest, Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, longest, note.Title)

	_, err = f.notes.Create(ctx, alice, types.NoteInput{Title: longest + "x", Content: "c"})
	requireKind(t, err, KindValidation, "Title must be at most 255 characters")

	_, err = f.notes.Update(ctx, alice, note.ID, types.NoteInput{Title: strings.Repeat("t", 256), Content: "c"})
	requireKind(t, err, KindValidation, "Title must be at most 255 characters")
}

// truncatingNoteRepo rejects every write the way Postgres does for an
// oversized VARCHAR value.
type truncatingNoteRepo struct {
	NoteRepository
}

func (truncatingNoteRepo) Create(context.Context, int64, types.NoteInput) (types.Note, error) {
	return types.Note{}, store.ErrValueTooLong
}

func TestNoteService_StoreLengthErrorIsValidation(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.register(t, "alice@example.com")
	svc := NewNoteService(truncatingNoteRepo{}, f.store.Categories(), nil, nil)

	_, err := svc.Create(context.Background(), alice, types.NoteInput{Title: "t", Content: "c"})
	requireKind(t, err, KindValidation, "Title must be at most 255 characters")
}
