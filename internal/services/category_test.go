package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeeper/apiserver/types"
)

func TestCategoryService_CreateAndList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")

	_, err := f.categories.Create(ctx, alice, " work ")
	require.NoError(t, err)
	_, err = f.categories.Create(ctx, alice, "home")
	require.NoError(t, err)

	list, err := f.categories.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "home", list[0].Name)
	assert.Equal(t, "work", list[1].Name)
}

func TestCategoryService_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")

	_, err := f.categories.Create(ctx, alice, "   ")
	requireKind(t, err, KindValidation, "Category name is required")

	_, err = f.categories.Create(ctx, alice, "work")
	require.NoError(t, err)
	_, err = f.categories.Create(ctx, alice, "work")
	requireKind(t, err, KindConflict, "Category already exists")
}

func TestCategoryService_OwnershipAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	category, err := f.categories.Create(ctx, alice, "work")
	require.NoError(t, err)
	note, err := f.notes.Create(ctx, alice, types.NoteInput{Title: "t", Content: "c", CategoryID: &category.ID})
	require.NoError(t, err)

	_, err = f.categories.Get(ctx, bob, category.ID)
	requireKind(t, err, KindNotFound, "Category not found")
	err = f.categories.Delete(ctx, bob, category.ID)
	requireKind(t, err, KindNotFound, "Category not found")

	require.NoError(t, f.categories.Delete(ctx, alice, category.ID))

	got, err := f.notes.Get(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(notFoundError("x")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, "conflict", KindConflict.String())
}

func TestCategoryService_NameTooLong(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")

	_, err := f.categories.Create(ctx, alice, strings.Repeat("n", 101))
	requireKind(t, err, KindValidation, "Category name must be at most 100 characters")

	_, err = f.categories.Create(ctx, alice, strings.Repeat("n", 100))
	require.NoError(t, err)
}
