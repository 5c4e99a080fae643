package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/notekeeper/apiserver/types"
)

var categoryColumns = []string{"id", "user_id", "name", "created_at"}

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	owned *Owned[types.Category]
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{
		owned: NewOwned(db, "categories", categoryColumns, scanCategory),
	}
}

// List returns the user's categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context, userID int64) ([]types.Category, error) {
	return r.owned.ListOwned(ctx, userID, "name ASC")
}

func (r *CategoryRepository) Get(ctx context.Context, id, userID int64) (types.Category, error) {
	return r.owned.FindOwned(ctx, id, userID)
}

func (r *CategoryRepository) GetByName(ctx context.Context, userID int64, name string) (types.Category, error) {
	return r.owned.FindOwnedBy(ctx, userID, "name", name)
}

// Create inserts a category. A duplicate name for the same owner surfaces
// as ErrConflict.
func (r *CategoryRepository) Create(ctx context.Context, userID int64, name string) (types.Category, error) {
	return r.owned.CreateOwned(ctx, userID, []Field{
		{Column: "name", Value: name},
		{Column: "created_at", Value: time.Now().UTC()},
	})
}

func (r *CategoryRepository) Delete(ctx context.Context, id, userID int64) error {
	return r.owned.DeleteOwned(ctx, id, userID)
}

func scanCategory(s Scanner) (types.Category, error) {
	var category types.Category
	if err := s.Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.CreatedAt,
	); err != nil {
		return types.Category{}, err
	}
	return category, nil
}
