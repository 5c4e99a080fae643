package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

const (
	msgCategoryNameRequired = "Category name is required"
	msgCategoryNameTooLong  = "Category name must be at most 100 characters"
	msgCategoryExists       = "Category already exists"
	msgCategoryNotFound     = "Category not found"
)

// CategoryRepository defines owner-scoped persistence for categories.
type CategoryRepository interface {
	List(ctx context.Context, userID int64) ([]types.Category, error)
	Get(ctx context.Context, id, userID int64) (types.Category, error)
	GetByName(ctx context.Context, userID int64, name string) (types.Category, error)
	Create(ctx context.Context, userID int64, name string) (types.Category, error)
	Delete(ctx context.Context, id, userID int64) error
}

// CategoryService encapsulates category use-cases for the calling identity.
type CategoryService struct {
	repo   CategoryRepository
	events EventPublisher
}

func NewCategoryService(repo CategoryRepository, events EventPublisher) *CategoryService {
	return &CategoryService{repo: repo, events: events}
}

func (s *CategoryService) List(ctx context.Context, id auth.Identity) ([]types.Category, error) {
	return s.repo.List(ctx, id.UserID)
}

func (s *CategoryService) Get(ctx context.Context, id auth.Identity, categoryID int64) (types.Category, error) {
	category, err := s.repo.Get(ctx, categoryID, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, notFoundError(msgCategoryNotFound)
		}
		return types.Category{}, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, id auth.Identity, name string) (types.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Category{}, validationError(msgCategoryNameRequired)
	}
	if utf8.RuneCountInString(name) > store.MaxCategoryNameLength {
		return types.Category{}, validationError(msgCategoryNameTooLong)
	}

	if _, err := s.repo.GetByName(ctx, id.UserID, name); err == nil {
		return types.Category{}, conflictError(msgCategoryExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Category{}, fmt.Errorf("lookup category: %w", err)
	}

	category, err := s.repo.Create(ctx, id.UserID, name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.Category{}, conflictError(msgCategoryExists)
		case errors.Is(err, store.ErrValueTooLong):
			return types.Category{}, validationError(msgCategoryNameTooLong)
		}
		return types.Category{}, fmt.Errorf("create category: %w", err)
	}

	publishEvent(ctx, s.events, types.EventCategoryCreated, id.UserID, category.ID)
	return category, nil
}

// Delete removes the category; notes filed under it become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, id auth.Identity, categoryID int64) error {
	if err := s.repo.Delete(ctx, categoryID, id.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError(msgCategoryNotFound)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	publishEvent(ctx, s.events, types.EventCategoryDeleted, id.UserID, categoryID)
	return nil
}
