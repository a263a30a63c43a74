package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CategoryService manages the shared default category set and each
// owner's personal categories.
type CategoryService struct {
	storage *storage.SQLiteRepository
}

func NewCategoryService(storage *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{storage: storage}
}

// List returns the default categories plus the owner's personal ones.
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	categories, err := s.storage.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []core.Category{}
	}
	return categories, nil
}

// Get returns a default category or one of the owner's personal ones.
// Another owner's personal category answers Forbidden, matching the
// ledger read policy.
func (s *CategoryService) Get(ctx context.Context, ownerID, id string) (core.Category, error) {
	c, err := s.storage.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if !c.IsDefault && c.OwnerID != ownerID {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrForbidden)
	}
	return c, nil
}

// Create adds a personal category. Missing icon and color fall back to
// neutral defaults.
func (s *CategoryService) Create(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	c.OwnerID = ownerID
	c.IsDefault = false
	if c.Icon == "" {
		c.Icon = core.DefaultIcon
	}
	if c.Color == "" {
		c.Color = core.DefaultColor
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.storage.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Update changes a personal category's display fields. Default
// categories are shared and immutable.
func (s *CategoryService) Update(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	existing, err := s.getEditable(ctx, ownerID, c.ID)
	if err != nil {
		return core.Category{}, err
	}

	if c.Name != "" {
		existing.Name = c.Name
	}
	if c.Icon != "" {
		existing.Icon = c.Icon
	}
	if c.Color != "" {
		existing.Color = c.Color
	}
	if err := existing.Validate(); err != nil {
		return core.Category{}, err
	}

	updated, err := s.storage.UpdateCategory(ctx, existing)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

// Delete removes a personal category.
func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.getEditable(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (s *CategoryService) getEditable(ctx context.Context, ownerID, id string) (core.Category, error) {
	c, err := s.storage.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.IsDefault || c.OwnerID != ownerID {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrForbidden)
	}
	return c, nil
}
