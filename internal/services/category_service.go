package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// CategoryInput carries the editable category fields.
type CategoryInput struct {
	Name  string
	Icon  string
	Color string
}

// CategoryService manages owner categories and resolves names during imports.
type CategoryService struct {
	store  CategoryStore
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func NewCategoryService(store CategoryStore, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Default()
	}
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent(log.ComponentCategory),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// List returns global and owner categories.
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	return s.store.ListCategories(ctx, ownerID)
}

func (s *CategoryService) Create(ctx context.Context, ownerID string, in CategoryInput) (core.Category, error) {
	c := core.Category{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(in.Name),
		Icon:      in.Icon,
		Color:     in.Color,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// Update edits an owner category. Global categories report not found.
func (s *CategoryService) Update(ctx context.Context, ownerID, id string, in CategoryInput) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, err
	}
	if current.IsGlobal() {
		return core.Category{}, fmt.Errorf("update category: %w", core.ErrCategoryNotFound)
	}
	current.Name = strings.TrimSpace(in.Name)
	current.Icon = in.Icon
	current.Color = in.Color
	if err := s.store.UpdateCategory(ctx, current); err != nil {
		return core.Category{}, err
	}
	return current, nil
}

func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteCategory(ctx, ownerID, id); err != nil {
		if core.IsKind(err, core.KindConflict) {
			s.logger.InfoContext(ctx, "Category delete refused", log.FieldOwnerID, ownerID, log.FieldCategoryID, id)
		}
		return err
	}
	return nil
}

// FindOrCreate resolves name case-insensitively among the owner's and
// global categories and creates an owner category with default icon and
// color when nothing matches.
func (s *CategoryService) FindOrCreate(ctx context.Context, ownerID, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = core.PlaceholderCategory
	}

	existing, ok, err := s.store.FindCategoryByName(ctx, ownerID, name)
	if err != nil {
		return core.Category{}, err
	}
	if ok {
		return existing, nil
	}

	created, err := s.Create(ctx, ownerID, CategoryInput{
		Name:  name,
		Icon:  core.DefaultCategoryIcon,
		Color: core.DefaultCategoryColor,
	})
	if errors.Is(err, core.ErrDuplicateCategory) {
		// created concurrently by another request
		existing, ok, ferr := s.store.FindCategoryByName(ctx, ownerID, name)
		if ferr == nil && ok {
			return existing, nil
		}
	}
	if err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "Category auto-created", log.FieldOwnerID, ownerID, log.FieldCategoryID, created.ID)
	return created, nil
}
