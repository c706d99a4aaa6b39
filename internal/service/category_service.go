package service

import (
	"context"
	"errors"
	"log/slog"

	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/repository"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// Resolve turns a client category reference into a category id. An unset ref
// resolves to nil; an unknown name or id is a validation error.
func (s *CategoryService) Resolve(ctx context.Context, ref models.CategoryRef) (*uint, error) {
	switch ref.Kind {
	case models.CategoryNamed:
		c, err := s.categoryRepo.GetByName(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, models.NewValidationError("Unknown category: " + ref.Name)
		}
		return &c.ID, nil
	case models.CategoryReference:
		c, err := s.categoryRepo.GetByID(ctx, ref.ID)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
				return nil, models.NewValidationError("Unknown category")
			}
			return nil, err
		}
		return &c.ID, nil
	default:
		return nil, nil
	}
}

// SeedDefaults makes sure every default category exists. It is safe to run repeatedly.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int64, error) {
	created, err := s.categoryRepo.EnsureDefaults(ctx, models.DefaultCategories)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		middleware.Logger.InfoContext(ctx, "seeded default categories", slog.Int64("created", created))
	}
	return created, nil
}
