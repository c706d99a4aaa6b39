package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"blogme/internal/models"
	"blogme/internal/repository"
	"blogme/internal/validation"
)

const maxBioLen = 500

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput changes only the fields that are set.
type UpdateProfileInput struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// FindUser looks a user up by numeric id or email address.
func (s *UserService) FindUser(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return s.userRepo.GetByID(ctx, uint(id))
	}
	user, err := s.userRepo.GetByEmail(ctx, ref)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", ref)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id *models.Identity, in UpdateProfileInput) (*models.User, error) {
	if id == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to edit your profile")
	}
	user, err := s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && *in.Username != user.Username {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken != nil && taken.ID != user.ID {
			return nil, models.NewConflictError("Username already taken")
		}
		user.Username = username
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = bio
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	if err := s.userRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}
