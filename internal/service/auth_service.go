package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"blogme/internal/cache"
	"blogme/internal/middleware"
	"blogme/internal/models"
	"blogme/internal/repository"
	"blogme/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errCacheUnavailable = errors.New("cache unavailable")

// AuthResult is a signed access token and the user it was issued to.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService struct {
	userRepo   repository.UserRepository
	secret     string
	tokenTTL   time.Duration
	bcryptCost int
}

func NewAuthService(userRepo repository.UserRepository, secret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		secret:     secret,
		tokenTTL:   middleware.TokenTTL,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}
	if taken, err := s.userRepo.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if taken != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Username: in.Username, Email: in.Email, Password: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	return s.issue(user)
}

// Authenticate validates a bearer token and checks it has not been revoked.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*middleware.TokenClaims, error) {
	claims, err := middleware.ParseToken(s.secret, token)
	if err != nil {
		return nil, models.NewUnauthenticatedError(err.Error())
	}
	if s.IsRevoked(ctx, claims.JTI) {
		return nil, models.NewUnauthenticatedError("Token has been revoked")
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.TokenClaims) error {
	if claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if cache.GetClient() == nil {
		middleware.Logger.WarnContext(ctx, "token revocation skipped, cache unavailable",
			slog.Uint64("user_id", uint64(claims.UserID)))
		return nil
	}
	if err := cache.SetJSON(ctx, cache.TokenBlacklistKey(claims.JTI), true, ttl); err != nil {
		return models.NewRemoteOperationError(err)
	}
	return nil
}

func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	var revoked bool
	found, err := cache.GetJSON(ctx, cache.TokenBlacklistKey(jti), &revoked)
	return err == nil && found && revoked
}

// Refresh swaps a valid token for a new one and revokes the old.
func (s *AuthService) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewUnauthenticatedError("User no longer exists")
		}
		return nil, err
	}
	out, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Logout(ctx, claims); err != nil {
		return nil, err
	}
	return out, nil
}

// Session returns the user behind a restored session.
func (s *AuthService) Session(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewUnauthenticatedError("User no longer exists")
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset stores a one-hour reset token for the address. Unknown
// addresses succeed without a token so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	if cache.GetClient() == nil {
		return "", models.NewRemoteOperationError(errCacheUnavailable)
	}

	token := uuid.NewString()
	if err := cache.SetJSON(ctx, cache.PasswordResetKey(token), user.ID, cache.PasswordResetTTL); err != nil {
		return "", models.NewRemoteOperationError(err)
	}
	// No mail transport: the delivery is the log line.
	middleware.Logger.InfoContext(ctx, "password reset requested",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("reset_path", "/reset-password?token="+token))
	return token, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	var userID uint
	found, err := cache.GetJSON(ctx, cache.PasswordResetKey(token), &userID)
	if err != nil {
		return models.NewRemoteOperationError(err)
	}
	if !found || userID == 0 {
		return models.NewValidationError("Invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.PasswordResetKey(token))
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, claims, err := middleware.IssueToken(s.secret, user.ID, user.Username, s.tokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}
