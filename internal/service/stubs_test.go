package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"blogme/internal/models"
	"blogme/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint) (*models.Post, error)
	listFn         func(context.Context, repository.PostFilter) ([]models.Post, int64, error)
	listByAuthorFn func(context.Context, uint) ([]models.Post, error)
	relatedFn      func(context.Context, *models.Post, int) ([]models.Post, error)
	updateFn       func(context.Context, *models.Post) error
	deleteFn       func(context.Context, uint) error
	incrementFn    func(context.Context, uint, models.Counter, int) error
	getAccessFn    func(context.Context, uint) (*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.PostFilter) ([]models.Post, int64, error) {
	return s.listFn(ctx, filter)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	return s.listByAuthorFn(ctx, authorID)
}
func (s *postRepoStub) Related(ctx context.Context, post *models.Post, limit int) ([]models.Post, error) {
	return s.relatedFn(ctx, post, limit)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementCounter(ctx context.Context, id uint, counter models.Counter, delta int) error {
	return s.incrementFn(ctx, id, counter, delta)
}
func (s *postRepoStub) GetAccess(ctx context.Context, id uint) (*models.Post, error) {
	return s.getAccessFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Status: models.PostStatusPublished}, nil
		},
		listFn:         func(_ context.Context, _ repository.PostFilter) ([]models.Post, int64, error) { return nil, 0, nil },
		listByAuthorFn: func(_ context.Context, _ uint) ([]models.Post, error) { return nil, nil },
		relatedFn:      func(_ context.Context, _ *models.Post, _ int) ([]models.Post, error) { return nil, nil },
		updateFn:       func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		incrementFn:    func(_ context.Context, _ uint, _ models.Counter, _ int) error { return nil },
		getAccessFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Status: models.PostStatusPublished}, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn       func(context.Context, *models.Comment) error
	getByIDFn      func(context.Context, uint) (*models.Comment, error)
	listTopLevelFn func(context.Context, uint, int, int) ([]models.Comment, int64, error)
	listRepliesFn  func(context.Context, uint) ([]models.Comment, error)
	countRepliesFn func(context.Context, []uint) (map[uint]int, error)
	deleteFn       func(context.Context, *models.Comment) error
	createdAtFn    func(context.Context, []uint, time.Time) ([]time.Time, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListTopLevel(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error) {
	return s.listTopLevelFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) ListReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	return s.listRepliesFn(ctx, parentID)
}
func (s *commentRepoStub) CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error) {
	return s.countRepliesFn(ctx, parentIDs)
}
func (s *commentRepoStub) Delete(ctx context.Context, comment *models.Comment) error {
	return s.deleteFn(ctx, comment)
}
func (s *commentRepoStub) CreatedAtForPosts(ctx context.Context, postIDs []uint, since time.Time) ([]time.Time, error) {
	return s.createdAtFn(ctx, postIDs, since)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:  func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listTopLevelFn: func(_ context.Context, _ uint, _, _ int) ([]models.Comment, int64, error) {
			return nil, 0, nil
		},
		listRepliesFn:  func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
		countRepliesFn: func(_ context.Context, _ []uint) (map[uint]int, error) { return map[uint]int{}, nil },
		deleteFn:       func(_ context.Context, _ *models.Comment) error { return nil },
		createdAtFn:    func(_ context.Context, _ []uint, _ time.Time) ([]time.Time, error) { return nil, nil },
	}
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	getStateFn       func(context.Context, uint, uint) (models.ReactionState, error)
	toggleLikeFn     func(context.Context, uint, uint) (repository.ToggleOutcome, error)
	toggleBookmarkFn func(context.Context, uint, uint) (repository.ToggleOutcome, error)
	setReactionFn    func(context.Context, uint, uint, models.ReactionTag) (*models.ReactionTag, error)
	listTagsFn       func(context.Context, uint) ([]models.ReactionTag, error)
	likedAtFn        func(context.Context, []uint, time.Time) ([]time.Time, error)
}

func (s *reactionRepoStub) GetState(ctx context.Context, postID, userID uint) (models.ReactionState, error) {
	return s.getStateFn(ctx, postID, userID)
}
func (s *reactionRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (repository.ToggleOutcome, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *reactionRepoStub) ToggleBookmark(ctx context.Context, postID, userID uint) (repository.ToggleOutcome, error) {
	return s.toggleBookmarkFn(ctx, postID, userID)
}
func (s *reactionRepoStub) SetReaction(ctx context.Context, postID, userID uint, tag models.ReactionTag) (*models.ReactionTag, error) {
	return s.setReactionFn(ctx, postID, userID, tag)
}
func (s *reactionRepoStub) ListTags(ctx context.Context, postID uint) ([]models.ReactionTag, error) {
	return s.listTagsFn(ctx, postID)
}
func (s *reactionRepoStub) LikedAtForPosts(ctx context.Context, postIDs []uint, since time.Time) ([]time.Time, error) {
	return s.likedAtFn(ctx, postIDs, since)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		getStateFn: func(_ context.Context, _, _ uint) (models.ReactionState, error) { return models.ReactionState{}, nil },
		toggleLikeFn: func(_ context.Context, _, _ uint) (repository.ToggleOutcome, error) {
			return repository.ToggleOutcome{Active: true, Count: 1}, nil
		},
		toggleBookmarkFn: func(_ context.Context, _, _ uint) (repository.ToggleOutcome, error) {
			return repository.ToggleOutcome{Active: true, Count: 1}, nil
		},
		setReactionFn: func(_ context.Context, _, _ uint, tag models.ReactionTag) (*models.ReactionTag, error) {
			return &tag, nil
		},
		listTagsFn: func(_ context.Context, _ uint) ([]models.ReactionTag, error) { return nil, nil },
		likedAtFn:  func(_ context.Context, _ []uint, _ time.Time) ([]time.Time, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	createFn         func(context.Context, *models.User) error
	updateFn         func(context.Context, *models.User) error
	updatePasswordFn func(context.Context, uint, string) error
	setAdminFn       func(context.Context, uint, bool) error
	listFn           func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	return s.setAdminFn(ctx, id, isAdmin)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:        func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:     func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn:  func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:         func(_ context.Context, _ *models.User) error { return nil },
		updateFn:         func(_ context.Context, _ *models.User) error { return nil },
		updatePasswordFn: func(_ context.Context, _ uint, _ string) error { return nil },
		setAdminFn:       func(_ context.Context, _ uint, _ bool) error { return nil },
		listFn:           func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	listFn           func(context.Context) ([]models.Category, error)
	getByIDFn        func(context.Context, uint) (*models.Category, error)
	getByNameFn      func(context.Context, string) (*models.Category, error)
	ensureDefaultsFn func(context.Context, []string) (int64, error)
}

func (s *categoryRepoStub) List(ctx context.Context) ([]models.Category, error) {
	return s.listFn(ctx)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return s.getByNameFn(ctx, name)
}
func (s *categoryRepoStub) EnsureDefaults(ctx context.Context, names []string) (int64, error) {
	return s.ensureDefaultsFn(ctx, names)
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		listFn:           func(_ context.Context) ([]models.Category, error) { return nil, nil },
		getByIDFn:        func(_ context.Context, id uint) (*models.Category, error) { return &models.Category{ID: id}, nil },
		getByNameFn:      func(_ context.Context, _ string) (*models.Category, error) { return nil, nil },
		ensureDefaultsFn: func(_ context.Context, _ []string) (int64, error) { return 0, nil },
	}
}

// assertErrorCode asserts that err is an AppError with the given code.
func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeValidation)
}

func assertUnauthenticatedError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeUnauthenticated)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeForbidden)
}

func uintPtr(v uint) *uint { return &v }
