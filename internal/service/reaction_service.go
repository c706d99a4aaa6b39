package service

import (
	"context"
	"errors"

	"blogme/internal/cache"
	"blogme/internal/models"
	"blogme/internal/observability"
	"blogme/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Reaction kinds for metrics and events.
const (
	ReactionKindLike     = "like"
	ReactionKindBookmark = "bookmark"
	ReactionKindEmoji    = "reaction"
)

// ReactionService maintains per-user reaction state and per-post aggregates.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
}

func NewReactionService(reactionRepo repository.ReactionRepository, postRepo repository.PostRepository) *ReactionService {
	return &ReactionService{reactionRepo: reactionRepo, postRepo: postRepo}
}

// GetUserReactionState never fails for missing records; userID 0 gets the empty state.
func (s *ReactionService) GetUserReactionState(ctx context.Context, postID, userID uint) (models.ReactionState, error) {
	var state models.ReactionState
	if userID == 0 {
		return state, nil
	}
	err := cache.Aside(ctx, cache.ReactionStateKey(postID, userID), &state, cache.ReactionStateTTL, func() error {
		var err error
		state, err = s.reactionRepo.GetState(ctx, postID, userID)
		return err
	})
	if err != nil {
		return models.ReactionState{}, err
	}
	return state, nil
}

func (s *ReactionService) ToggleLike(ctx context.Context, id *models.Identity, postID uint) (repository.ToggleOutcome, error) {
	return s.toggle(ctx, id, postID, ReactionKindLike, s.reactionRepo.ToggleLike)
}

func (s *ReactionService) ToggleBookmark(ctx context.Context, id *models.Identity, postID uint) (repository.ToggleOutcome, error) {
	return s.toggle(ctx, id, postID, ReactionKindBookmark, s.reactionRepo.ToggleBookmark)
}

func (s *ReactionService) toggle(
	ctx context.Context,
	id *models.Identity,
	postID uint,
	kind string,
	fn func(context.Context, uint, uint) (repository.ToggleOutcome, error),
) (repository.ToggleOutcome, error) {
	if id == nil {
		return repository.ToggleOutcome{}, models.NewUnauthenticatedError("You must be logged in to react")
	}
	if err := s.ensurePost(ctx, id, postID); err != nil {
		return repository.ToggleOutcome{}, err
	}

	ctx, end := observability.StartSpan(ctx, "reactions", "toggle_"+kind,
		attribute.Int("post.id", int(postID)), attribute.Int("user.id", int(id.UserID)))
	out, err := fn(ctx, postID, id.UserID)
	end(err)
	observability.RecordReaction(kind, err)
	if err != nil {
		return repository.ToggleOutcome{}, models.NewReactionUpdateError(err)
	}

	cache.InvalidateReactions(ctx, postID, id.UserID)
	return out, nil
}

// SetReaction sets, replaces or clears (same tag twice) the user's emoji reaction.
func (s *ReactionService) SetReaction(ctx context.Context, id *models.Identity, postID uint, rawTag string) (models.ReactionState, error) {
	if id == nil {
		return models.ReactionState{}, models.NewUnauthenticatedError("You must be logged in to react")
	}
	tag, ok := models.ParseReactionTag(rawTag)
	if !ok {
		return models.ReactionState{}, models.NewValidationError("Unknown reaction tag")
	}
	if err := s.ensurePost(ctx, id, postID); err != nil {
		return models.ReactionState{}, err
	}

	ctx, end := observability.StartSpan(ctx, "reactions", "set_reaction",
		attribute.Int("post.id", int(postID)), attribute.String("reaction.tag", string(tag)))
	_, err := s.reactionRepo.SetReaction(ctx, postID, id.UserID, tag)
	end(err)
	observability.RecordReaction(ReactionKindEmoji, err)
	if err != nil {
		return models.ReactionState{}, models.NewReactionUpdateError(err)
	}

	cache.InvalidateReactions(ctx, postID, id.UserID)
	state, err := s.reactionRepo.GetState(ctx, postID, id.UserID)
	if err != nil {
		return models.ReactionState{}, models.NewReactionUpdateError(err)
	}
	return state, nil
}

// GetAggregateCounts tallies reactions on a post by tag. Every known tag is present.
func (s *ReactionService) GetAggregateCounts(ctx context.Context, postID uint) (map[models.ReactionTag]int, error) {
	counts := make(map[models.ReactionTag]int, len(models.ReactionTags))
	err := cache.Aside(ctx, cache.ReactionCountsKey(postID), &counts, cache.ReactionCountsTTL, func() error {
		tags, err := s.reactionRepo.ListTags(ctx, postID)
		if err != nil {
			return err
		}
		counts = TallyReactions(tags)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// TallyReactions counts tags, starting every known tag at zero. Unknown tags are ignored.
func TallyReactions(tags []models.ReactionTag) map[models.ReactionTag]int {
	counts := make(map[models.ReactionTag]int, len(models.ReactionTags))
	for _, known := range models.ReactionTags {
		counts[known] = 0
	}
	for _, tag := range tags {
		if _, known := counts[tag]; known {
			counts[tag]++
		}
	}
	return counts
}

func (s *ReactionService) ensurePost(ctx context.Context, id *models.Identity, postID uint) error {
	_, err := visiblePost(ctx, s.postRepo, postID, id)
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeRemoteOperationFailed {
		return models.NewReactionUpdateError(appErr.Err)
	}
	return err
}
