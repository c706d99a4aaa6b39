package repository

import (
	"context"
	"sync"
	"testing"

	"blogme/internal/models"
	"blogme/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionRepository_ToggleLikeTwiceRestoresState(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "gina")
	post := testutil.SeedPost(t, db, user, nil, "Toggle")

	first, err := repo.ToggleLike(ctx, post.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleOutcome{Active: true, Count: 1}, first)

	second, err := repo.ToggleLike(ctx, post.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleOutcome{Active: false, Count: 0}, second)

	var n int64
	require.NoError(t, db.Model(&models.UserLike{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestReactionRepository_ConcurrentTogglesKeepOneRecord(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "hank")
	post := testutil.SeedPost(t, db, user, nil, "Race")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.ToggleBookmark(ctx, post.ID, user.ID)
		}()
	}
	wg.Wait()

	var rows int64
	require.NoError(t, db.Model(&models.UserBookmark{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)

	assert.LessOrEqual(t, rows, int64(1))
	assert.EqualValues(t, rows, reloaded.BookmarksCount, "counter matches surviving records")
}

func TestReactionRepository_SetReactionRules(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "iris")
	post := testutil.SeedPost(t, db, user, nil, "Feelings")

	tag, err := repo.SetReaction(ctx, post.ID, user.ID, models.ReactionLove)
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, models.ReactionLove, *tag)

	tag, err = repo.SetReaction(ctx, post.ID, user.ID, models.ReactionLove)
	require.NoError(t, err)
	assert.Nil(t, tag, "same tag toggles off")

	_, err = repo.SetReaction(ctx, post.ID, user.ID, models.ReactionWow)
	require.NoError(t, err)
	tag, err = repo.SetReaction(ctx, post.ID, user.ID, models.ReactionLaugh)
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, models.ReactionLaugh, *tag)

	var rows []models.UserReaction
	require.NoError(t, db.Where("post_id = ? AND user_id = ?", post.ID, user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ReactionLaugh, rows[0].Tag)

	tags, err := repo.ListTags(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ReactionTag{models.ReactionLaugh}, tags)
}

func TestReactionRepository_GetStateDefaults(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReactionRepository(db)

	state, err := repo.GetState(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionState{}, state)
}
