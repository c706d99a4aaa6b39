package repository

import (
	"context"
	"testing"
	"time"

	"blogme/internal/models"
	"blogme/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListTopLevel_CountMatchesSlice(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "alice")
	post := testutil.SeedPost(t, db, author, nil, "Threads")
	other := testutil.SeedPost(t, db, author, nil, "Elsewhere")

	top := testutil.SeedComments(t, db, post, author, nil, 12)
	testutil.SeedComments(t, db, post, author, &top[0].ID, 4)
	testutil.SeedComments(t, db, other, author, nil, 3)

	items, total, err := repo.ListTopLevel(ctx, post.ID, 5, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	require.Len(t, items, 2)
	// newest first: the last page holds the two oldest
	assert.Equal(t, top[1].ID, items[0].ID)
	assert.Equal(t, top[0].ID, items[1].ID)
	for _, c := range items {
		assert.Nil(t, c.ParentID)
		assert.Equal(t, "alice", c.User.Username)
	}
}

func TestCommentRepository_CreateAndDeleteMoveCounter(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "bob")
	post := testutil.SeedPost(t, db, author, nil, "Counters")

	c := &models.Comment{Content: "first", UserID: author.ID, PostID: post.ID}
	require.NoError(t, repo.Create(ctx, c))
	require.NotZero(t, c.ID)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, 1, reloaded.CommentsCount)

	require.NoError(t, repo.Delete(ctx, c))
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, 0, reloaded.CommentsCount)

	err := repo.Delete(ctx, c)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, 0, reloaded.CommentsCount, "counter never goes below zero")
}

func TestCommentRepository_RepliesSurviveParentDeletion(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "carol")
	post := testutil.SeedPost(t, db, author, nil, "Orphans")
	parent := testutil.SeedComments(t, db, post, author, nil, 1)[0]
	replies := testutil.SeedComments(t, db, post, author, &parent.ID, 3)

	require.NoError(t, repo.Delete(ctx, &parent))

	got, err := repo.ListReplies(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, replies[0].ID, got[0].ID, "replies are oldest first")

	counts, err := repo.CountReplies(ctx, []uint{parent.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[parent.ID])
	assert.Equal(t, 0, counts[999])
}

func TestCommentRepository_CreatedAtForPosts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db, "dave")
	post := testutil.SeedPost(t, db, author, nil, "Trend")
	testutil.SeedComments(t, db, post, author, nil, 2)

	times, err := repo.CreatedAtForPosts(ctx, []uint{post.ID}, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, times, 2)

	times, err = repo.CreatedAtForPosts(ctx, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, times)
}
