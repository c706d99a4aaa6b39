package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogme/internal/models"
	"blogme/internal/repository"
	"blogme/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_PostComment_Validation(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), noopPostRepo())
	ctx := context.Background()
	me := models.NewIdentity(1, false)

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		_, err := svc.PostComment(ctx, nil, PostCommentInput{PostID: 1, Content: "hi"})
		assertUnauthenticatedError(t, err)
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		_, err := svc.PostComment(ctx, me, PostCommentInput{PostID: 1, Content: "   "})
		assertValidationError(t, err)
	})

	t.Run("markup only", func(t *testing.T) {
		t.Parallel()
		_, err := svc.PostComment(ctx, me, PostCommentInput{PostID: 1, Content: "<script>x</script>"})
		assertValidationError(t, err)
	})

	t.Run("content too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.PostComment(ctx, me, PostCommentInput{PostID: 1, Content: strings.Repeat("x", 10001)})
		assertValidationError(t, err)
	})

	t.Run("post not found propagates repo error", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getAccessFn = func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc2 := NewCommentService(noopCommentRepo(), postRepo)
		_, err := svc2.PostComment(ctx, me, PostCommentInput{PostID: 99, Content: "hi"})
		assertErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("parent on another post", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 2}, nil
		}
		svc2 := NewCommentService(commentRepo, noopPostRepo())
		_, err := svc2.PostComment(ctx, me, PostCommentInput{PostID: 1, Content: "hi", ParentID: uintPtr(5)})
		assertValidationError(t, err)
	})

	t.Run("missing parent", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		svc2 := NewCommentService(commentRepo, noopPostRepo())
		_, err := svc2.PostComment(ctx, me, PostCommentInput{PostID: 1, Content: "hi", ParentID: uintPtr(5)})
		assertValidationError(t, err)
	})
}

func TestCommentService_PostComment_StripsMarkup(t *testing.T) {
	t.Parallel()

	var saved *models.Comment
	commentRepo := noopCommentRepo()
	commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = 10
		saved = c
		return nil
	}
	commentRepo.getByIDFn = func(_ context.Context, _ uint) (*models.Comment, error) {
		return saved, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	got, err := svc.PostComment(context.Background(), models.NewIdentity(3, false), PostCommentInput{
		PostID:  1,
		Content: "  <b>nice</b> post &amp; thanks ",
	})
	require.NoError(t, err)
	assert.Equal(t, "nice post & thanks", got.Content)
	assert.Equal(t, uint(3), got.UserID)
	assert.Nil(t, got.ParentID)
}

func TestCommentService_DeleteComment_Permissions(t *testing.T) {
	t.Parallel()

	newSvc := func(deleted *bool) *CommentService {
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 7, UserID: 2}, nil
		}
		commentRepo.deleteFn = func(_ context.Context, _ *models.Comment) error {
			*deleted = true
			return nil
		}
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 5}, nil
		}
		return NewCommentService(commentRepo, postRepo)
	}

	tests := []struct {
		name    string
		id      *models.Identity
		allowed bool
	}{
		{name: "comment author", id: models.NewIdentity(2, false), allowed: true},
		{name: "post author", id: models.NewIdentity(5, false), allowed: true},
		{name: "admin", id: models.NewIdentity(9, true), allowed: true},
		{name: "stranger", id: models.NewIdentity(9, false), allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deleted := false
			_, err := newSvc(&deleted).DeleteComment(context.Background(), tt.id, 1)
			if tt.allowed {
				require.NoError(t, err)
				assert.True(t, deleted)
				return
			}
			assertForbiddenError(t, err)
			assert.False(t, deleted)
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		deleted := false
		_, err := newSvc(&deleted).DeleteComment(context.Background(), nil, 1)
		assertUnauthenticatedError(t, err)
	})
}

func TestCommentService_LoadTopLevel_InvalidPaging(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), noopPostRepo())
	_, err := svc.LoadTopLevel(context.Background(), 1, 0, 10)
	assertValidationError(t, err)
	_, err = svc.LoadTopLevel(context.Background(), 1, 1, 0)
	assertValidationError(t, err)
}

func TestCommentService_LoadTopLevel_RepoError(t *testing.T) {
	t.Parallel()

	boom := models.NewRemoteOperationError(errors.New("connection reset"))
	commentRepo := noopCommentRepo()
	commentRepo.listTopLevelFn = func(_ context.Context, _ uint, _, _ int) ([]models.Comment, int64, error) {
		return nil, 0, boom
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	_, err := svc.LoadTopLevel(context.Background(), 1, 1, 10)
	assertErrorCode(t, err, models.CodeRemoteOperationFailed)
}

func newCommentFixture(t *testing.T) (*CommentService, *models.Post, *models.User) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	author := testutil.SeedUser(t, db, "author")
	post := testutil.SeedPost(t, db, author, nil, "Threads")
	svc := NewCommentService(repository.NewCommentRepository(db), repository.NewPostRepository(db))
	return svc, post, author
}

func TestCommentService_Pagination(t *testing.T) {
	svc, post, author := newCommentFixture(t)
	ctx := context.Background()
	me := models.NewIdentity(author.ID, false)

	for i := 0; i < 25; i++ {
		_, err := svc.PostComment(ctx, me, PostCommentInput{PostID: post.ID, Content: "comment"})
		require.NoError(t, err)
	}

	seen := map[uint]bool{}
	for page := 1; page <= 3; page++ {
		p, err := svc.LoadTopLevel(ctx, post.ID, page, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(25), p.TotalCount)
		assert.Equal(t, 3, p.TotalPages)
		for _, c := range p.Items {
			assert.False(t, seen[c.ID], "comment %d on two pages", c.ID)
			seen[c.ID] = true
		}
		if page == 3 {
			assert.Len(t, p.Items, 5)
		} else {
			assert.Len(t, p.Items, 10)
		}
	}
	assert.Len(t, seen, 25)

	beyond, err := svc.LoadTopLevel(ctx, post.ID, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 3, beyond.TotalPages)
}

func TestCommentService_RepliesSurviveParentDeletion(t *testing.T) {
	svc, post, author := newCommentFixture(t)
	ctx := context.Background()
	me := models.NewIdentity(author.ID, false)

	parent, err := svc.PostComment(ctx, me, PostCommentInput{PostID: post.ID, Content: "parent"})
	require.NoError(t, err)
	reply, err := svc.PostComment(ctx, me, PostCommentInput{PostID: post.ID, Content: "reply", ParentID: &parent.ID})
	require.NoError(t, err)

	top, err := svc.LoadTopLevel(ctx, post.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, top.Items, 1)
	assert.Equal(t, 1, top.Items[0].ReplyCount)

	_, err = svc.DeleteComment(ctx, me, parent.ID)
	require.NoError(t, err)

	top, err = svc.LoadTopLevel(ctx, post.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, top.Items)

	replies, err := svc.LoadReplies(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)
}

func TestCommentService_BuildThread(t *testing.T) {
	svc, post, author := newCommentFixture(t)
	ctx := context.Background()
	me := models.NewIdentity(author.ID, false)

	// root -> d1 -> d2 -> d3 -> d4
	ids := make([]uint, 0, 5)
	var parent *uint
	for i := 0; i < 5; i++ {
		c, err := svc.PostComment(ctx, me, PostCommentInput{PostID: post.ID, Content: "level", ParentID: parent})
		require.NoError(t, err)
		ids = append(ids, c.ID)
		parent = &ids[len(ids)-1]
	}

	thread, err := svc.BuildThread(ctx, post.ID, 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, thread.Nodes, 1)

	root := thread.Nodes[0]
	assert.Equal(t, NodeLoaded, root.State)
	require.Len(t, root.Replies, 1)
	d1 := root.Replies[0]
	assert.Equal(t, NodeLoaded, d1.State)
	require.Len(t, d1.Replies, 1)
	d2 := d1.Replies[0]
	assert.Equal(t, 2, d2.Depth)
	assert.Equal(t, NodeCollapsed, d2.State)
	assert.Empty(t, d2.Replies)
	assert.Equal(t, 1, d2.Comment.ReplyCount)

	thread, err = svc.BuildThread(ctx, post.ID, 1, 10, map[uint]bool{ids[2]: true, ids[3]: true})
	require.NoError(t, err)
	d3 := thread.Nodes[0].Replies[0].Replies[0].Replies[0]
	assert.Equal(t, 3, d3.Depth)
	assert.False(t, d3.CanReply)
	require.Len(t, d3.Replies, 1)
	d4 := d3.Replies[0]
	assert.Equal(t, 4, d4.Depth)
	assert.Equal(t, MaxThreadDepth, d4.VisualDepth)
	assert.False(t, d4.CanReply)
	assert.True(t, thread.Nodes[0].CanReply)
}

func TestNodeState_Transitions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NodeLoading, NodeCollapsed.Expand(false))
	assert.Equal(t, NodeLoaded, NodeCollapsed.Expand(true))
	assert.Equal(t, NodeLoaded, NodeLoading.Loaded())
	assert.Equal(t, NodeCollapsed, NodeLoaded.Collapse())
	assert.Equal(t, NodeLoading, NodeLoading.Collapse())
	assert.Equal(t, NodeLoaded, NodeLoaded.Expand(false))
}

func TestReplyComposer(t *testing.T) {
	t.Parallel()

	c := NewReplyComposer()
	assert.Equal(t, ComposerHidden, c.State)

	c = c.Open()
	assert.Equal(t, ComposerComposing, c.State)

	cancelled := c.Cancel()
	assert.Equal(t, ComposerHidden, cancelled.State)
	assert.False(t, cancelled.RepliesExpanded)

	done := c.Submitted()
	assert.Equal(t, ComposerHidden, done.State)
	assert.True(t, done.RepliesExpanded)

	assert.False(t, NewReplyComposer().Submitted().RepliesExpanded)
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 3, totalPages(25, 10))
}

func TestCommentService_PostComment_DraftVisibility(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	author := testutil.SeedUser(t, db, "drafter")
	stranger := testutil.SeedUser(t, db, "passerby")
	draft := testutil.SeedPost(t, db, author, nil, "Not yet")
	require.NoError(t, db.Model(draft).Update("status", models.PostStatusDraft).Error)

	svc := NewCommentService(repository.NewCommentRepository(db), repository.NewPostRepository(db))
	ctx := context.Background()

	_, err := svc.PostComment(ctx, models.NewIdentity(stranger.ID, false), PostCommentInput{PostID: draft.ID, Content: "first!"})
	assertErrorCode(t, err, models.CodeNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", draft.ID).Count(&n).Error)
	assert.Zero(t, n)

	_, err = svc.PostComment(ctx, models.NewIdentity(author.ID, false), PostCommentInput{PostID: draft.ID, Content: "note to self"})
	require.NoError(t, err)

	_, err = svc.PostComment(ctx, models.NewIdentity(stranger.ID, true), PostCommentInput{PostID: draft.ID, Content: "admin review"})
	require.NoError(t, err)
}
