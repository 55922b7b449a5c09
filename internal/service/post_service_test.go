package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"agora/internal/cache"
	"agora/internal/loader"
	"agora/internal/models"
	"agora/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func loadersFor(db *gorm.DB) *loader.Loaders {
	return loader.New(repository.NewUserRepository(db), repository.NewVoteRepository(db), repository.NewReplyRepository(db))
}

func TestParseCursor(t *testing.T) {
	before, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, before)

	before, err = ParseCursor("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), before.UnixMilli())

	_, err = ParseCursor("yesterday")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestPostService_ListPostsLimits(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		rows      int
		wantLimit int
		wantLen   int
		wantMore  bool
	}{
		{"default", 0, 3, DefaultPageSize + 1, 3, false},
		{"capped", 500, MaxPageSize + 1, MaxPageSize + 1, MaxPageSize, true},
		{"exact page", 2, 2, 3, 2, false},
		{"has more", 2, 3, 3, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			posts := &postRepoStub{listBeforeFn: func(_ context.Context, before *time.Time, limit int) ([]models.Post, error) {
				gotLimit = limit
				out := make([]models.Post, tt.rows)
				for i := range out {
					out[i] = models.Post{ID: uint(i + 1), Text: "body"}
				}
				return out, nil
			}}
			db := setupTestDB(t)
			svc := NewPostService(posts, nil)

			page, err := svc.ListPosts(context.Background(), loadersFor(db), 0, tt.limit, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, gotLimit)
			assert.Len(t, page.Posts, tt.wantLen)
			assert.Equal(t, tt.wantMore, page.HasMore)
		})
	}
}

func TestPostService_DecoratesForViewer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	viewer := createUser(t, db, "viewer")

	long := strings.Repeat("é", 80)
	svc := NewPostService(repository.NewPostRepository(db), nil)
	res, err := svc.CreatePost(ctx, author.ID, PostInput{Title: "hello", Text: long})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.True(t, res.Post.IsPublic)

	ledger := NewVoteLedger(repository.NewVoteRepository(db), nil)
	require.True(t, ledger.CastVote(ctx, viewer.ID, res.Post.ID, models.VoteDown))

	page, err := svc.ListPosts(ctx, loadersFor(db), viewer.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	p := page.Posts[0]
	require.NotNil(t, p.Creator)
	assert.Equal(t, "author", p.Creator.Username)
	assert.Empty(t, p.Creator.Email)
	require.NotNil(t, p.VoteStatus)
	assert.Equal(t, -1, *p.VoteStatus)
	assert.Equal(t, 50, len([]rune(p.TextSnippet)))
	assert.Equal(t, -1, p.Points)

	// anonymous viewers get no vote status
	page, err = svc.ListPosts(ctx, loadersFor(db), 0, 10, "")
	require.NoError(t, err)
	assert.Nil(t, page.Posts[0].VoteStatus)
}

func TestPostService_CreateValidation(t *testing.T) {
	svc := NewPostService(&postRepoStub{}, nil)
	res, err := svc.CreatePost(context.Background(), 1, PostInput{Title: "<b></b>", Text: "<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.Nil(t, res.Post)
	assert.Equal(t, []models.FieldError{
		{Field: "title", Message: "can not be empty"},
		{Field: "text", Message: "can not be empty"},
	}, res.Errors)
}

func TestPostService_GetPostUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	db := setupTestDB(t)
	author := createUser(t, db, "author")
	calls := 0
	posts := &postRepoStub{getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
		calls++
		return &models.Post{ID: id, Title: "t", Text: "x", CreatorID: author.ID}, nil
	}}
	svc := NewPostService(posts, rdb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p, err := svc.GetPost(ctx, loadersFor(db), 0, 5)
		require.NoError(t, err)
		assert.Equal(t, uint(5), p.ID)
		require.NotNil(t, p.Creator)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(cache.PostKey(5)))
}

func TestPostService_UpdateAndDeleteOwnership(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	other := createUser(t, db, "other")
	svc := NewPostService(repository.NewPostRepository(db), nil)

	res, err := svc.CreatePost(ctx, author.ID, PostInput{Title: "first", Text: "body"})
	require.NoError(t, err)
	id := res.Post.ID

	_, err = svc.UpdatePost(ctx, other.ID, id, PostInput{Title: "x", Text: "y"})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	_, err = svc.UpdatePost(ctx, author.ID, 999, PostInput{Title: "x", Text: "y"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	updated, err := svc.UpdatePost(ctx, author.ID, id, PostInput{Title: "second", Text: "new body"})
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Post.Title)

	assert.False(t, svc.DeletePost(ctx, other.ID, id))
	assert.True(t, svc.DeletePost(ctx, author.ID, id))
	assert.False(t, svc.DeletePost(ctx, author.ID, id))
}

func TestPostService_Replies(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	replier := createUser(t, db, "replier")

	posts := NewPostService(repository.NewPostRepository(db), nil)
	replies := NewReplyService(repository.NewReplyRepository(db), repository.NewPostRepository(db))

	res, err := posts.CreatePost(ctx, author.ID, PostInput{Title: "t", Text: "x"})
	require.NoError(t, err)

	r, err := replies.Reply(ctx, replier.ID, res.Post.ID, "nice post")
	require.NoError(t, err)
	require.Empty(t, r.Errors)

	list, err := posts.Replies(ctx, loadersFor(db), replier.ID, res.Post.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Replier)
	assert.Equal(t, "replier", list[0].Replier.Username)
	assert.Equal(t, "replier@example.com", list[0].Replier.Email)

	_, err = posts.Replies(ctx, loadersFor(db), 0, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
