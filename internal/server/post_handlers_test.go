package server

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "ann")

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
	}{
		{"Success", token, map[string]any{"title": "Hello", "text": "first post"}, http.StatusCreated},
		{"Missing Fields", token, map[string]any{"title": ""}, http.StatusBadRequest},
		{"Anonymous", "", map[string]any{"title": "Hello", "text": "x"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/posts", tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreatePost_SanitizesTitle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "ann")

	resp := env.do(t, http.MethodPost, "/api/posts", token, map[string]any{
		"title": "<b>bold</b> claim",
		"text":  "<script>alert(1)</script><p>ok</p>",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[models.PostResult](t, resp)
	require.NotNil(t, res.Post)
	assert.Equal(t, "bold claim", res.Post.Title)
	assert.NotContains(t, res.Post.Text, "script")
	assert.True(t, res.Post.IsPublic)
}

func TestVoteFlow(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.createUser(t, "author")
	_, voter := env.createUser(t, "voter")
	post := env.createPost(t, author.ID, "vote me")

	vote := func(value int) bool {
		resp := env.do(t, http.MethodPost, urlf("/api/posts/%d/vote", post.ID), voter, VoteRequest{Value: value})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decode[map[string]bool](t, resp)["success"]
	}
	get := func() models.Post {
		resp := env.do(t, http.MethodGet, urlf("/api/posts/%d", post.ID), voter, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decode[models.Post](t, resp)
	}

	// warm the cache so the vote must invalidate it
	assert.Equal(t, 0, get().Points)

	require.True(t, vote(1))
	p := get()
	assert.Equal(t, 1, p.Points)
	require.NotNil(t, p.VoteStatus)
	assert.Equal(t, 1, *p.VoteStatus)

	require.True(t, vote(-1))
	p = get()
	assert.Equal(t, -1, p.Points)
	require.NotNil(t, p.VoteStatus)
	assert.Equal(t, -1, *p.VoteStatus)

	require.True(t, vote(-1))
	p = get()
	assert.Equal(t, 0, p.Points)
	assert.Nil(t, p.VoteStatus)
}

func TestVote_Validation(t *testing.T) {
	env := newTestEnv(t)
	author, token := env.createUser(t, "author")
	post := env.createPost(t, author.ID, "p")

	resp := env.do(t, http.MethodPost, urlf("/api/posts/%d/vote", post.ID), token, VoteRequest{Value: 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/posts/abc/vote", token, VoteRequest{Value: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, resp).Error)

	resp = env.do(t, http.MethodPost, "/api/posts/999/vote", token, VoteRequest{Value: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]bool](t, resp)["success"])

	resp = env.do(t, http.MethodPost, urlf("/api/posts/%d/vote", post.ID), "", VoteRequest{Value: 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetPosts_Paging(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.createUser(t, "author")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p := &models.Post{Title: "p" + strconv.Itoa(i), Text: "t", IsPublic: true, CreatorID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, env.db.Create(p).Error)
	}

	resp := env.do(t, http.MethodGet, "/api/posts?limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[models.PaginatedPosts](t, resp)
	require.Len(t, page.Posts, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "p4", page.Posts[0].Title)
	assert.Equal(t, "p3", page.Posts[1].Title)
	require.NotNil(t, page.Posts[0].Creator)
	assert.Equal(t, "author", page.Posts[0].Creator.Username)
	assert.Empty(t, page.Posts[0].Creator.Email, "anonymous viewers do not see emails")

	cursor := strconv.FormatInt(page.Posts[1].CreatedAt.UnixMilli(), 10)
	resp = env.do(t, http.MethodGet, "/api/posts?limit=5&cursor="+cursor, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decode[models.PaginatedPosts](t, resp)
	require.Len(t, page.Posts, 3)
	assert.False(t, page.HasMore)
	assert.Equal(t, "p2", page.Posts[0].Title)

	resp = env.do(t, http.MethodGet, "/api/posts?cursor=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPost_NotFound(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/posts/404", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndDeletePost_AuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	author, authorToken := env.createUser(t, "author")
	_, otherToken := env.createUser(t, "other")
	post := env.createPost(t, author.ID, "original")

	resp := env.do(t, http.MethodPut, urlf("/api/posts/%d", post.ID), otherToken, map[string]any{"title": "hijack", "text": "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, urlf("/api/posts/%d", post.ID), authorToken, map[string]any{"title": "edited", "text": "new text"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "edited", decode[models.PostResult](t, resp).Post.Title)

	resp = env.do(t, http.MethodPut, "/api/posts/999", authorToken, map[string]any{"title": "a", "text": "b"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, urlf("/api/posts/%d", post.ID), otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]bool](t, resp)["success"])

	resp = env.do(t, http.MethodDelete, urlf("/api/posts/%d", post.ID), authorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[map[string]bool](t, resp)["success"])

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, urlf("/api/posts/%d", post.ID), "", nil).StatusCode)
}

func TestReplies(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.createUser(t, "author")
	_, replierToken := env.createUser(t, "replier")
	post := env.createPost(t, author.ID, "discuss")

	resp := env.do(t, http.MethodPost, urlf("/api/posts/%d/replies", post.ID), replierToken, ReplyRequest{Content: "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.ReplyResult](t, resp)
	require.NotNil(t, created.Reply)

	resp = env.do(t, http.MethodPost, urlf("/api/posts/%d/replies", post.ID), replierToken, ReplyRequest{Content: "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "content", decode[models.ReplyResult](t, resp).Errors[0].Field)

	resp = env.do(t, http.MethodPost, "/api/posts/999/replies", replierToken, ReplyRequest{Content: "hello"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []models.FieldError{{Field: "post", Message: "post not found"}}, decode[models.ReplyResult](t, resp).Errors)

	resp = env.do(t, http.MethodGet, urlf("/api/posts/%d/replies", post.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replies := decode[[]models.Reply](t, resp)
	require.Len(t, replies, 1)
	assert.Equal(t, "nice", replies[0].Content)
	require.NotNil(t, replies[0].Replier)
	assert.Equal(t, "replier", replies[0].Replier.Username)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/posts/999/replies", "", nil).StatusCode)
}
