package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"agora/internal/cache"
	"agora/internal/loader"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"

	"github.com/redis/go-redis/v9"
)

// Feed paging bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// PostService implements post reads and author mutations.
type PostService struct {
	posts repository.PostRepository
	rdb   *redis.Client
}

// PostInput is the payload for creating or editing a post.
type PostInput struct {
	Title    string `json:"title" validate:"required,max=300"`
	Text     string `json:"text" validate:"required,max=50000"`
	Images   string `json:"images"`
	IsPublic *bool  `json:"is_public"`
}

// NewPostService returns a PostService. rdb may be nil.
func NewPostService(posts repository.PostRepository, rdb *redis.Client) *PostService {
	return &PostService{posts: posts, rdb: rdb}
}

// ParseCursor converts a Unix-millisecond cursor into a timestamp. An empty
// cursor means the first page.
func ParseCursor(cursor string) (*time.Time, error) {
	if cursor == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return nil, models.NewValidationError("cursor must be a millisecond timestamp")
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// ListPosts returns one page of the feed, newest first, decorated for viewerID.
func (s *PostService) ListPosts(ctx context.Context, ld *loader.Loaders, viewerID uint, limit int, cursor string) (*models.PaginatedPosts, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	before, err := ParseCursor(cursor)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListBefore(ctx, before, limit+1)
	if err != nil {
		return nil, err
	}

	page := &models.PaginatedPosts{Posts: posts, HasMore: len(posts) > limit}
	if page.HasMore {
		page.Posts = posts[:limit]
	}
	if err := s.decorate(ctx, ld, viewerID, page.Posts); err != nil {
		return nil, err
	}
	return page, nil
}

// GetPost returns a single decorated post. The stored row is served from
// Redis when possible.
func (s *PostService) GetPost(ctx context.Context, ld *loader.Loaders, viewerID, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, s.rdb, cache.PostKey(id), &post, cache.PostTTL, func() error {
		p, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	one := []models.Post{post}
	if err := s.decorate(ctx, ld, viewerID, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// CreatePost validates and stores a new post owned by authorID.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, in PostInput) (*models.PostResult, error) {
	in.Title = plainText(in.Title)
	in.Text = richText(in.Text)
	if errs := validation.Struct(in); errs != nil {
		return &models.PostResult{Errors: errs}, nil
	}

	post := &models.Post{
		Title:     in.Title,
		Text:      in.Text,
		Images:    in.Images,
		IsPublic:  in.IsPublic == nil || *in.IsPublic,
		CreatorID: authorID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.TextSnippet = post.Snippet()
	return &models.PostResult{Post: post}, nil
}

// UpdatePost changes the title and text of a post owned by authorID.
func (s *PostService) UpdatePost(ctx context.Context, authorID, id uint, in PostInput) (*models.PostResult, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != authorID {
		return nil, models.NewForbiddenError("only the author can edit this post")
	}

	in.Title = plainText(in.Title)
	in.Text = richText(in.Text)
	if errs := validation.Struct(in); errs != nil {
		return &models.PostResult{Errors: errs}, nil
	}

	post.Title = in.Title
	post.Text = in.Text
	post.UpdatedAt = time.Now()
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, s.rdb, cache.PostKey(id))
	post.TextSnippet = post.Snippet()
	return &models.PostResult{Post: post}, nil
}

// DeletePost removes a post owned by authorID together with its votes and
// replies. It reports false if the post is missing or owned by someone else.
func (s *PostService) DeletePost(ctx context.Context, authorID, id uint) bool {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil || post.CreatorID != authorID {
		return false
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		middleware.Logger.ErrorContext(ctx, "post delete failed",
			slog.Uint64("post_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		return false
	}
	cache.Invalidate(ctx, s.rdb, cache.PostKey(id))
	return true
}

// Replies returns the replies of postID, oldest first, with their authors.
func (s *PostService) Replies(ctx context.Context, ld *loader.Loaders, viewerID, postID uint) ([]models.Reply, error) {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Post", postID)
	}

	replies, err := ld.Replies.Load(ctx, postID)()
	if err != nil {
		return nil, err
	}
	out := make([]models.Reply, len(replies))
	copy(out, replies)

	ids := make([]uint, len(out))
	for i := range out {
		ids[i] = out[i].ReplierID
	}
	users, errs := ld.Users.LoadMany(ctx, ids)()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	for i := range out {
		if users[i] != nil {
			u := users[i].ForViewer(viewerID)
			out[i].Replier = &u
		}
	}
	return out, nil
}

// decorate fills the computed fields of posts in place.
func (s *PostService) decorate(ctx context.Context, ld *loader.Loaders, viewerID uint, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	creatorIDs := make([]uint, len(posts))
	for i := range posts {
		creatorIDs[i] = posts[i].CreatorID
	}
	creatorsThunk := ld.Users.LoadMany(ctx, creatorIDs)

	var votesThunk func() ([]*models.Vote, []error)
	if viewerID != 0 {
		keys := make([]loader.VoteKey, len(posts))
		for i := range posts {
			keys[i] = loader.VoteKey{PostID: posts[i].ID, UserID: viewerID}
		}
		votesThunk = ld.Votes.LoadMany(ctx, keys)
	}

	creators, errs := creatorsThunk()
	if err := firstError(errs); err != nil {
		return err
	}
	var votes []*models.Vote
	if votesThunk != nil {
		votes, errs = votesThunk()
		if err := firstError(errs); err != nil {
			return err
		}
	}

	for i := range posts {
		posts[i].TextSnippet = posts[i].Snippet()
		if creators[i] != nil {
			u := creators[i].ForViewer(viewerID)
			posts[i].Creator = &u
		}
		posts[i].VoteStatus = nil
		if votes != nil && votes[i] != nil {
			v := votes[i].Value
			posts[i].VoteStatus = &v
		}
	}
	return nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
