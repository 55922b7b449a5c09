package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
)

// ReplyService adds replies to posts.
type ReplyService struct {
	replies repository.ReplyRepository
	posts   repository.PostRepository
}

// NewReplyService returns a ReplyService.
func NewReplyService(replies repository.ReplyRepository, posts repository.PostRepository) *ReplyService {
	return &ReplyService{replies: replies, posts: posts}
}

// Reply stores content as replierID's reply to postID. Input problems come
// back as field errors; storage failures as the error.
func (s *ReplyService) Reply(ctx context.Context, replierID, postID uint, content string) (*models.ReplyResult, error) {
	content = richText(content)
	if content == "" {
		return &models.ReplyResult{Errors: []models.FieldError{{Field: "content", Message: "content can not be empty"}}}, nil
	}

	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &models.ReplyResult{Errors: []models.FieldError{{Field: "post", Message: "post not found"}}}, nil
	}

	reply := &models.Reply{ReplierID: replierID, PostID: postID, Content: content}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, err
	}
	return &models.ReplyResult{Reply: reply}, nil
}
