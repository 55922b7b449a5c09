package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
)

// ReplyRepository defines persistence operations for replies.
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	ListByPost(ctx context.Context, postID uint) ([]models.Reply, error)
	ListByPostIDs(ctx context.Context, postIDs []uint) ([]models.Reply, error)
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository returns a ReplyRepository backed by db.
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *replyRepository) ListByPost(ctx context.Context, postID uint) ([]models.Reply, error) {
	return r.ListByPostIDs(ctx, []uint{postID})
}

// ListByPostIDs returns replies of the given posts, oldest first.
func (r *replyRepository) ListByPostIDs(ctx context.Context, postIDs []uint) ([]models.Reply, error) {
	var replies []models.Reply
	if len(postIDs) == 0 {
		return replies, nil
	}
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at ASC").Order("id ASC").
		Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return replies, nil
}
