package repository

import (
	"context"
	"errors"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository owns the vote ledger and the points aggregate on posts.
type VoteRepository interface {
	// Cast applies one up/down signal for userID on postID in a single
	// transaction and reports which ledger change it made.
	Cast(ctx context.Context, userID, postID uint, value int) (models.VoteTransition, error)
	ListByPosts(ctx context.Context, userIDs, postIDs []uint) ([]models.Vote, error)
	SumByPost(ctx context.Context, postID uint) (int, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository returns a VoteRepository backed by db.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Cast locks the post row first so that concurrent voters on the same post
// queue behind each other. The points change is a relative update evaluated
// by the database.
func (r *voteRepository) Cast(ctx context.Context, userID, postID uint, value int) (models.VoteTransition, error) {
	var transition models.VoteTransition

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&post, postID).Error; err != nil {
			return notFoundOr(err, "Post", postID)
		}

		var existing models.Vote
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			now := time.Now()
			if err := tx.Exec(
				"INSERT INTO votes (user_id, post_id, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				userID, postID, value, now, now,
			).Error; err != nil {
				return err
			}
			transition = models.VoteTransition{Outcome: models.VoteInserted, Delta: value}
		case err != nil:
			return err
		case existing.Value != value:
			if err := tx.Model(&models.Vote{}).
				Where("user_id = ? AND post_id = ?", userID, postID).
				Updates(map[string]interface{}{"value": value, "updated_at": time.Now()}).Error; err != nil {
				return err
			}
			transition = models.VoteTransition{Outcome: models.VoteFlipped, Delta: 2 * value}
		default:
			if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).
				Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			transition = models.VoteTransition{Outcome: models.VoteRetracted, Delta: -value}
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("points", gorm.Expr("points + ?", transition.Delta)).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return models.VoteTransition{}, err
		}
		return models.VoteTransition{}, models.NewInternalError(err)
	}
	return transition, nil
}

// ListByPosts returns the votes cast by any of userIDs on any of postIDs.
func (r *voteRepository) ListByPosts(ctx context.Context, userIDs, postIDs []uint) ([]models.Vote, error) {
	var votes []models.Vote
	if len(userIDs) == 0 || len(postIDs) == 0 {
		return votes, nil
	}
	if err := r.db.WithContext(ctx).
		Where("user_id IN ? AND post_id IN ?", userIDs, postIDs).
		Find(&votes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return votes, nil
}

// SumByPost recomputes the ledger total for postID.
func (r *voteRepository) SumByPost(ctx context.Context, postID uint) (int, error) {
	var sum int
	if err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("COALESCE(SUM(value), 0)").
		Where("post_id = ?", postID).
		Scan(&sum).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return sum, nil
}
