package repository

import (
	"context"
	"errors"

	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendRepository stores directed friend edges.
type FriendRepository interface {
	// Invite inserts a pending sender->receiver edge unless any edge
	// already links the pair. It reports whether an edge was created.
	Invite(ctx context.Context, senderID, receiverID uint) (bool, error)
	// Accept turns the pending sender->receiver edge into a friendship.
	Accept(ctx context.Context, senderID, receiverID uint) error
	// Deny deletes the pending sender->receiver edge.
	Deny(ctx context.Context, senderID, receiverID uint) error
	// RemoveFriendship deletes the accepted edges in both directions and
	// returns how many were removed.
	RemoveFriendship(ctx context.Context, userID, otherID uint) (int64, error)
	EdgesBetween(ctx context.Context, userID, otherID uint) ([]models.FriendEdge, error)
	EdgesFor(ctx context.Context, userID uint, otherIDs []uint) ([]models.FriendEdge, error)
	ListReceived(ctx context.Context, userID uint) ([]models.FriendEdge, error)
	ListSent(ctx context.Context, userID uint) ([]models.FriendEdge, error)
	ListFriends(ctx context.Context, userID uint) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.FriendEdge, error)
}

type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository returns a FriendRepository backed by db.
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func pairScope(a, b uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	}
}

// Invite locks both user rows in id order so that two opposite invitations
// for the same pair cannot both pass the existence check.
func (r *friendRepository) Invite(ctx context.Context, senderID, receiverID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lo, hi := senderID, receiverID
		if lo > hi {
			lo, hi = hi, lo
		}
		var users []models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id IN ?", []uint{lo, hi}).Order("id ASC").
			Find(&users).Error; err != nil {
			return err
		}
		if len(users) != 2 {
			return models.NewNotFoundError("User", receiverID)
		}

		var count int64
		if err := tx.Model(&models.FriendEdge{}).Scopes(pairScope(senderID, receiverID)).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		edge := models.FriendEdge{SenderID: senderID, ReceiverID: receiverID, Status: models.FriendPending}
		if err := tx.Create(&edge).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, wrapFriendError(err)
	}
	return created, nil
}

func (r *friendRepository) Accept(ctx context.Context, senderID, receiverID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FriendEdge{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", senderID, receiverID, models.FriendPending).
			Update("status", models.FriendAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Invitation", senderID)
		}

		reverse := models.FriendEdge{SenderID: receiverID, ReceiverID: senderID, Status: models.FriendAccepted}
		return tx.Create(&reverse).Error
	})
	return wrapFriendError(err)
}

func (r *friendRepository) Deny(ctx context.Context, senderID, receiverID uint) error {
	res := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ? AND status = ?", senderID, receiverID, models.FriendPending).
		Delete(&models.FriendEdge{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Invitation", senderID)
	}
	return nil
}

func (r *friendRepository) RemoveFriendship(ctx context.Context, userID, otherID uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("status = ?", models.FriendAccepted).
			Scopes(pairScope(userID, otherID)).
			Delete(&models.FriendEdge{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return removed, nil
}

func (r *friendRepository) EdgesBetween(ctx context.Context, userID, otherID uint) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	if err := r.db.WithContext(ctx).Scopes(pairScope(userID, otherID)).
		Order("id ASC").Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

// EdgesFor returns every edge between userID and any of otherIDs.
func (r *friendRepository) EdgesFor(ctx context.Context, userID uint, otherIDs []uint) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	if len(otherIDs) == 0 {
		return edges, nil
	}
	if err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id IN ?) OR (receiver_id = ? AND sender_id IN ?)", userID, otherIDs, userID, otherIDs).
		Order("id ASC").Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

// ListReceived returns pending invitations addressed to userID.
func (r *friendRepository) ListReceived(ctx context.Context, userID uint) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	if err := r.db.WithContext(ctx).Preload("Sender").
		Where("receiver_id = ? AND status = ?", userID, models.FriendPending).
		Order("created_at DESC").Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

// ListSent returns pending invitations sent by userID.
func (r *friendRepository) ListSent(ctx context.Context, userID uint) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	if err := r.db.WithContext(ctx).Preload("Receiver").
		Where("sender_id = ? AND status = ?", userID, models.FriendPending).
		Order("created_at DESC").Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

// ListFriends follows the outgoing accepted edge of each friendship, so every
// friend appears once.
func (r *friendRepository) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN friend_edges ON friend_edges.receiver_id = users.id").
		Where("friend_edges.sender_id = ? AND friend_edges.status = ?", userID, models.FriendAccepted).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *friendRepository) List(ctx context.Context, limit, offset int) ([]models.FriendEdge, error) {
	limit, offset = clampPage(limit, offset)
	var edges []models.FriendEdge
	if err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

func wrapFriendError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if _, ok := uniqueViolation(err); ok {
		return models.NewConflictError("invitation", err)
	}
	return models.NewInternalError(err)
}
