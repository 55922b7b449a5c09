package models

import "time"

// FriendStatus is the stored status of one directed edge.
type FriendStatus int

const (
	// FriendPending marks an invitation awaiting the receiver's answer.
	FriendPending FriendStatus = 0
	// FriendAccepted marks one half of an established friendship.
	FriendAccepted FriendStatus = 1
)

func (s FriendStatus) String() string {
	if s == FriendAccepted {
		return "accepted"
	}
	return "pending"
}

// FriendEdge is one directed relationship record. A friendship is stored as
// two accepted edges, one per direction.
type FriendEdge struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	SenderID   uint         `gorm:"not null;uniqueIndex:idx_friend_edges_pair;check:chk_friend_edges_not_self,sender_id <> receiver_id" json:"sender_id"`
	ReceiverID uint         `gorm:"not null;uniqueIndex:idx_friend_edges_pair;index" json:"receiver_id"`
	Status     FriendStatus `gorm:"not null" json:"status"`
	Sender     *User        `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver   *User        `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (FriendEdge) TableName() string {
	return "friend_edges"
}

// FriendState is the relationship between two users as seen from one of them.
type FriendState string

const (
	FriendStateNone            FriendState = "NONE"
	FriendStatePendingSent     FriendState = "PENDING_SENT"
	FriendStatePendingReceived FriendState = "PENDING_RECEIVED"
	FriendStateFriends         FriendState = "FRIENDS"
)

// DeriveFriendState folds the edges stored between viewerID and another
// user into a single state.
func DeriveFriendState(viewerID uint, edges []FriendEdge) FriendState {
	var outAccepted, inAccepted, outPending, inPending bool
	for _, e := range edges {
		out := e.SenderID == viewerID
		switch {
		case out && e.Status == FriendAccepted:
			outAccepted = true
		case !out && e.Status == FriendAccepted:
			inAccepted = true
		case out:
			outPending = true
		default:
			inPending = true
		}
	}
	switch {
	case outAccepted && inAccepted:
		return FriendStateFriends
	case outPending:
		return FriendStatePendingSent
	case inPending:
		return FriendStatePendingReceived
	}
	return FriendStateNone
}

// InvitationResult is returned by the invite operation.
type InvitationResult struct {
	Errors []FieldError `json:"errors,omitempty"`
	Done   bool         `json:"done"`
}
