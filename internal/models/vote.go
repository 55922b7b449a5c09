package models

import "time"

// Vote is one user's current vote on one post.
type Vote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteDirection is the two-valued signal a voter sends.
type VoteDirection int

const (
	VoteUp VoteDirection = iota
	VoteDown
)

// Value maps the direction onto the ledger value.
func (d VoteDirection) Value() int {
	if d == VoteDown {
		return -1
	}
	return 1
}

func (d VoteDirection) String() string {
	if d == VoteDown {
		return "down"
	}
	return "up"
}

// ParseVoteDirection accepts the wire values 1 and -1.
func ParseVoteDirection(v int) (VoteDirection, bool) {
	switch v {
	case 1:
		return VoteUp, true
	case -1:
		return VoteDown, true
	}
	return VoteUp, false
}

// VoteOutcome names the ledger change a cast produced.
type VoteOutcome string

const (
	VoteInserted  VoteOutcome = "inserted"
	VoteFlipped   VoteOutcome = "flipped"
	VoteRetracted VoteOutcome = "retracted"
)

// VoteTransition describes one committed cast.
type VoteTransition struct {
	Outcome VoteOutcome
	// Delta is the amount added to the post's points.
	Delta int
}
