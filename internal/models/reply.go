package models

import "time"

// Reply is a comment left on a post.
type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReplierID uint      `gorm:"not null;index" json:"replier_id"`
	Replier   *User     `gorm:"foreignKey:ReplierID" json:"replier,omitempty"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReplyResult is returned by the reply mutation.
type ReplyResult struct {
	Errors []FieldError `json:"errors,omitempty"`
	Reply  *Reply       `json:"reply,omitempty"`
}
