// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a forum account. Accounts created through an OAuth provider carry
// that provider's subject id.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Password   string    `gorm:"not null" json:"-"`
	Avatar     string    `json:"avatar"`
	GoogleID   *string   `gorm:"uniqueIndex" json:"-"`
	FacebookID *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ForViewer returns a copy safe to show to viewerID. Only the owner sees the
// email address.
func (u User) ForViewer(viewerID uint) User {
	if u.ID != viewerID {
		u.Email = ""
	}
	return u
}

// UserResult is returned by account operations that can fail on input.
type UserResult struct {
	Errors []FieldError `json:"errors,omitempty"`
	User   *User        `json:"user,omitempty"`
	Token  string       `json:"token,omitempty"`
}
