package models

import "time"

// Post represents a forum post. Points is the running sum of the post's votes
// and is written only by the vote ledger.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Title     string `gorm:"not null" json:"title"`
	Text      string `gorm:"type:text;not null" json:"text"`
	Points    int    `gorm:"not null;default:0" json:"points"`
	Images    string `gorm:"not null;default:''" json:"images"`
	IsPublic  bool   `gorm:"not null" json:"is_public"`
	CreatorID uint   `gorm:"not null;index" json:"creator_id"`
	Creator   *User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	// VoteStatus is the requesting user's vote on this post (computed)
	VoteStatus *int `gorm:"-" json:"vote_status"`
	// TextSnippet is not persisted; filled when posts are listed
	TextSnippet string    `gorm:"-" json:"text_snippet,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SnippetLength is the number of runes kept in TextSnippet.
const SnippetLength = 50

// Snippet returns the first SnippetLength runes of the post text.
func (p *Post) Snippet() string {
	r := []rune(p.Text)
	if len(r) <= SnippetLength {
		return p.Text
	}
	return string(r[:SnippetLength])
}

// PaginatedPosts is one page of the post feed.
type PaginatedPosts struct {
	Posts   []Post `json:"posts"`
	HasMore bool   `json:"has_more"`
}

// PostResult is returned by post mutations that validate input.
type PostResult struct {
	Errors []FieldError `json:"errors,omitempty"`
	Post   *Post        `json:"post,omitempty"`
}
