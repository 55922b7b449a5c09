// Package seed fills a development database with fake forum activity.
// Votes and friendships go through the same services the API uses, so seeded
// data satisfies the same invariants as real traffic.
package seed

import (
	"fmt"
	"strings"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Factory builds unsaved domain entities from fake data.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
	now     func() time.Time
}

// NewFactory returns a Factory. A zero seed uses the current time.
func NewFactory(seed int64, maxDays int) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays, now: time.Now}
}

// BuildUser returns the n-th user. n keeps usernames unique within a run.
func (f *Factory) BuildUser(n int, passwordHash string) *models.User {
	username := fmt.Sprintf("%s%d", sanitizeUsername(f.faker.Username()), n)
	return &models.User{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: passwordHash,
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
}

// BuildPost returns a post by creatorID with created_at spread over maxDays.
func (f *Factory) BuildPost(creatorID uint) *models.Post {
	post := &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Text:      f.faker.Paragraph(1, 4, 12, "\n\n"),
		IsPublic:  f.faker.Number(0, 9) > 0,
		CreatorID: creatorID,
		CreatedAt: f.pastTime(),
	}
	if f.faker.Number(0, 3) == 0 {
		post.Images = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
	}
	return post
}

// ReplyText returns a short comment.
func (f *Factory) ReplyText() string {
	return f.faker.Sentence(f.faker.Number(4, 16))
}

// Direction returns an up vote about two times in three.
func (f *Factory) Direction() models.VoteDirection {
	if f.faker.Number(0, 2) == 0 {
		return models.VoteDown
	}
	return models.VoteUp
}

// Intn returns a value in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

// Chance reports true with probability p.
func (f *Factory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

func (f *Factory) pastTime() time.Time {
	if f.maxDays <= 0 {
		return f.now()
	}
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-back)
}

func sanitizeUsername(s string) string {
	s = strings.ReplaceAll(s, "@", "")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "user"
	}
	return s
}
