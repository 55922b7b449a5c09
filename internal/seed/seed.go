package seed

import (
	"context"
	"fmt"
	"log/slog"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Summary counts what a run created.
type Summary struct {
	Users       int
	Posts       int
	Votes       int
	Replies     int
	Friendships int
	Pending     int
}

// Seeder writes fake activity through the repositories and services.
type Seeder struct {
	db      *gorm.DB
	users   repository.UserRepository
	posts   repository.PostRepository
	replies *service.ReplyService
	ledger  *service.VoteLedger
	graph   *service.FriendGraph
}

// NewSeeder wires a Seeder over db. Cache and notifications are left out.
func NewSeeder(db *gorm.DB) *Seeder {
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	return &Seeder{
		db:      db,
		users:   users,
		posts:   posts,
		replies: service.NewReplyService(repository.NewReplyRepository(db), posts),
		ledger:  service.NewVoteLedger(repository.NewVoteRepository(db), nil),
		graph:   service.NewFriendGraph(repository.NewFriendRepository(db), users, nil),
	}
}

// ClearAll removes every forum row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.InfoContext(ctx, "Clearing existing data")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Vote{}, &models.Reply{}, &models.FriendEdge{}, &models.Post{}, &models.User{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Run seeds the database according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	f := NewFactory(opts.Seed, opts.MaxDays)
	sum := &Summary{}

	users, err := s.seedUsers(ctx, f, opts.Users)
	if err != nil {
		return sum, err
	}
	sum.Users = len(users)

	posts, err := s.seedPosts(ctx, f, users, opts.PostsPerUser)
	if err != nil {
		return sum, err
	}
	sum.Posts = len(posts)

	sum.Votes = s.seedVotes(ctx, f, users, posts, opts.VotesPerPost)

	sum.Replies, err = s.seedReplies(ctx, f, users, posts, opts.RepliesPerPost)
	if err != nil {
		return sum, err
	}

	sum.Friendships, sum.Pending = s.seedFriendships(ctx, f, users, opts.Friendships, opts.AcceptRatio)

	middleware.Logger.InfoContext(ctx, "Seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("votes", sum.Votes),
		slog.Int("replies", sum.Replies),
		slog.Int("friendships", sum.Friendships),
		slog.Int("pending", sum.Pending),
	)
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context, f *Factory, n int) ([]*models.User, error) {
	if n == 0 {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u := f.BuildUser(i+1, string(hash))
		if err := s.users.Create(ctx, u); err != nil {
			return users, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, f *Factory, users []*models.User, perUser int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(users)*perUser)
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			p := f.BuildPost(u.ID)
			if err := s.posts.Create(ctx, p); err != nil {
				return posts, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// seedVotes gives each post up to perPost distinct voters.
func (s *Seeder) seedVotes(ctx context.Context, f *Factory, users []*models.User, posts []*models.Post, perPost int) int {
	if len(users) == 0 {
		return 0
	}
	if perPost > len(users) {
		perPost = len(users)
	}
	cast := 0
	for _, p := range posts {
		start := f.Intn(len(users))
		for i := 0; i < perPost; i++ {
			voter := users[(start+i)%len(users)]
			if s.ledger.CastVote(ctx, voter.ID, p.ID, f.Direction()) {
				cast++
			}
		}
	}
	return cast
}

func (s *Seeder) seedReplies(ctx context.Context, f *Factory, users []*models.User, posts []*models.Post, perPost int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	n := 0
	for _, p := range posts {
		for i := 0; i < perPost; i++ {
			replier := users[f.Intn(len(users))]
			res, err := s.replies.Reply(ctx, replier.ID, p.ID, f.ReplyText())
			if err != nil {
				return n, fmt.Errorf("create reply: %w", err)
			}
			if res.Reply != nil {
				n++
			}
		}
	}
	return n, nil
}

// seedFriendships sends up to target invitations between random pairs and
// accepts a share of them. Pairs already linked are skipped.
func (s *Seeder) seedFriendships(ctx context.Context, f *Factory, users []*models.User, target int, acceptRatio float64) (friends, pending int) {
	if len(users) < 2 {
		return 0, 0
	}
	for attempts := 0; friends+pending < target && attempts < target*10; attempts++ {
		a := users[f.Intn(len(users))]
		b := users[f.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}
		if res := s.graph.Invite(ctx, a.ID, b.ID); !res.Done {
			continue
		}
		if f.Chance(acceptRatio) && s.graph.RespondToReceive(ctx, b.ID, a.ID, true) {
			friends++
		} else {
			pending++
		}
	}
	return friends, pending
}
