package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: fmt.Sprintf("%s@example.com", name), Password: "hash"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Stubs embed the repository interface; calling a method without a stub
// function panics, which flags unexpected storage access.

type userRepoStub struct {
	repository.UserRepository
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getByEmailFn      func(context.Context, string) (*models.User, error)
	getByUsernameFn   func(context.Context, string) (*models.User, error)
	getByProviderIDFn func(context.Context, string, string) (*models.User, error)
	createFn          func(context.Context, *models.User) error
	updateFn          func(context.Context, *models.User) error
	updatePasswordFn  func(context.Context, uint, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByProviderID(ctx context.Context, provider, id string) (*models.User, error) {
	return s.getByProviderIDFn(ctx, provider, id)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	return s.updateFn(ctx, u)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}

type friendRepoStub struct {
	repository.FriendRepository
	inviteFn           func(context.Context, uint, uint) (bool, error)
	acceptFn           func(context.Context, uint, uint) error
	denyFn             func(context.Context, uint, uint) error
	removeFriendshipFn func(context.Context, uint, uint) (int64, error)
}

func (s *friendRepoStub) Invite(ctx context.Context, a, b uint) (bool, error) {
	return s.inviteFn(ctx, a, b)
}
func (s *friendRepoStub) Accept(ctx context.Context, a, b uint) error {
	return s.acceptFn(ctx, a, b)
}
func (s *friendRepoStub) Deny(ctx context.Context, a, b uint) error {
	return s.denyFn(ctx, a, b)
}
func (s *friendRepoStub) RemoveFriendship(ctx context.Context, a, b uint) (int64, error) {
	return s.removeFriendshipFn(ctx, a, b)
}

type voteRepoStub struct {
	repository.VoteRepository
	castFn func(context.Context, uint, uint, int) (models.VoteTransition, error)
}

func (s *voteRepoStub) Cast(ctx context.Context, userID, postID uint, value int) (models.VoteTransition, error) {
	return s.castFn(ctx, userID, postID, value)
}

type postRepoStub struct {
	repository.PostRepository
	getByIDFn    func(context.Context, uint) (*models.Post, error)
	listBeforeFn func(context.Context, *time.Time, int) ([]models.Post, error)
	existsFn     func(context.Context, uint) (bool, error)
	createFn     func(context.Context, *models.Post) error
	updateFn     func(context.Context, *models.Post) error
	deleteFn     func(context.Context, uint) error
}

func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListBefore(ctx context.Context, before *time.Time, limit int) ([]models.Post, error) {
	return s.listBeforeFn(ctx, before, limit)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error {
	return s.createFn(ctx, p)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error {
	return s.updateFn(ctx, p)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

type replyRepoStub struct {
	repository.ReplyRepository
	createFn func(context.Context, *models.Reply) error
}

func (s *replyRepoStub) Create(ctx context.Context, r *models.Reply) error {
	return s.createFn(ctx, r)
}
