package loader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	repository.UserRepository
	calls      int32
	getByIDsFn func(context.Context, []uint) ([]models.User, error)
}

func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.getByIDsFn(ctx, ids)
}

type voteRepoStub struct {
	repository.VoteRepository
	listByPostsFn func(context.Context, []uint, []uint) ([]models.Vote, error)
}

func (s *voteRepoStub) ListByPosts(ctx context.Context, userIDs, postIDs []uint) ([]models.Vote, error) {
	return s.listByPostsFn(ctx, userIDs, postIDs)
}

type replyRepoStub struct {
	repository.ReplyRepository
	listByPostIDsFn func(context.Context, []uint) ([]models.Reply, error)
}

func (s *replyRepoStub) ListByPostIDs(ctx context.Context, postIDs []uint) ([]models.Reply, error) {
	return s.listByPostIDsFn(ctx, postIDs)
}

func TestUsersLoaderPositional(t *testing.T) {
	users := &userRepoStub{getByIDsFn: func(_ context.Context, ids []uint) ([]models.User, error) {
		// out of order and missing id 3
		return []models.User{{ID: 2, Username: "b"}, {ID: 1, Username: "a"}}, nil
	}}
	ld := New(users, &voteRepoStub{}, &replyRepoStub{})

	got, errs := ld.Users.LoadMany(context.Background(), []uint{1, 2, 3})()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Username)
	assert.Equal(t, "b", got[1].Username)
	assert.Nil(t, got[2])
	assert.Equal(t, int32(1), atomic.LoadInt32(&users.calls))

	// cached for the request
	u, err := ld.Users.Load(context.Background(), 1)()
	require.NoError(t, err)
	assert.Equal(t, "a", u.Username)
	assert.Equal(t, int32(1), atomic.LoadInt32(&users.calls))
}

func TestUsersLoaderError(t *testing.T) {
	users := &userRepoStub{getByIDsFn: func(context.Context, []uint) ([]models.User, error) {
		return nil, errors.New("db down")
	}}
	ld := New(users, &voteRepoStub{}, &replyRepoStub{})

	_, err := ld.Users.Load(context.Background(), 9)()
	assert.EqualError(t, err, "db down")
}

func TestVotesLoaderDropsUnrequestedPairs(t *testing.T) {
	votes := &voteRepoStub{listByPostsFn: func(_ context.Context, userIDs, postIDs []uint) ([]models.Vote, error) {
		assert.ElementsMatch(t, []uint{1, 2}, userIDs)
		assert.ElementsMatch(t, []uint{10, 20}, postIDs)
		return []models.Vote{
			{UserID: 1, PostID: 10, Value: 1},
			{UserID: 2, PostID: 10, Value: -1}, // not requested
			{UserID: 2, PostID: 20, Value: -1},
		}, nil
	}}
	ld := New(&userRepoStub{}, votes, &replyRepoStub{})

	keys := []VoteKey{{PostID: 10, UserID: 1}, {PostID: 20, UserID: 2}, {PostID: 20, UserID: 1}}
	got, errs := ld.Votes.LoadMany(context.Background(), keys)()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, -1, got[1].Value)
	assert.Nil(t, got[2])
}

func TestRepliesLoaderGroupsByPost(t *testing.T) {
	replies := &replyRepoStub{listByPostIDsFn: func(context.Context, []uint) ([]models.Reply, error) {
		return []models.Reply{
			{ID: 1, PostID: 5, Content: "x"},
			{ID: 2, PostID: 5, Content: "y"},
		}, nil
	}}
	ld := New(&userRepoStub{}, &voteRepoStub{}, replies)

	got, errs := ld.Replies.LoadMany(context.Background(), []uint{5, 6})()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Len(t, got, 2)
	assert.Len(t, got[0], 2)
	assert.NotNil(t, got[1])
	assert.Empty(t, got[1])
}
