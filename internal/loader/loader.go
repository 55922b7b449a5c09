// Package loader builds the per-request batched lookups used to decorate
// posts with their creator, the viewer's vote and their replies.
package loader

import (
	"context"
	"time"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/graph-gophers/dataloader/v7"
)

const batchWait = 2 * time.Millisecond

// VoteKey identifies one user's vote on one post.
type VoteKey struct {
	PostID uint
	UserID uint
}

// Loaders holds the batched lookups for one inbound request. Build a new
// value per request; results are cached for its lifetime.
type Loaders struct {
	Users   *dataloader.Loader[uint, *models.User]
	Votes   *dataloader.Loader[VoteKey, *models.Vote]
	Replies *dataloader.Loader[uint, []models.Reply]
}

// New returns loaders backed by the given repositories.
func New(users repository.UserRepository, votes repository.VoteRepository, replies repository.ReplyRepository) *Loaders {
	return &Loaders{
		Users: dataloader.NewBatchedLoader(userBatch(users),
			dataloader.WithWait[uint, *models.User](batchWait)),
		Votes: dataloader.NewBatchedLoader(voteBatch(votes),
			dataloader.WithWait[VoteKey, *models.Vote](batchWait)),
		Replies: dataloader.NewBatchedLoader(replyBatch(replies),
			dataloader.WithWait[uint, []models.Reply](batchWait)),
	}
}

// positional maps each key to pick(key), or fails every key with err.
func positional[K comparable, V any](keys []K, err error, pick func(K) V) []*dataloader.Result[V] {
	results := make([]*dataloader.Result[V], len(keys))
	for i, k := range keys {
		if err != nil {
			results[i] = &dataloader.Result[V]{Error: err}
			continue
		}
		results[i] = &dataloader.Result[V]{Data: pick(k)}
	}
	return results
}

func userBatch(repo repository.UserRepository) dataloader.BatchFunc[uint, *models.User] {
	return func(ctx context.Context, ids []uint) []*dataloader.Result[*models.User] {
		users, err := repo.GetByIDs(ctx, ids)
		byID := make(map[uint]*models.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		return positional(ids, err, func(id uint) *models.User { return byID[id] })
	}
}

func voteBatch(repo repository.VoteRepository) dataloader.BatchFunc[VoteKey, *models.Vote] {
	return func(ctx context.Context, keys []VoteKey) []*dataloader.Result[*models.Vote] {
		userIDs := make([]uint, 0, len(keys))
		postIDs := make([]uint, 0, len(keys))
		seenU := map[uint]bool{}
		seenP := map[uint]bool{}
		for _, k := range keys {
			if !seenU[k.UserID] {
				seenU[k.UserID] = true
				userIDs = append(userIDs, k.UserID)
			}
			if !seenP[k.PostID] {
				seenP[k.PostID] = true
				postIDs = append(postIDs, k.PostID)
			}
		}

		// the IN x IN query may return pairs nobody asked for; the map
		// lookup below drops them
		votes, err := repo.ListByPosts(ctx, userIDs, postIDs)
		byKey := make(map[VoteKey]*models.Vote, len(votes))
		for i := range votes {
			byKey[VoteKey{PostID: votes[i].PostID, UserID: votes[i].UserID}] = &votes[i]
		}
		return positional(keys, err, func(k VoteKey) *models.Vote { return byKey[k] })
	}
}

func replyBatch(repo repository.ReplyRepository) dataloader.BatchFunc[uint, []models.Reply] {
	return func(ctx context.Context, postIDs []uint) []*dataloader.Result[[]models.Reply] {
		replies, err := repo.ListByPostIDs(ctx, postIDs)
		byPost := make(map[uint][]models.Reply, len(postIDs))
		for _, r := range replies {
			byPost[r.PostID] = append(byPost[r.PostID], r)
		}
		return positional(postIDs, err, func(id uint) []models.Reply {
			if rs, ok := byPost[id]; ok {
				return rs
			}
			return []models.Reply{}
		})
	}
}
