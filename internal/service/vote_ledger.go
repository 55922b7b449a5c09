// Package service contains the forum's business logic.
package service

import (
	"context"
	"log/slog"

	"agora/internal/cache"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// VoteLedger records up/down votes and keeps post points in step with them.
type VoteLedger struct {
	votes repository.VoteRepository
	rdb   *redis.Client
}

// NewVoteLedger returns a VoteLedger. rdb may be nil.
func NewVoteLedger(votes repository.VoteRepository, rdb *redis.Client) *VoteLedger {
	return &VoteLedger{votes: votes, rdb: rdb}
}

// CastVote applies dir for voterID on postID. A first vote inserts, the
// opposite direction flips and the same direction retracts. It reports false
// when the transaction was rolled back, in which case nothing changed.
func (l *VoteLedger) CastVote(ctx context.Context, voterID, postID uint, dir models.VoteDirection) bool {
	span, ctx := observability.NewSpan(ctx, "VoteLedger.CastVote",
		attribute.Int64("post.id", int64(postID)),
		attribute.String("vote.direction", dir.String()),
	)
	defer span.End()

	transition, err := l.votes.Cast(ctx, voterID, postID, dir.Value())
	if err != nil {
		span.SetError(err)
		observability.RecordVote("failed")
		middleware.Logger.ErrorContext(ctx, "vote cast failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.Uint64("voter_id", uint64(voterID)),
			slog.String("error", err.Error()),
		)
		return false
	}

	span.SetAttributes(attribute.String("vote.outcome", string(transition.Outcome)))
	observability.RecordVote(string(transition.Outcome))
	cache.Invalidate(ctx, l.rdb, cache.PostKey(postID))
	return true
}
