package service

import (
	"context"
	"log/slog"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/observability"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FriendNotifier delivers friend events to a user.
type FriendNotifier interface {
	FriendEvent(ctx context.Context, userID, fromID uint, eventType string) error
}

// FriendGraph manages invitations and friendships between users.
type FriendGraph struct {
	friends  repository.FriendRepository
	users    repository.UserRepository
	notifier FriendNotifier
}

// NewFriendGraph returns a FriendGraph. notifier may be nil.
func NewFriendGraph(friends repository.FriendRepository, users repository.UserRepository, notifier FriendNotifier) *FriendGraph {
	return &FriendGraph{friends: friends, users: users, notifier: notifier}
}

// Invite sends a friend invitation from inviterID to targetID. Done is false
// without errors when any edge already links the two users.
func (g *FriendGraph) Invite(ctx context.Context, inviterID, targetID uint) models.InvitationResult {
	span, ctx := observability.NewSpan(ctx, "FriendGraph.Invite",
		attribute.Int64("friend.target_id", int64(targetID)))
	defer span.End()

	if inviterID == targetID {
		return models.InvitationResult{Errors: []models.FieldError{{Field: "id", Message: "cannot invite self"}}}
	}

	if _, err := g.users.GetByID(ctx, targetID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.InvitationResult{Errors: []models.FieldError{{Field: "invitation", Message: "target not found"}}}
		}
		g.fail(ctx, span, "invite", err, inviterID, targetID)
		return models.InvitationResult{}
	}

	created, err := g.friends.Invite(ctx, inviterID, targetID)
	if err != nil {
		g.fail(ctx, span, "invite", err, inviterID, targetID)
		return models.InvitationResult{}
	}
	if !created {
		return models.InvitationResult{}
	}

	observability.RecordFriendTransition("invited")
	g.notify(ctx, targetID, inviterID, notifications.EventFriendRequest)
	return models.InvitationResult{Done: true}
}

// RespondToReceive accepts or denies the pending invitation inviterID sent to
// responderID. It reports false if there is no such invitation.
func (g *FriendGraph) RespondToReceive(ctx context.Context, responderID, inviterID uint, accept bool) bool {
	span, ctx := observability.NewSpan(ctx, "FriendGraph.RespondToReceive",
		attribute.Int64("friend.inviter_id", int64(inviterID)),
		attribute.Bool("friend.accept", accept))
	defer span.End()

	if responderID == inviterID {
		return false
	}

	if !accept {
		if err := g.friends.Deny(ctx, inviterID, responderID); err != nil {
			g.fail(ctx, span, "deny", err, responderID, inviterID)
			return false
		}
		observability.RecordFriendTransition("denied")
		return true
	}

	if err := g.friends.Accept(ctx, inviterID, responderID); err != nil {
		g.fail(ctx, span, "accept", err, responderID, inviterID)
		return false
	}
	observability.RecordFriendTransition("accepted")
	g.notify(ctx, inviterID, responderID, notifications.EventFriendAccepted)
	return true
}

// DeleteFriend ends the friendship between requesterID and otherID. Missing
// edges are not an error.
func (g *FriendGraph) DeleteFriend(ctx context.Context, requesterID, otherID uint) bool {
	span, ctx := observability.NewSpan(ctx, "FriendGraph.DeleteFriend",
		attribute.Int64("friend.other_id", int64(otherID)))
	defer span.End()

	if requesterID == otherID {
		return false
	}

	removed, err := g.friends.RemoveFriendship(ctx, requesterID, otherID)
	if err != nil {
		g.fail(ctx, span, "delete", err, requesterID, otherID)
		return false
	}
	if removed > 0 {
		observability.RecordFriendTransition("removed")
	}
	return true
}

// Receives returns the pending invitations addressed to userID.
func (g *FriendGraph) Receives(ctx context.Context, userID uint) ([]models.FriendEdge, error) {
	return g.friends.ListReceived(ctx, userID)
}

// Sent returns the pending invitations userID has sent.
func (g *FriendGraph) Sent(ctx context.Context, userID uint) ([]models.FriendEdge, error) {
	return g.friends.ListSent(ctx, userID)
}

// Friends returns each friend of userID once.
func (g *FriendGraph) Friends(ctx context.Context, userID uint) ([]models.User, error) {
	users, err := g.friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].ForViewer(userID)
	}
	return users, nil
}

// Status reports how otherID relates to viewerID.
func (g *FriendGraph) Status(ctx context.Context, viewerID, otherID uint) (models.FriendState, error) {
	if viewerID == otherID {
		return models.FriendStateNone, nil
	}
	edges, err := g.friends.EdgesBetween(ctx, viewerID, otherID)
	if err != nil {
		return models.FriendStateNone, err
	}
	return models.DeriveFriendState(viewerID, edges), nil
}

func (g *FriendGraph) fail(ctx context.Context, span *observability.Span, op string, err error, userID, otherID uint) {
	span.SetError(err)
	level := slog.LevelError
	if models.HasCode(err, models.CodeNotFound) {
		level = slog.LevelInfo
	}
	middleware.Logger.Log(ctx, level, "friend graph operation failed",
		slog.String("op", op),
		slog.Uint64("actor_id", uint64(userID)),
		slog.Uint64("other_id", uint64(otherID)),
		slog.String("error", err.Error()),
	)
}

func (g *FriendGraph) notify(ctx context.Context, userID, fromID uint, eventType string) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.FriendEvent(ctx, userID, fromID, eventType); err != nil {
		middleware.Logger.WarnContext(ctx, "friend notification failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}
