package server

import (
	"agora/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// RespondRequest is the body of POST /api/friends/respond/:userId.
type RespondRequest struct {
	Accept bool `json:"accept"`
}

// InviteFriend handles POST /api/friends/invite/:userId
func (s *Server) InviteFriend(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	res := s.graph.Invite(c.UserContext(), middleware.UserID(c), targetID)
	return respondResult(c, fiber.StatusOK, res.Errors, res)
}

// RespondToInvite handles POST /api/friends/respond/:userId, where userId is
// the inviter.
func (s *Server) RespondToInvite(c *fiber.Ctx) error {
	inviterID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	var req RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	ok := s.graph.RespondToReceive(c.UserContext(), middleware.UserID(c), inviterID, req.Accept)
	return c.JSON(fiber.Map{"success": ok})
}

// DeleteFriend handles DELETE /api/friends/:userId
func (s *Server) DeleteFriend(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"success": s.graph.DeleteFriend(c.UserContext(), middleware.UserID(c), otherID)})
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.graph.Friends(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(friends)
}

// GetReceivedRequests handles GET /api/friends/requests
func (s *Server) GetReceivedRequests(c *fiber.Ctx) error {
	edges, err := s.graph.Receives(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(edges)
}

// GetSentRequests handles GET /api/friends/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	edges, err := s.graph.Sent(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(edges)
}

// GetFriendStatus handles GET /api/friends/status/:userId
func (s *Server) GetFriendStatus(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	state, err := s.graph.Status(c.UserContext(), middleware.UserID(c), otherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": state})
}
