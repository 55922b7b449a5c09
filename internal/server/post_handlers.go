package server

import (
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// VoteRequest is the body of POST /api/posts/:id/vote.
type VoteRequest struct {
	Value int `json:"value"`
}

// ReplyRequest is the body of POST /api/posts/:id/replies.
type ReplyRequest struct {
	Content string `json:"content"`
}

// GetPosts handles GET /api/posts?limit=&cursor=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), s.loaders(), middleware.UserID(c),
		c.QueryInt("limit", service.DefaultPageSize), c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), s.loaders(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetReplies handles GET /api/posts/:id/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	replies, err := s.postService.Replies(c.UserContext(), s.loaders(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(replies)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var in service.PostInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	res, err := s.postService.CreatePost(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, res.Errors, res)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.PostInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	res, err := s.postService.UpdatePost(c.UserContext(), middleware.UserID(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return respondResult(c, fiber.StatusOK, res.Errors, res)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"success": s.postService.DeletePost(c.UserContext(), middleware.UserID(c), id)})
}

// VotePost handles POST /api/posts/:id/vote. Repeating a vote retracts it
// and sending the other direction flips it.
func (s *Server) VotePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	dir, ok := models.ParseVoteDirection(req.Value)
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("value must be 1 or -1"))
	}

	return c.JSON(fiber.Map{"success": s.ledger.CastVote(c.UserContext(), middleware.UserID(c), id, dir)})
}

// CreateReply handles POST /api/posts/:id/replies
func (s *Server) CreateReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.replyService.Reply(c.UserContext(), middleware.UserID(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, res.Errors, res)
}
