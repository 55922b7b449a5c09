package server

import (
	"github.com/gofiber/fiber/v2"
)

// Debug listings are only routed outside production.

// DebugUsers handles GET /api/debug/users
func (s *Server) DebugUsers(c *fiber.Ctx) error {
	p := parsePagination(c, maxPaginationLimit)
	users, err := s.userRepo.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// DebugPosts handles GET /api/debug/posts
func (s *Server) DebugPosts(c *fiber.Ctx) error {
	p := parsePagination(c, maxPaginationLimit)
	posts, err := s.postRepo.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// DebugFriends handles GET /api/debug/friends
func (s *Server) DebugFriends(c *fiber.Ctx) error {
	p := parsePagination(c, maxPaginationLimit)
	edges, err := s.friendRepo.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(edges)
}
