package server

import (
	"agora/internal/middleware"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest is the body of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.userService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, res.Errors, res)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.userService.Login(c.UserContext(), req.UsernameOrEmail, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return respondResult(c, fiber.StatusOK, res.Errors, res)
}

// Logout handles POST /api/auth/logout. Tokens are stateless; the client
// discards its copy.
func (s *Server) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ForgotPassword handles POST /api/auth/forgot-password. The answer does not
// reveal whether the address is registered.
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	return c.JSON(fiber.Map{"success": s.userService.ForgotPassword(c.UserContext(), req.Email)})
}

// ChangePassword handles POST /api/auth/change-password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.userService.ChangePassword(c.UserContext(), req.Token, req.NewPassword)
	if err != nil {
		return respondError(c, err)
	}
	return respondResult(c, fiber.StatusOK, res.Errors, res)
}
