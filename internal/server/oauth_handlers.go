package server

import (
	"errors"
	"log/slog"
	"net/url"

	"agora/internal/cache"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

var errOAuthUnavailable = errors.New("login with a provider is unavailable")

// OAuthBegin handles GET /auth/:provider. It stores a single-use state and
// redirects to the provider's consent page.
func (s *Server) OAuthBegin(c *fiber.Ctx) error {
	provider, err := s.providers.Get(c.Params("provider"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Provider", c.Params("provider")))
	}
	if s.tokens == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, errOAuthUnavailable)
	}

	state, err := s.tokens.Issue(c.UserContext(), cache.OAuthStatePrefix, provider.Name(), OAuthStateTTL)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.Redirect(provider.AuthCodeURL(state), fiber.StatusFound)
}

// OAuthCallback handles GET /auth/:provider/callback. On success the client
// is redirected with the access token in the URL fragment.
func (s *Server) OAuthCallback(c *fiber.Ctx) error {
	ctx := c.UserContext()
	provider, err := s.providers.Get(c.Params("provider"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Provider", c.Params("provider")))
	}
	if s.tokens == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, errOAuthUnavailable)
	}

	issuedFor, ok, err := s.tokens.Consume(ctx, cache.OAuthStatePrefix, c.Query("state"))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	if !ok || issuedFor != provider.Name() {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid OAuth state"))
	}

	if denied := c.Query("error"); denied != "" {
		return c.Redirect(s.loginFailedURL(denied), fiber.StatusFound)
	}
	code := c.Query("code")
	if code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Missing authorization code"))
	}

	profile, err := provider.Exchange(ctx, code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "oauth exchange failed",
			slog.String("provider", provider.Name()), slog.String("error", err.Error()))
		return c.Redirect(s.loginFailedURL("exchange_failed"), fiber.StatusFound)
	}

	res, err := s.userService.SyncOAuthProfile(ctx, service.OAuthProfile{
		Provider:    profile.Provider,
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL,
	})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "oauth profile sync failed",
			slog.String("provider", provider.Name()), slog.String("error", err.Error()))
		return c.Redirect(s.loginFailedURL("sync_failed"), fiber.StatusFound)
	}

	return c.Redirect(s.config.ClientURL+"/#token="+url.QueryEscape(res.Token), fiber.StatusFound)
}

func (s *Server) loginFailedURL(reason string) string {
	return s.config.ClientURL + "/login?error=" + url.QueryEscape(reason)
}
