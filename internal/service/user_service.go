package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"agora/internal/cache"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 30 * time.Minute

// TokenStore keeps single-use tokens.
type TokenStore interface {
	Issue(ctx context.Context, prefix, value string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, prefix, token string) (string, bool, error)
}

// Mailer sends an HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// UserService implements account registration, login and recovery.
type UserService struct {
	users     repository.UserRepository
	tokens    TokenStore
	mailer    Mailer
	jwtSecret string
	clientURL string
}

// RegisterInput is the payload of a local sign-up.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,excludes=@"`
	Email    string `json:"email" validate:"required,contains=@,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginInput struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required,min=3"`
}

type newPasswordInput struct {
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// OAuthProfile is the subset of a provider profile used to sync accounts.
type OAuthProfile struct {
	Provider    string
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}

// NewUserService returns a UserService. tokens and mailer may be nil, which
// disables password recovery.
func NewUserService(users repository.UserRepository, tokens TokenStore, mailer Mailer, jwtSecret, clientURL string) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		clientURL: strings.TrimRight(clientURL, "/"),
	}
}

// Register creates a local account and returns it with an access token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.UserResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if errs := validation.Struct(in); errs != nil {
		return &models.UserResult{Errors: errs}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Username: in.Username, Email: in.Email, Password: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			return &models.UserResult{Errors: []models.FieldError{{Field: appErr.Field, Message: appErr.Message}}}, nil
		}
		return nil, err
	}
	return s.withToken(user)
}

// Login checks credentials. Input containing "@" is treated as an email.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*models.UserResult, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if errs := validation.Struct(loginInput{UsernameOrEmail: usernameOrEmail}); errs != nil {
		return &models.UserResult{Errors: errs}, nil
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.users.GetByEmail(ctx, usernameOrEmail)
	} else {
		user, err = s.users.GetByUsername(ctx, usernameOrEmail)
	}
	if models.HasCode(err, models.CodeNotFound) {
		return &models.UserResult{Errors: []models.FieldError{{Field: "usernameOrEmail", Message: "that username doesn't exist"}}}, nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return &models.UserResult{Errors: []models.FieldError{{Field: "password", Message: "incorrect password"}}}, nil
	}
	return s.withToken(user)
}

// Me returns the account of userID.
func (s *UserService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ForgotPassword mails a reset link when email belongs to an account. It
// always reports true so callers cannot probe for registered addresses.
func (s *UserService) ForgotPassword(ctx context.Context, email string) bool {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !models.HasCode(err, models.CodeNotFound) {
			middleware.Logger.ErrorContext(ctx, "password reset lookup failed", slog.String("error", err.Error()))
		}
		return true
	}
	if s.tokens == nil || s.mailer == nil {
		middleware.Logger.WarnContext(ctx, "password reset requested but recovery is not configured")
		return true
	}

	token, err := s.tokens.Issue(ctx, cache.ForgetPasswordPrefix, strconv.FormatUint(uint64(user.ID), 10), ResetTokenTTL)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "reset token issue failed", slog.String("error", err.Error()))
		return true
	}

	link := fmt.Sprintf("%s/change-password/%s", s.clientURL, token)
	body := fmt.Sprintf(`<a href="%s">reset password</a>`, html.EscapeString(link))
	if err := s.mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		middleware.Logger.ErrorContext(ctx, "reset mail failed",
			slog.Uint64("target_user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
	return true
}

// ChangePassword redeems a reset token and sets a new password. On success
// the user is signed in.
func (s *UserService) ChangePassword(ctx context.Context, token, newPassword string) (*models.UserResult, error) {
	if errs := validation.Struct(newPasswordInput{NewPassword: newPassword}); errs != nil {
		return &models.UserResult{Errors: errs}, nil
	}
	if s.tokens == nil {
		return &models.UserResult{Errors: []models.FieldError{{Field: "token", Message: "token expired"}}}, nil
	}

	value, ok, err := s.tokens.Consume(ctx, cache.ForgetPasswordPrefix, token)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return &models.UserResult{Errors: []models.FieldError{{Field: "token", Message: "token expired"}}}, nil
	}

	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user, err := s.users.GetByID(ctx, uint(id))
	if models.HasCode(err, models.CodeNotFound) {
		return &models.UserResult{Errors: []models.FieldError{{Field: "token", Message: "user no longer exists"}}}, nil
	}
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, err
	}
	user.Password = string(hash)
	return s.withToken(user)
}

// OAuthMask tags a provider-supplied value so it cannot collide with local
// accounts.
func OAuthMask(value, provider string) string {
	return value + ".oauth2." + provider
}

// SyncOAuthProfile finds or creates the account linked to the provider
// profile and refreshes its username, email and avatar.
func (s *UserService) SyncOAuthProfile(ctx context.Context, p OAuthProfile) (*models.UserResult, error) {
	if p.ID == "" {
		return nil, models.NewValidationError("provider profile has no id")
	}
	username := OAuthMask(p.DisplayName, p.Provider)
	email := p.Email
	if email == "" {
		email = p.ID + "@" + p.Provider
	}
	email = OAuthMask(email, p.Provider)

	user, err := s.users.GetByProviderID(ctx, p.Provider, p.ID)
	switch {
	case err == nil:
		// a suffixed name given at signup still matches its display name
		suffixed := oauthFallbackUsername(p)
		usernameChanged := user.Username != username && user.Username != suffixed
		emailChanged := user.Email != email
		avatarChanged := p.AvatarURL != "" && user.Avatar != p.AvatarURL

		current := user.Username
		if usernameChanged {
			user.Username = username
		}
		if emailChanged {
			user.Email = email
		}
		if avatarChanged {
			user.Avatar = p.AvatarURL
		}
		if !usernameChanged && !emailChanged && !avatarChanged {
			return s.withToken(user)
		}

		err := s.users.Update(ctx, user)
		if usernameChanged && isUsernameConflict(err) {
			// the new display name is taken; keep the account reachable
			user.Username = current
			err = s.users.Update(ctx, user)
		}
		if err != nil {
			return nil, err
		}
		return s.withToken(user)
	case !models.HasCode(err, models.CodeNotFound):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	providerID := p.ID
	user = &models.User{Username: username, Email: email, Password: string(hash), Avatar: p.AvatarURL}
	switch p.Provider {
	case repository.ProviderGoogle:
		user.GoogleID = &providerID
	case repository.ProviderFacebook:
		user.FacebookID = &providerID
	default:
		return nil, models.NewValidationError("unsupported provider " + p.Provider)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if !models.HasCode(err, models.CodeConflict) {
			return nil, err
		}
		// display names are not unique across providers
		user.ID = 0
		user.Username = oauthFallbackUsername(p)
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}
	return s.withToken(user)
}

func (s *UserService) withToken(user *models.User) (*models.UserResult, error) {
	token, err := middleware.IssueToken(s.jwtSecret, user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.UserResult{User: user, Token: token}, nil
}

// oauthFallbackUsername is the username used when the masked display name is
// already taken.
func oauthFallbackUsername(p OAuthProfile) string {
	return OAuthMask(p.DisplayName+"-"+shortID(p.ID), p.Provider)
}

func isUsernameConflict(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeConflict && appErr.Field == "username"
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[len(id)-6:]
	}
	return id
}
