package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// BridgeSecretHeader authenticates the upstream OAuth bridge.
const BridgeSecretHeader = "X-Auth-Bridge-Secret"

// AuthHandler exposes sign-in, sign-out, registration and verification endpoints.
type AuthHandler struct {
	auth          *service.AuthService
	cookies       auth.CookieOptions
	bridgeSecret  string
	loginRedirect string
}

// AuthHandlerOptions configures AuthHandler.
type AuthHandlerOptions struct {
	Cookies              auth.CookieOptions
	OAuthBridgeSecret    string
	DefaultLoginRedirect string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		cookies:       opts.Cookies,
		bridgeSecret:  opts.OAuthBridgeSecret,
		loginRedirect: opts.DefaultLoginRedirect,
	}
}

// Login handles POST /api/auth/callback/credentials.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	result, err := h.auth.LoginWithCredentials(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return signInError(err)
	}
	return h.respondSignedIn(c, result)
}

// OAuthCallback handles POST /api/auth/callback/:provider for identities asserted by the OAuth bridge.
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	if h.bridgeSecret == "" {
		return fiber.NewError(http.StatusNotFound, "oauth sign-in not enabled")
	}
	presented := c.Get(BridgeSecretHeader)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.bridgeSecret)) != 1 {
		return apperrors.NewUnauthorized("invalid bridge credentials")
	}

	var req dto.OAuthCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	result, err := h.auth.SignInWithOAuth(c.UserContext(), domain.Identity{
		Provider:          c.Params("provider"),
		ProviderAccountID: req.ProviderAccountID,
		Email:             req.Email,
		Name:              req.Name,
	})
	if err != nil {
		if errors.Is(err, service.ErrOAuthAccountNotLinked) {
			return apperrors.NewConflict("Email already in use with different provider!", nil)
		}
		return signInError(err)
	}
	return h.respondSignedIn(c, result)
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return c.JSON(dto.SessionResponse{})
	}
	resp := dto.SessionResponse{User: session}
	if claims, ok := auth.ClaimsFromContext(c); ok && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.Expires = &exp
	}
	return c.JSON(resp)
}

// SignOut handles POST /api/auth/signout.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	auth.ClearSessionCookie(c, h.cookies)
	if claims, ok := auth.ClaimsFromContext(c); ok {
		if err := h.auth.Logout(c.UserContext(), claims); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	return c.JSON(dto.MessageResponse{Success: "Signed out!"})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	if _, err := h.auth.Register(c.UserContext(), strings.TrimSpace(req.Name), req.Email, req.Password); err != nil {
		if errors.Is(err, service.ErrEmailInUse) {
			return apperrors.NewConflict("Email already in use!", nil)
		}
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.MessageResponse{Success: "Confirmation email sent!"})
}

// NewVerification handles POST /api/auth/new-verification.
func (h *AuthHandler) NewVerification(c *fiber.Ctx) error {
	var req dto.NewVerificationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if req.Token == "" {
		return apperrors.NewValidationError("Missing token!", nil)
	}

	if err := h.auth.VerifyEmail(c.UserContext(), req.Token); err != nil {
		return tokenError(err)
	}
	return c.JSON(dto.MessageResponse{Success: "Email verified!"})
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		return apperrors.NewValidationError("Token does not exist!", nil)
	case errors.Is(err, service.ErrTokenExpired):
		return apperrors.NewValidationError("Token has expired!", nil)
	case errors.Is(err, service.ErrEmailNotFound):
		return apperrors.NewValidationError("Email does not exist!", nil)
	default:
		return apperrors.MapError(err)
	}
}

// Reset handles POST /api/auth/reset. The response is identical whether or not the email exists.
func (h *AuthHandler) Reset(c *fiber.Ctx) error {
	var req dto.ResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.MessageResponse{Success: "Reset email sent!"})
}

// NewPassword handles POST /api/auth/new-password.
func (h *AuthHandler) NewPassword(c *fiber.Ctx) error {
	var req dto.NewPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return tokenError(err)
	}
	return c.JSON(dto.MessageResponse{Success: "Password updated!"})
}

func (h *AuthHandler) respondSignedIn(c *fiber.Ctx, result *service.SignInResult) error {
	auth.SetSessionCookie(c, h.cookies, result.Token, result.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			Session:   result.Session,
		},
		"redirectTo": h.loginRedirect,
	})
}

func signInError(err error) error {
	if errors.Is(err, service.ErrAdmissionDenied) {
		return apperrors.NewSignInFailed()
	}
	return apperrors.MapError(err)
}

// validationError flattens ozzo field errors into the error details map.
func validationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return apperrors.NewValidationError("Invalid fields!", details)
}
