package handlers

import (
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	AdminLogin(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
}

// AuthHandler handles account and admin authentication
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow, logger *zap.Logger, exposeDetails bool, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(logger, exposeDetails, timeout),
		authFlow:    authFlow,
	}
}

// loginFailed hides which check failed so usernames cannot be probed
func (h *AuthHandler) loginFailed(c fiber.Ctx, err error, endpoint string) error {
	if businessflow.IsAccountNotFound(err) || businessflow.IsAdminNotFound(err) ||
		businessflow.IsIncorrectPassword(err) {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid username or password", "INVALID_CREDENTIALS", nil)
	}
	if businessflow.IsAccountInactive(err) || businessflow.IsAdminInactive(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", nil)
	}
	return h.BusinessErrorResponse(c, err, endpoint)
}

// Login authenticates an account
// @Summary Account Login
// @Description Authenticate a user or affiliate with username and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Account inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	const endpoint = "/api/auth/login"

	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.authFlow.Login(ctx, &req, h.metadata(c))
	if err != nil {
		return h.loginFailed(c, err, endpoint)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// AdminLogin authenticates an admin
// @Summary Admin Login
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Admin inactive"
// @Router /api/admin/auth/login [post]
func (h *AuthHandler) AdminLogin(c fiber.Ctx) error {
	const endpoint = "/api/admin/auth/login"

	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.authFlow.AdminLogin(ctx, &req, h.metadata(c))
	if err != nil {
		return h.loginFailed(c, err, endpoint)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// RefreshToken exchanges a refresh token for a new token pair
// @Summary Refresh Token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.SessionDTO} "Token refreshed"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	const endpoint = "/api/auth/refresh"

	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	session, err := h.authFlow.RefreshToken(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Token refreshed", session)
}
