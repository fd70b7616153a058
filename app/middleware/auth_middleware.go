// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/services"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// bearerToken extracts the token from the Authorization header; ok is false after the 401 was written
func bearerToken(c fiber.Ctx) (token string, ok bool, err error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false, unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false, unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
	}

	token = strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", false, unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
	}
	return token, true, nil
}

func tokenError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
	case errors.Is(err, services.ErrTokenInvalid):
		return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
	case errors.Is(err, services.ErrTokenRevoked):
		return unauthorized(c, "Access token has been revoked", "TOKEN_REVOKED")
	default:
		return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
	}
}

// Authenticate validates account access tokens and stores account_id and role for the handlers
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok, err := bearerToken(c)
		if !ok {
			return err
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			return tokenError(c, err)
		}
		if claims.TokenType != "access" {
			return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
		}

		c.Locals("account_id", claims.AccountID)
		c.Locals("account_role", claims.Role)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// AdminAuthenticate validates admin access tokens and stores admin_id for the handlers
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok, err := bearerToken(c)
		if !ok {
			return err
		}

		adminClaims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			return tokenError(c, err)
		}
		if adminClaims.TokenType != "access" {
			return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
		}

		c.Locals("admin_id", adminClaims.AdminID)
		c.Locals("token_id", adminClaims.TokenID)
		c.Locals("token_claims", adminClaims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// GetAccountIDFromContext extracts the authenticated account id
func GetAccountIDFromContext(c fiber.Ctx) (uint, bool) {
	accountID, ok := c.Locals("account_id").(uint)
	return accountID, ok && accountID != 0
}

// GetAccountRoleFromContext extracts the role carried by the account token
func GetAccountRoleFromContext(c fiber.Ctx) (string, bool) {
	role, ok := c.Locals("account_role").(string)
	return role, ok
}

// GetAdminIDFromContext extracts admin ID from the request context
func GetAdminIDFromContext(c fiber.Ctx) (uint, bool) {
	adminID, ok := c.Locals("admin_id").(uint)
	return adminID, ok && adminID != 0
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
