// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/app/services"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Locals keys set by the auth middleware
const (
	LocalViewerID    = "viewer_id"
	LocalViewerRole  = "viewer_role"
	LocalTokenID     = "token_id"
	LocalTokenClaims = "token_claims"
	LocalRequestID   = "request_id"
)

// maxViewerIDLength matches the viewer_id column width
const maxViewerIDLength = 64

// AuthMiddleware handles JWT token validation and viewer identification
type AuthMiddleware struct {
	tokenService   services.TokenService
	viewerIDHeader string
}

// NewAuthMiddleware creates a new authentication middleware. viewerIDHeader names the
// header anonymous clients use to identify themselves; empty disables it.
func NewAuthMiddleware(tokenService services.TokenService, viewerIDHeader string) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService:   tokenService,
		viewerIDHeader: viewerIDHeader,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

func bearerToken(c fiber.Ctx) (string, string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "MISSING_AUTHORIZATION_HEADER", "Authorization header is required"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "MISSING_ACCESS_TOKEN", "Access token is required"
	}
	return token, "", ""
}

func tokenErrorDetail(err error) (string, string) {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return "TOKEN_EXPIRED", "Access token has expired"
	case errors.Is(err, services.ErrTokenInvalid):
		return "TOKEN_INVALID", "Invalid access token"
	case errors.Is(err, services.ErrTokenRevoked):
		return "TOKEN_REVOKED", "Access token has been revoked"
	default:
		return "TOKEN_VALIDATION_FAILED", "Token validation failed"
	}
}

func storeClaims(c fiber.Ctx, claims *services.TokenClaims) {
	c.Locals(LocalViewerID, viewerIDFromSubject(claims.Subject))
	c.Locals(LocalViewerRole, claims.Role)
	c.Locals(LocalTokenID, claims.TokenID)
	c.Locals(LocalTokenClaims, claims)

	if requestID := requestid.FromContext(c); requestID != "" {
		c.Locals(LocalRequestID, requestID)
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, code, message := bearerToken(c)
		if token == "" {
			return unauthorized(c, message, code)
		}

		// Validate the token (this already checks for revocation)
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			code, message := tokenErrorDetail(err)
			return unauthorized(c, message, code)
		}

		storeClaims(c, claims)
		return c.Next()
	}
}

// RequireRole rejects authenticated callers whose token role differs from role
func RequireRole(role string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if got, _ := c.Locals(LocalViewerRole).(string); got != role {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Insufficient permissions",
				Error:   dto.ErrorDetail{Code: "FORBIDDEN"},
			})
		}
		return c.Next()
	}
}

// OptionalAuth identifies the viewer from a bearer token when a valid one is present,
// otherwise from the viewer id header. Requests with neither stay anonymous.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		if token, _, _ := bearerToken(c); token != "" {
			if claims, err := m.tokenService.ValidateToken(token); err == nil {
				storeClaims(c, claims)
				return c.Next()
			}
		}

		if m.viewerIDHeader != "" {
			if viewerID := sanitizeViewerID(c.Get(m.viewerIDHeader)); viewerID != "" {
				c.Locals(LocalViewerID, viewerID)
				c.Locals(LocalViewerRole, utils.ViewerRoleGuest)
			}
		}

		if requestID := requestid.FromContext(c); requestID != "" {
			c.Locals(LocalRequestID, requestID)
		}
		return c.Next()
	}
}

func sanitizeViewerID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxViewerIDLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}

// viewerIDFromSubject keeps short printable subjects and folds any other subject
// into a fixed-width key that fits the viewer_id column.
func viewerIDFromSubject(subject string) string {
	if subject == "" {
		return ""
	}
	if id := sanitizeViewerID(subject); id == subject {
		return id
	}
	return fmt.Sprintf("sub-%016x", xxhash.Sum64String(subject))
}

// GetViewerFromContext returns the viewer id and role; an anonymous request yields empty strings
func GetViewerFromContext(c fiber.Ctx) (string, string) {
	id, _ := c.Locals(LocalViewerID).(string)
	role, _ := c.Locals(LocalViewerRole).(string)
	return id, role
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals(LocalTokenClaims).(*services.TokenClaims)
	return claims, ok
}
