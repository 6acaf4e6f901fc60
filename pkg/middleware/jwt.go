package middleware

import (
	"errors"
	"net/http"
	"strings"

	"NoticeBoard/internal/auth"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenVerifier parses a raw bearer token into claims.
type TokenVerifier interface {
	Parse(raw string) (*auth.Claims, error)
}

// JWT verifies the bearer token and stores its claims on the context. The
// token is read from "Authorization: Bearer <token>" or, failing that, from
// a bare "token" header.
func JWT(tokens TokenVerifier, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := tokens.Parse(extractToken(c.Request()))
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "No token provided"})
			case err != nil:
				log.Debug("rejected token", zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusForbidden, map[string]string{"message": "Invalid or expired token"})
			}
			auth.SetClaims(c, claims)
			return next(c)
		}
	}
}

func extractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization)); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return h
	}
	return strings.TrimSpace(r.Header.Get("token"))
}
