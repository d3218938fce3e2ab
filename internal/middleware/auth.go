package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hotelworks/backoffice/internal/service"
	"github.com/hotelworks/backoffice/internal/tokens"
)

const (
	ContextAccountID = "account_id"
	ContextUsername  = "username"
	ContextRole      = "role"
)

type BearerAuth struct {
	Issuer *tokens.Issuer
	Policy service.AuthorizationPolicy
}

func NewBearerAuth(issuer *tokens.Issuer, policy service.AuthorizationPolicy) *BearerAuth {
	if policy == nil {
		policy = service.AllowAll{}
	}
	return &BearerAuth{Issuer: issuer, Policy: policy}
}

// RequireAuth verifies the Authorization bearer token and stashes the
// identity in the echo context. Every failure is the same opaque 401.
func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Issuer.ParseAccess(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		accountID, err := tokens.ParseSubject(claims.Subject)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		if !m.Policy.Allowed(c.Request().Context(), claims.Role, c.Path()) {
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}

		c.Set(ContextAccountID, accountID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)

		return next(c)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
