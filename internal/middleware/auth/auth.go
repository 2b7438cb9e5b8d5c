package authmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/internal/logging"
	"github.com/Skotchmaster/sweet_shop/internal/models"
)

const userKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Middleware struct {
	Auth Authenticator
}

func New(auth Authenticator) *Middleware {
	return &Middleware{Auth: auth}
}

type validatorFunc func(user *models.User) error

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(user *models.User) error {
		if !user.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}
		return nil
	})
}

func (m *Middleware) requireAuthWithValidator(next echo.HandlerFunc, validator validatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "auth")

		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
			return echo.NewHTTPError(http.StatusUnauthorized, "No token provided, authorization denied")
		}

		user, err := m.Auth.Authenticate(ctx, token)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Token is not valid")
		}

		if validator != nil {
			if vErr := validator(user); vErr != nil {
				l.Warn("auth_failed", "status", 403, "reason", "role check failed", "user_id", user.ID, "role", user.Role)
				return vErr
			}
		}

		setUserContext(c, user)
		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func setUserContext(c echo.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set("user_id", user.ID.String())
	c.Set("role", string(user.Role))
	ctx := logging.IntoContext(c.Request().Context(), logging.FromContext(c.Request().Context()).With("user_id", user.ID.String()))
	c.SetRequest(c.Request().WithContext(ctx))
}

// UserFromContext returns the user stored by RequireAuth or RequireAdmin.
func UserFromContext(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userKey).(*models.User)
	return u, ok && u != nil
}
