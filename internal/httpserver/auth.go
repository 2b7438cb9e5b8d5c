package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/internal/logging"
	authmw "github.com/Skotchmaster/sweet_shop/internal/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return fail(l, "register_error", err)
	}

	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, transport.Envelope{
		Success: true,
		Message: "User registered successfully",
		Data:    authData(res),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return fail(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Message: "Login successful",
		Data:    authData(res),
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user, ok := authmw.UserFromContext(c)
	if !ok {
		return fail(logging.FromContext(c.Request().Context()), "me_error", fmt.Errorf("%w: no user in context", service.ErrUnauthorized))
	}
	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Data:    transport.UserData{User: transport.NewUserView(user)},
	})
}

func authData(res *service.AuthResult) transport.AuthData {
	return transport.AuthData{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      transport.NewUserView(res.User),
	}
}
