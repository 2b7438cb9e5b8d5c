package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
)

var sentinels = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrValidation, http.StatusBadRequest, "Validation failed"},
	{service.ErrInsufficientStock, http.StatusBadRequest, "Insufficient stock"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "Token is not valid"},
	{service.ErrForbidden, http.StatusForbidden, "Admin access required"},
	{service.ErrNotFound, http.StatusNotFound, "Not found"},
	{service.ErrConflict, http.StatusConflict, "Conflict"},
}

// httpError maps a service error onto a status and a client-safe message.
// The detail after the sentinel prefix is surfaced for 4xx errors only.
func httpError(err error) (int, string) {
	for _, s := range sentinels {
		if !errors.Is(err, s.err) {
			continue
		}
		detail := strings.TrimPrefix(err.Error(), s.err.Error()+": ")
		if detail == err.Error() {
			return s.status, s.msg
		}
		return s.status, capitalize(detail)
	}
	return http.StatusInternalServerError, "internal server error"
}

// fail logs err at the level its status deserves and converts it to an HTTPError.
func fail(l *slog.Logger, event string, err error) error {
	status, msg := httpError(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

// ErrorHandler renders every error, including echo's own, as an envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var status int
	var msg string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		if status >= http.StatusInternalServerError && he.Internal != nil {
			msg = "internal server error"
		}
	} else {
		status, msg = httpError(err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, transport.Envelope{Success: false, Message: msg})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
