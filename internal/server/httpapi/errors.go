package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/labstack/echo/v4"
)

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

type errorMapping struct {
	err    error
	status int
	body   any
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{common.ErrInvalidCredentials, http.StatusBadRequest,
		map[string][]string{"old_password": {"Your old password was entered incorrectly. Please enter it again."}}},
	{common.ErrInvalidToken, http.StatusBadRequest, map[string]string{"error": "Invalid token or user ID"}},
	{common.ErrAlreadyExists, http.StatusConflict, detail("The provided email address already has an account.")},
	{common.ErrAuthenticationFailed, http.StatusUnauthorized, detail("No active account found with the given credentials")},
	{common.ErrUnauthenticated, http.StatusUnauthorized, detail("Given token not valid for any token type")},
	{common.ErrAccountNotActive, http.StatusForbidden, detail("Account is not active. Please verify your email address.")},
	{common.ErrNotFound, http.StatusNotFound, detail("Not found.")},
	{common.ErrPreconditionFailed, http.StatusPreconditionFailed, detail("The account is not in a state that allows this operation.")},
	{common.ErrValidation, http.StatusBadRequest, detail("Invalid input.")},
	{common.ErrWeakPassword, http.StatusBadRequest, detail("Invalid input.")},
}

// handleError is the echo error handler. Service errors become the JSON
// bodies clients of the account API expect; anything unknown is a 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorResponse(err, c)

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		s.logger.Error(c.Request().Context(), "writing error response", "error", werr)
	}
}

func (s *Server) errorResponse(err error, c echo.Context) (int, any) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return he.Code, detail(msg)
	}

	var fe *common.FieldErrors
	if errors.As(err, &fe) && !fe.Empty() {
		return http.StatusBadRequest, fe.Fields
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.body
		}
	}

	s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	return http.StatusInternalServerError, map[string]string{"error": "internal error"}
}
