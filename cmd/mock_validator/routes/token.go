package routes

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/validation-portal/portal-client/internal/types"
)

// Token exchanges credentials for an access and refresh token pair
func (s *Server) Token(c echo.Context) error {
	var req types.TokenRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError("failed parsing request data"))
	}

	err = c.Validate(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	s.mu.Lock()
	password, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || password != req.Password {
		return c.JSON(
			http.StatusUnauthorized,
			types.StringError("No active account found with the given credentials"),
		)
	}

	return c.JSON(http.StatusOK, s.issue(req.Username))
}

// Refresh issues a new access token for a known refresh token
func (s *Server) Refresh(c echo.Context) error {
	var req types.RefreshRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError("failed parsing request data"))
	}

	err = c.Validate(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.refresh[req.Refresh]
	if !ok {
		return c.JSON(http.StatusUnauthorized, types.StringError("Token is invalid or expired"))
	}

	access := uuid.NewString()
	s.access[access] = username

	return c.JSON(http.StatusOK, types.AccessToken{Access: access})
}

// ResetCredentials changes the caller's password after checking the old one
func (s *Server) ResetCredentials(c echo.Context) error {
	var req types.ResetCredentialsRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError("failed parsing request data"))
	}

	err = c.Validate(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, types.StringError("Old password and new password are required."))
	}

	username, _ := c.Get(usernameKey).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[username] != req.OldPassword {
		return c.JSON(http.StatusBadRequest, types.StringError("Old password is incorrect."))
	}
	s.users[username] = req.NewPassword

	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully."})
}
