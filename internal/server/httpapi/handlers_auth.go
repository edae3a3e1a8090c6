package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/services"
	"github.com/labstack/echo/v4"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateMeRequest struct {
	DisplayName string `json:"displayName"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	*services.TokenPair
	User *models.User `json:"user"`
}

// MeResponse carries the verified identity and the stored profile.
type MeResponse struct {
	Identity auth.Identity `json:"identity"`
	User     *models.User  `json:"user"`
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, pair, err := s.deps.Accounts.Register(c.Request().Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, SessionResponse{TokenPair: pair, User: user})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, pair, err := s.deps.Accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SessionResponse{TokenPair: pair, User: user})
}

func (s *Server) handleRefresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := s.deps.Accounts.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) handleLogout(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.deps.Accounts.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMe(c echo.Context) error {
	id, _ := IdentityFrom(c)

	user, err := s.deps.Accounts.Profile(c.Request().Context(), id.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MeResponse{Identity: id, User: user})
}

func (s *Server) handleUpdateMe(c echo.Context) error {
	id, _ := IdentityFrom(c)

	var req updateMeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := s.deps.Accounts.UpdateDisplayName(c.Request().Context(), id.ID, req.DisplayName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MeResponse{Identity: auth.IdentityFromUser(user), User: user})
}
