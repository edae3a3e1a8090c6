package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/labstack/echo/v4"
)

type statusRequest struct {
	IsActive *bool `json:"isActive"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type usersResponse struct {
	Users []*models.User `json:"users"`
}

func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.deps.Accounts.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*models.User{}
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users})
}

func (s *Server) handleSetStatus(c echo.Context) error {
	actor, _ := IdentityFrom(c)

	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.IsActive == nil {
		return fmt.Errorf("%w: isActive is required", common.ErrorValidation)
	}

	user, err := s.deps.Accounts.SetActive(c.Request().Context(), actor.ID, c.Param("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleSetRole(c echo.Context) error {
	actor, _ := IdentityFrom(c)

	var req roleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	user, err := s.deps.Accounts.SetRole(c.Request().Context(), actor.ID, c.Param("id"), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
