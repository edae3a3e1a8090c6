package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

func (s *Server) handleUploadURL(c echo.Context) error {
	id, _ := IdentityFrom(c)

	var req uploadURLRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	target, err := s.deps.Attachments.UploadURL(c.Request().Context(), id.ID, req.Filename, req.ContentType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, target)
}
