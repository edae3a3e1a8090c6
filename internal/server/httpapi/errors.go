package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type apiError struct {
	status  int
	message string
	code    string
}

const internalErrorCode = "internal_error"

var errInvalidBody = errors.New("invalid request body")

// classify maps an error returned by a handler or middleware to its HTTP form.
func classify(err error) apiError {
	if r, ok := auth.RejectionFor(err); ok {
		status := http.StatusUnauthorized
		if r.Forbidden {
			status = http.StatusForbidden
		}
		return apiError{status: status, message: r.Message, code: r.Code}
	}

	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return apiError{http.StatusUnauthorized, "Invalid email or password", "invalid_credentials"}
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return apiError{http.StatusUnauthorized, "Refresh token expired", "refresh_token_expired"}
	case errors.Is(err, common.ErrorValidation):
		return apiError{http.StatusBadRequest, validationMessage(err), "validation_error"}
	case errors.Is(err, errInvalidBody):
		return apiError{http.StatusBadRequest, "Invalid request body", "validation_error"}
	case errors.Is(err, common.ErrorAlreadyExists):
		return apiError{http.StatusConflict, "Email already registered", "already_exists"}
	case errors.Is(err, common.ErrorNotFound):
		return apiError{http.StatusNotFound, "Not found", "not_found"}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		return apiError{he.Code, http.StatusText(he.Code), httpCode(he.Code)}
	}

	return apiError{http.StatusInternalServerError, "Internal server error", internalErrorCode}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	if msg == "" || msg == common.ErrorValidation.Error() {
		return "Invalid request"
	}
	return msg
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusBadRequest:
		return "validation_error"
	default:
		return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ae := classify(err)
	if ae.status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "unhandled error", "error", err.Error(), "path", c.Path())
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(ae.status)
		return
	}
	if werr := c.JSON(ae.status, ErrorResponse{Error: ae.message, Code: ae.code}); werr != nil {
		s.logger.Error(c.Request().Context(), "failed to write error response", "error", werr.Error())
	}
}
