package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskflow-api/domain"
)

// writeError maps a domain failure onto an HTTP response. The backend
// message travels with the response so clients can show diagnostics; the
// status code carries the kind.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInviteUnsupported):
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: err.Error()})
	case domain.IsTransient(err):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
