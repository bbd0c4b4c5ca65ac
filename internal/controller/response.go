package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/model"
	"github.com/tcon/booking-service/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError translates the service error taxonomy into HTTP statuses. The
// services never pick status codes themselves.
func (c *Controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyBooked),
		errors.Is(err, service.ErrSessionFull),
		errors.Is(err, service.ErrSlotOverlap),
		errors.Is(err, service.ErrSessionStarted):
		status = http.StatusConflict
	case errors.Is(err, service.ErrLockContention):
		status = http.StatusLocked
	case errors.Is(err, service.ErrPastWindow),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidInterval):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		c.logger.Error("request failed", zap.Error(err))
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

func (c *Controller) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
