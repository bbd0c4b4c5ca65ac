package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/tcon/booking-service/internal/model"
	"github.com/tcon/booking-service/internal/service"
)

type createBookingPayload struct {
	SessionID    string          `json:"session_id"`
	TeacherID    string          `json:"teacher_id"`
	StudentName  string          `json:"student_name"`
	StudentEmail string          `json:"student_email"`
	Subject      string          `json:"subject"`
	SessionStart *time.Time      `json:"session_start_time"`
	SessionEnd   *time.Time      `json:"session_end_time"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Notes        string          `json:"notes"`
}

func (c *Controller) createBooking(w http.ResponseWriter, r *http.Request) {
	var payload createBookingPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	req := service.CreateBookingRequest{
		SessionID:    payload.SessionID,
		TeacherID:    payload.TeacherID,
		StudentName:  payload.StudentName,
		StudentEmail: payload.StudentEmail,
		Subject:      payload.Subject,
		SessionStart: payload.SessionStart,
		SessionEnd:   payload.SessionEnd,
		Amount:       payload.Amount,
		Currency:     payload.Currency,
		Notes:        payload.Notes,
	}

	// Lock contention is transient, so retry a few times before surfacing
	// 423 to the caller.
	var booking *model.Booking
	backoff := retry.WithMaxRetries(3, retry.NewConstant(100*time.Millisecond))
	err := retry.Do(r.Context(), backoff, func(ctx context.Context) error {
		var createErr error
		booking, createErr = c.bookings.Create(ctx, callerID(r), req)
		if errors.Is(createErr, service.ErrLockContention) {
			return retry.RetryableError(createErr)
		}
		return createErr
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusCreated, booking)
}

type batchSessionPayload struct {
	SessionStart time.Time       `json:"session_start_time"`
	SessionEnd   time.Time       `json:"session_end_time"`
	Amount       decimal.Decimal `json:"amount"`
}

type batchBookingPayload struct {
	TeacherID    string                `json:"teacher_id"`
	StudentName  string                `json:"student_name"`
	StudentEmail string                `json:"student_email"`
	Subject      string                `json:"subject"`
	Sessions     []batchSessionPayload `json:"sessions"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	Currency     string                `json:"currency"`
	Notes        string                `json:"notes"`
}

func (c *Controller) createBatchBooking(w http.ResponseWriter, r *http.Request) {
	var payload batchBookingPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	req := service.BatchBookingRequest{
		TeacherID:    payload.TeacherID,
		StudentName:  payload.StudentName,
		StudentEmail: payload.StudentEmail,
		Subject:      payload.Subject,
		TotalAmount:  payload.TotalAmount,
		Currency:     payload.Currency,
		Notes:        payload.Notes,
	}
	for _, s := range payload.Sessions {
		req.Sessions = append(req.Sessions, service.BatchSessionSlot{
			SessionStart: s.SessionStart,
			SessionEnd:   s.SessionEnd,
			Amount:       s.Amount,
		})
	}

	booking, err := c.bookings.CreateBatch(r.Context(), callerID(r), req)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusCreated, booking)
}

func (c *Controller) getBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := c.bookings.GetByID(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

type approvePayload struct {
	Message string `json:"message"`
}

func (c *Controller) approveBooking(w http.ResponseWriter, r *http.Request) {
	var payload approvePayload
	_ = render.DecodeJSON(r.Body, &payload)

	booking, err := c.bookings.Approve(r.Context(), chi.URLParam(r, "bookingID"), callerID(r), payload.Message)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

func (c *Controller) rejectBooking(w http.ResponseWriter, r *http.Request) {
	var payload rejectPayload
	_ = render.DecodeJSON(r.Body, &payload)

	booking, err := c.bookings.Reject(r.Context(), chi.URLParam(r, "bookingID"), callerID(r), payload.Reason)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

type confirmPayload struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
}

func (c *Controller) confirmBooking(w http.ResponseWriter, r *http.Request) {
	var payload confirmPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	booking, err := c.bookings.Confirm(r.Context(), chi.URLParam(r, "bookingID"), payload.PaymentID, payload.TransactionID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

func (c *Controller) completeBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := c.bookings.Complete(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

type cancelPayload struct {
	Reason string `json:"reason"`
}

func (c *Controller) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var payload cancelPayload
	_ = render.DecodeJSON(r.Body, &payload)

	booking, err := c.cancellations.Cancel(r.Context(), chi.URLParam(r, "bookingID"), callerID(r), payload.Reason)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

func (c *Controller) markNoShow(w http.ResponseWriter, r *http.Request) {
	booking, err := c.bookings.MarkNoShow(r.Context(), chi.URLParam(r, "bookingID"), callerID(r))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, booking)
}

func (c *Controller) getStudentBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := c.bookings.GetStudentBookings(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, bookings)
}

func (c *Controller) getStudentUpcomingBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := c.bookings.GetStudentUpcomingBookings(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, bookings)
}

func (c *Controller) getTeacherBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := c.bookings.GetTeacherBookings(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, bookings)
}

func (c *Controller) getTeacherPendingRequests(w http.ResponseWriter, r *http.Request) {
	bookings, err := c.bookings.GetTeacherPendingRequests(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, bookings)
}

func (c *Controller) getSessionBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := c.bookings.GetSessionBookings(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, bookings)
}
