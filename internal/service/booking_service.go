package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/event"
	"github.com/tcon/booking-service/internal/lock"
	"github.com/tcon/booking-service/internal/model"
)

// paymentWindow is how long a booking may sit in PENDING_PAYMENT before the
// expiry sweep marks it EXPIRED.
const paymentWindow = 24 * time.Hour

type CreateBookingRequest struct {
	SessionID    string
	TeacherID    string
	StudentName  string
	StudentEmail string
	Subject      string
	SessionStart *time.Time
	SessionEnd   *time.Time
	Amount       decimal.Decimal
	Currency     string
	Notes        string
}

type BatchSessionSlot struct {
	SessionStart time.Time
	SessionEnd   time.Time
	Amount       decimal.Decimal
}

type BatchBookingRequest struct {
	TeacherID    string
	StudentName  string
	StudentEmail string
	Subject      string
	Sessions     []BatchSessionSlot
	TotalAmount  decimal.Decimal
	Currency     string
	Notes        string
}

type BookingService struct {
	bookingStore BookingStore
	sessionStore SessionStore
	guard        lock.Guard
	sink         event.Sink
	logger       *zap.Logger
	now          func() time.Time
}

func NewBookingService(
	bookingStore BookingStore,
	sessionStore SessionStore,
	guard lock.Guard,
	sink event.Sink,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookingStore: bookingStore,
		sessionStore: sessionStore,
		guard:        guard,
		sink:         sink,
		logger:       logger,
		now:          time.Now,
	}
}

// Create books a session for a student. With SessionID set it books an
// existing session; with TeacherID and a time window it creates the session
// as part of the call (direct one-on-one booking). Either way the booking
// starts at PENDING awaiting teacher approval.
func (s *BookingService) Create(ctx context.Context, studentID string, req CreateBookingRequest) (*model.Booking, error) {
	if req.StudentName == "" {
		return nil, fmt.Errorf("%w: student name is required", ErrInvalidRequest)
	}
	if req.StudentEmail == "" {
		return nil, fmt.Errorf("%w: student email is required", ErrInvalidRequest)
	}

	switch {
	case req.SessionID != "":
		return s.createForSession(ctx, studentID, req)
	case req.TeacherID != "":
		return s.createDirect(ctx, studentID, req)
	default:
		return nil, fmt.Errorf("%w: either session_id or teacher_id is required", ErrInvalidRequest)
	}
}

func (s *BookingService) createForSession(ctx context.Context, studentID string, req CreateBookingRequest) (*model.Booking, error) {
	session, err := s.sessionStore.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrNotFound
	}

	if session.Status != model.SessionStatusScheduled {
		return nil, ErrInvalidState
	}
	if session.ScheduledStart.Before(s.now()) {
		return nil, ErrPastWindow
	}

	// Holder is per attempt, not per student, so two requests by the same
	// student still serialize.
	lockKey := "session:" + req.SessionID
	holder := uuid.NewString()
	if !s.guard.Acquire(ctx, lockKey, holder) {
		return nil, ErrLockContention
	}
	defer s.guard.Release(ctx, lockKey, holder)

	// Re-check duplicate and capacity under the lock; a competing create
	// serialized behind us must see our write.
	exists, err := s.bookingStore.ExistsBySessionAndStudent(ctx, req.SessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check existing booking: %w", err)
	}
	if exists {
		return nil, ErrAlreadyBooked
	}

	confirmed, err := s.bookingStore.CountBySessionAndStatus(ctx, req.SessionID, model.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("count confirmed bookings: %w", err)
	}
	if session.MaxParticipants > 0 && confirmed >= int64(session.MaxParticipants) {
		return nil, ErrSessionFull
	}

	now := s.now()
	booking := &model.Booking{
		ID:                 uuid.NewString(),
		SessionID:          session.ID,
		StudentID:          studentID,
		StudentName:        req.StudentName,
		StudentEmail:       req.StudentEmail,
		TeacherID:          session.TeacherID,
		Subject:            session.Title,
		DurationMinutes:    session.DurationMinutes,
		SessionStart:       &session.ScheduledStart,
		SessionEnd:         &session.ScheduledEnd,
		Status:             model.BookingStatusPending,
		Amount:             req.Amount,
		Currency:           currencyOrDefault(req.Currency),
		BookedAt:           now,
		CancellationPolicy: model.DefaultCancellationPolicy(),
		Notes:              req.Notes,
	}

	if err := s.bookingStore.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("session_id", session.ID),
		zap.String("student_id", studentID))

	s.publish(ctx, event.TypeBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) createDirect(ctx context.Context, studentID string, req CreateBookingRequest) (*model.Booking, error) {
	if req.SessionStart == nil || req.SessionEnd == nil {
		return nil, fmt.Errorf("%w: session start and end times are required", ErrInvalidRequest)
	}
	if req.SessionStart.Before(s.now()) {
		return nil, ErrPastWindow
	}
	if !req.SessionEnd.After(*req.SessionStart) {
		return nil, fmt.Errorf("%w: session end time must be after start time", ErrInvalidRequest)
	}

	duration := int(req.SessionEnd.Sub(*req.SessionStart).Minutes())

	// Conflicting sessions do not block a direct request; the teacher
	// resolves conflicts at approval time.
	overlapping, err := s.sessionStore.GetByTeacherInRange(ctx, req.TeacherID,
		req.SessionStart.Add(-time.Minute), req.SessionEnd.Add(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("check overlapping sessions: %w", err)
	}
	if len(overlapping) > 0 {
		s.logger.Warn("creating booking over overlapping sessions",
			zap.String("teacher_id", req.TeacherID),
			zap.Int("overlapping", len(overlapping)))
	}

	title := req.Subject
	if title == "" {
		title = "One-on-One Class"
	}

	now := s.now()
	session := &model.ClassSession{
		ID:              uuid.NewString(),
		SessionType:     model.SessionTypeOneOnOne,
		TeacherID:       req.TeacherID,
		StudentID:       studentID,
		Title:           title,
		Description:     "Direct booking with " + req.StudentName,
		Status:          model.SessionStatusScheduled,
		ScheduledStart:  *req.SessionStart,
		ScheduledEnd:    *req.SessionEnd,
		DurationMinutes: duration,
		MaxParticipants: 1,
	}
	if err := s.sessionStore.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	lockKey := "session:" + session.ID
	holder := uuid.NewString()
	if !s.guard.Acquire(ctx, lockKey, holder) {
		return nil, ErrLockContention
	}
	defer s.guard.Release(ctx, lockKey, holder)

	booking := &model.Booking{
		ID:                 uuid.NewString(),
		SessionID:          session.ID,
		StudentID:          studentID,
		StudentName:        req.StudentName,
		StudentEmail:       req.StudentEmail,
		TeacherID:          req.TeacherID,
		Subject:            req.Subject,
		DurationMinutes:    duration,
		SessionStart:       req.SessionStart,
		SessionEnd:         req.SessionEnd,
		Status:             model.BookingStatusPending,
		Amount:             req.Amount,
		Currency:           currencyOrDefault(req.Currency),
		BookedAt:           now,
		CancellationPolicy: model.DefaultCancellationPolicy(),
		Notes:              req.Notes,
	}
	if err := s.bookingStore.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := s.sessionStore.SetBookingID(ctx, session.ID, booking.ID); err != nil {
		return nil, fmt.Errorf("link session to booking: %w", err)
	}

	s.logger.Info("direct booking created",
		zap.String("booking_id", booking.ID),
		zap.String("session_id", session.ID),
		zap.String("teacher_id", req.TeacherID),
		zap.Int("duration_minutes", duration))

	s.publish(ctx, event.TypeBookingCreated, booking)
	return booking, nil
}

// CreateBatch creates one booking covering several session times with a
// single total amount.
func (s *BookingService) CreateBatch(ctx context.Context, studentID string, req BatchBookingRequest) (*model.Booking, error) {
	if req.StudentName == "" {
		return nil, fmt.Errorf("%w: student name is required", ErrInvalidRequest)
	}
	if req.StudentEmail == "" {
		return nil, fmt.Errorf("%w: student email is required", ErrInvalidRequest)
	}
	if len(req.Sessions) == 0 {
		return nil, fmt.Errorf("%w: at least one session is required", ErrInvalidRequest)
	}

	now := s.now()
	sessionTimes := make([]model.SessionTime, 0, len(req.Sessions))
	for _, slot := range req.Sessions {
		if slot.SessionStart.IsZero() || slot.SessionEnd.IsZero() {
			return nil, fmt.Errorf("%w: session start and end times are required", ErrInvalidRequest)
		}
		if slot.SessionStart.Before(now) {
			return nil, ErrPastWindow
		}
		if !slot.SessionEnd.After(slot.SessionStart) {
			return nil, fmt.Errorf("%w: session end time must be after start time", ErrInvalidRequest)
		}
		sessionTimes = append(sessionTimes, model.SessionTime{
			StartTime: slot.SessionStart,
			EndTime:   slot.SessionEnd,
			Amount:    slot.Amount,
		})
	}

	booking := &model.Booking{
		ID:                 uuid.NewString(),
		StudentID:          studentID,
		StudentName:        req.StudentName,
		StudentEmail:       req.StudentEmail,
		TeacherID:          req.TeacherID,
		Subject:            req.Subject,
		Sessions:           sessionTimes,
		Status:             model.BookingStatusPending,
		Amount:             req.TotalAmount,
		Currency:           currencyOrDefault(req.Currency),
		BookedAt:           now,
		CancellationPolicy: model.DefaultCancellationPolicy(),
		Notes:              req.Notes,
	}
	if err := s.bookingStore.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create batch booking: %w", err)
	}

	s.logger.Info("batch booking created",
		zap.String("booking_id", booking.ID),
		zap.String("teacher_id", req.TeacherID),
		zap.Int("sessions", len(sessionTimes)))

	s.publish(ctx, event.TypeBookingCreated, booking)
	return booking, nil
}

// Approve moves a PENDING booking to PENDING_PAYMENT. Only the owning
// teacher may approve; an optional message is appended to the notes.
func (s *BookingService) Approve(ctx context.Context, bookingID, teacherID, message string) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TeacherID != teacherID {
		return nil, ErrUnauthorized
	}
	if booking.Status != model.BookingStatusPending {
		return nil, ErrInvalidState
	}

	booking.Status = model.BookingStatusPendingPayment
	if message != "" {
		if booking.Notes != "" {
			booking.Notes += "\n\n"
		}
		booking.Notes += "Teacher's message: " + message
	}

	if err := s.bookingStore.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	s.logger.Info("booking approved",
		zap.String("booking_id", bookingID),
		zap.String("teacher_id", teacherID))

	s.publish(ctx, event.TypeBookingApproved, booking)
	return booking, nil
}

// Reject declines a PENDING booking.
func (s *BookingService) Reject(ctx context.Context, bookingID, teacherID, reason string) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TeacherID != teacherID {
		return nil, ErrUnauthorized
	}
	if booking.Status != model.BookingStatusPending {
		return nil, ErrInvalidState
	}

	now := s.now()
	booking.Status = model.BookingStatusRejected
	booking.CancellationReason = reason
	booking.CancelledAt = &now
	booking.CancelledBy = teacherID

	if err := s.bookingStore.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	s.releaseDirectSession(ctx, booking)

	s.logger.Info("booking rejected",
		zap.String("booking_id", bookingID),
		zap.String("teacher_id", teacherID),
		zap.String("reason", reason))

	s.publish(ctx, event.TypeBookingRejected, booking)
	return booking, nil
}

// releaseDirectSession cancels the one-on-one session a direct booking
// created, so a rejected request stops occupying the teacher's calendar.
// Sessions shared with other students are left alone.
func (s *BookingService) releaseDirectSession(ctx context.Context, booking *model.Booking) {
	if booking.SessionID == "" {
		return
	}
	session, err := s.sessionStore.GetByID(ctx, booking.SessionID)
	if err != nil || session == nil {
		return
	}
	if session.SessionType != model.SessionTypeOneOnOne || session.BookingID != booking.ID {
		return
	}
	if err := s.sessionStore.UpdateStatus(ctx, session.ID, model.SessionStatusCancelled); err != nil {
		s.logger.Error("cancel session",
			zap.String("session_id", session.ID), zap.Error(err))
	}
}

// Confirm records a successful payment and moves the booking to CONFIRMED.
// Legal from PENDING or PENDING_PAYMENT.
func (s *BookingService) Confirm(ctx context.Context, bookingID, paymentID, transactionID string) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusPending && booking.Status != model.BookingStatusPendingPayment {
		return nil, ErrInvalidState
	}

	now := s.now()
	booking.Status = model.BookingStatusConfirmed
	booking.PaymentID = paymentID
	booking.TransactionID = transactionID
	booking.ConfirmedAt = &now

	if err := s.bookingStore.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	s.logger.Info("booking confirmed",
		zap.String("booking_id", bookingID),
		zap.String("payment_id", paymentID))

	s.publish(ctx, event.TypeBookingConfirmed, booking)
	return booking, nil
}

// Complete marks a CONFIRMED booking as held.
func (s *BookingService) Complete(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, ErrInvalidState
	}

	now := s.now()
	booking.Status = model.BookingStatusCompleted
	booking.CompletedAt = &now

	if err := s.bookingStore.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	// Mirror the status onto the session; the booking transition already
	// persisted, so a failure here is logged, not surfaced.
	if booking.SessionID != "" {
		if err := s.sessionStore.UpdateStatus(ctx, booking.SessionID, model.SessionStatusCompleted); err != nil {
			s.logger.Error("mark session completed",
				zap.String("session_id", booking.SessionID), zap.Error(err))
		}
	}

	s.logger.Info("booking completed", zap.String("booking_id", bookingID))

	s.publish(ctx, event.TypeBookingCompleted, booking)
	return booking, nil
}

// MarkNoShow flags a CONFIRMED booking whose session has already ended.
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID, teacherID string) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TeacherID != teacherID {
		return nil, ErrUnauthorized
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, ErrInvalidState
	}
	if booking.SessionEnd != nil && booking.SessionEnd.After(s.now()) {
		return nil, ErrInvalidState
	}

	booking.Status = model.BookingStatusNoShow

	if err := s.bookingStore.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	s.logger.Info("booking marked no-show", zap.String("booking_id", bookingID))

	s.publish(ctx, event.TypeBookingNoShow, booking)
	return booking, nil
}

// ExpireStalePayments moves PENDING_PAYMENT bookings older than the payment
// window to EXPIRED. Run periodically by the background scheduler.
func (s *BookingService) ExpireStalePayments(ctx context.Context) (int, error) {
	stale, err := s.bookingStore.GetStalePendingPayment(ctx, s.now().Add(-paymentWindow))
	if err != nil {
		return 0, fmt.Errorf("get stale pending payments: %w", err)
	}

	expired := 0
	for _, booking := range stale {
		booking.Status = model.BookingStatusExpired
		if err := s.bookingStore.Update(ctx, booking); err != nil {
			s.logger.Error("expire booking", zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}
		s.publish(ctx, event.TypeBookingExpired, booking)
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired stale payment bookings", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *BookingService) GetByID(ctx context.Context, bookingID string) (*model.Booking, error) {
	return s.getBooking(ctx, bookingID)
}

func (s *BookingService) GetStudentBookings(ctx context.Context, studentID string) ([]*model.Booking, error) {
	return s.bookingStore.GetByStudentID(ctx, studentID)
}

func (s *BookingService) GetTeacherBookings(ctx context.Context, teacherID string) ([]*model.Booking, error) {
	return s.bookingStore.GetByTeacherID(ctx, teacherID)
}

func (s *BookingService) GetSessionBookings(ctx context.Context, sessionID string) ([]*model.Booking, error) {
	return s.bookingStore.GetBySessionID(ctx, sessionID)
}

func (s *BookingService) GetTeacherPendingRequests(ctx context.Context, teacherID string) ([]*model.Booking, error) {
	return s.bookingStore.GetByTeacherIDAndStatus(ctx, teacherID, model.BookingStatusPending)
}

// GetStudentUpcomingBookings returns the student's confirmed bookings in the
// next month.
func (s *BookingService) GetStudentUpcomingBookings(ctx context.Context, studentID string) ([]*model.Booking, error) {
	now := s.now()
	bookings, err := s.bookingStore.GetByStudentIDInRange(ctx, studentID, now, now.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	upcoming := bookings[:0]
	for _, b := range bookings {
		if b.Status == model.BookingStatusConfirmed {
			upcoming = append(upcoming, b)
		}
	}
	return upcoming, nil
}

func (s *BookingService) getBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.bookingStore.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}
	return booking, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *model.Booking) {
	s.sink.Publish(ctx, event.BookingEvent{
		EventType:          eventType,
		BookingID:          booking.ID,
		SessionID:          booking.SessionID,
		StudentID:          booking.StudentID,
		TeacherID:          booking.TeacherID,
		SessionStartTime:   booking.SessionStart,
		CancellationReason: booking.CancellationReason,
		RefundAmount:       booking.RefundAmount,
		Timestamp:          s.now(),
	})
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "INR"
	}
	return currency
}
