// Package controller exposes the booking engine over HTTP. It owns request
// decoding and the mapping from the service error taxonomy to status codes;
// all domain decisions live in the service layer.
package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/tcon/booking-service/internal/service"
)

type Controller struct {
	bookings      *service.BookingService
	cancellations *service.CancellationService
	availability  *service.AvailabilityService
	logger        *zap.Logger
}

func New(
	bookings *service.BookingService,
	cancellations *service.CancellationService,
	availability *service.AvailabilityService,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		bookings:      bookings,
		cancellations: cancellations,
		availability:  availability,
		logger:        logger,
	}
}

func (c *Controller) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(c.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})

	r.Route("/api/bookings", func(r chi.Router) {
		r.Post("/", c.createBooking)
		r.Post("/batch", c.createBatchBooking)
		r.Get("/{bookingID}", c.getBooking)
		r.Post("/{bookingID}/approve", c.approveBooking)
		r.Post("/{bookingID}/reject", c.rejectBooking)
		r.Post("/{bookingID}/confirm", c.confirmBooking)
		r.Post("/{bookingID}/complete", c.completeBooking)
		r.Post("/{bookingID}/cancel", c.cancelBooking)
		r.Post("/{bookingID}/no-show", c.markNoShow)
		r.Get("/student/{studentID}", c.getStudentBookings)
		r.Get("/student/{studentID}/upcoming", c.getStudentUpcomingBookings)
		r.Get("/teacher/{teacherID}", c.getTeacherBookings)
		r.Get("/teacher/{teacherID}/pending", c.getTeacherPendingRequests)
		r.Get("/session/{sessionID}", c.getSessionBookings)
		r.Get("/availability/teacher/{teacherID}", c.getComputedAvailability)
	})

	r.Route("/api/availability", func(r chi.Router) {
		r.Post("/teacher/{teacherID}", c.setWeeklyAvailability)
		r.Get("/teacher/{teacherID}", c.getWeeklyAvailability)
		r.Delete("/teacher/{teacherID}", c.deleteWeeklyAvailability)
		r.Post("/teacher/{teacherID}/slots", c.addTimeSlot)
		r.Delete("/teacher/{teacherID}/slots", c.removeTimeSlot)
		r.Get("/teacher/{teacherID}/image", c.getAvailabilityImage)
		r.Post("/dates", c.saveDateAvailability)
		r.Get("/dates/teacher/{teacherID}", c.getDateAvailability)
		r.Delete("/dates/teacher/{teacherID}/{date}", c.deleteDateAvailability)
	})

	return r
}

func (c *Controller) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		c.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// callerID is the authenticated user forwarded by the API gateway.
func callerID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}
