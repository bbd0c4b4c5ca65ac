package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tcon/booking-service/internal/model"
	imgrender "github.com/tcon/booking-service/internal/render"
	"github.com/tcon/booking-service/internal/service"
)

type weeklyAvailabilityPayload struct {
	Weekly            model.WeeklySlots `json:"weekly_availability"`
	Timezone          string            `json:"timezone"`
	BufferTimeMinutes int               `json:"buffer_time_minutes"`
	MaxSessionsPerDay *int              `json:"max_sessions_per_day"`
}

func (c *Controller) setWeeklyAvailability(w http.ResponseWriter, r *http.Request) {
	var payload weeklyAvailabilityPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	availability, err := c.availability.SetWeeklyAvailability(r.Context(),
		chi.URLParam(r, "teacherID"), payload.Weekly, payload.Timezone,
		payload.BufferTimeMinutes, payload.MaxSessionsPerDay)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, availability)
}

func (c *Controller) getWeeklyAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := c.availability.GetWeeklyAvailability(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, availability)
}

func (c *Controller) deleteWeeklyAvailability(w http.ResponseWriter, r *http.Request) {
	if err := c.availability.DeleteWeeklyAvailability(r.Context(), chi.URLParam(r, "teacherID")); err != nil {
		c.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type timeSlotPayload struct {
	Day  string         `json:"day_of_week"`
	Slot model.TimeSlot `json:"time_slot"`
}

func (c *Controller) addTimeSlot(w http.ResponseWriter, r *http.Request) {
	var payload timeSlotPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}
	day, ok := model.ParseWeekday(payload.Day)
	if !ok {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	availability, err := c.availability.AddTimeSlot(r.Context(), chi.URLParam(r, "teacherID"), day, payload.Slot)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, availability)
}

func (c *Controller) removeTimeSlot(w http.ResponseWriter, r *http.Request) {
	var payload timeSlotPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}
	day, ok := model.ParseWeekday(payload.Day)
	if !ok {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	availability, err := c.availability.RemoveTimeSlot(r.Context(), chi.URLParam(r, "teacherID"), day, payload.Slot)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, availability)
}

type dateEntryPayload struct {
	Date      string           `json:"date"`
	TimeSlots []model.TimeSlot `json:"time_slots"`
}

type dateBatchPayload struct {
	TeacherID         string             `json:"teacher_id"`
	Entries           []dateEntryPayload `json:"availabilities"`
	Timezone          string             `json:"timezone"`
	BufferTimeMinutes int                `json:"buffer_time_minutes"`
}

func (c *Controller) saveDateAvailability(w http.ResponseWriter, r *http.Request) {
	var payload dateBatchPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	entries := make([]service.DateEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			c.writeError(w, r, service.ErrInvalidRequest)
			return
		}
		entries = append(entries, service.DateEntry{Date: date, TimeSlots: e.TimeSlots})
	}

	err := c.availability.SaveDateSpecificBatch(r.Context(), payload.TeacherID,
		entries, payload.Timezone, payload.BufferTimeMinutes)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, map[string]string{"status": "saved"})
}

func (c *Controller) getDateAvailability(w http.ResponseWriter, r *http.Request) {
	byDate, err := c.availability.GetDateSpecificAvailability(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, byDate)
}

func (c *Controller) deleteDateAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	if err := c.availability.DeleteDateSpecific(r.Context(), chi.URLParam(r, "teacherID"), date); err != nil {
		c.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getComputedAvailability resolves the weekly pattern, date overrides and
// existing commitments into concrete slots for a requested range.
func (c *Controller) getComputedAvailability(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		c.writeError(w, r, service.ErrInvalidRequest)
		return
	}

	slots, err := c.availability.ComputeAvailability(r.Context(), chi.URLParam(r, "teacherID"), start, end)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeJSON(w, r, http.StatusOK, slots)
}

func (c *Controller) getAvailabilityImage(w http.ResponseWriter, r *http.Request) {
	weekStart := startOfWeek(time.Now())
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.writeError(w, r, service.ErrInvalidRequest)
			return
		}
		weekStart = parsed
	}

	slots, err := c.availability.ComputeAvailability(r.Context(),
		chi.URLParam(r, "teacherID"), weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	png, err := imgrender.WeekImage(weekStart, slots)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func startOfWeek(t time.Time) time.Time {
	day := t
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}
