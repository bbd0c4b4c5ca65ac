package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcon/booking-service/internal/model"
)

func TestWeekImage(t *testing.T) {
	weekStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC) // a Monday

	slots := []model.AvailabilitySlot{
		{
			StartTime:   weekStart.Add(10 * time.Hour),
			EndTime:     weekStart.Add(11 * time.Hour),
			IsAvailable: true,
		},
		{
			StartTime:   weekStart.AddDate(0, 0, 2).Add(14 * time.Hour),
			EndTime:     weekStart.AddDate(0, 0, 2).Add(15 * time.Hour),
			IsAvailable: false,
			Reason:      "Existing booking",
		},
	}

	data, err := WeekImage(weekStart, slots)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 1120, bounds.Dx())
	assert.Equal(t, 760, bounds.Dy())
}

func TestWeekImageNoSlots(t *testing.T) {
	weekStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)

	data, err := WeekImage(weekStart, nil)
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestWeekImageIgnoresSlotsOutsideWeek(t *testing.T) {
	weekStart := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)

	slots := []model.AvailabilitySlot{
		{
			StartTime:   weekStart.AddDate(0, 0, -3).Add(10 * time.Hour),
			EndTime:     weekStart.AddDate(0, 0, -3).Add(11 * time.Hour),
			IsAvailable: true,
		},
	}

	data, err := WeekImage(weekStart, slots)
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}
