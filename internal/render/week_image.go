// Package render draws a teacher's computed availability as a weekly
// calendar image.
package render

import (
	"bytes"
	"image/color"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/tcon/booking-service/internal/model"
)

const (
	imageWidth      = 1120
	imageHeight     = 760
	headerHeight    = 60
	leftLabelsWidth = 64
	dayPaddingX     = 6
	totalDays       = 7

	defaultMinHour = 8
	defaultMaxHour = 20
)

var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLineColor  = color.NRGBA{150, 150, 150, 120}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{225, 225, 225, 255}
	slotFreeColor  = color.RGBA{133, 193, 85, 220}
	slotBusyColor  = color.RGBA{255, 182, 193, 255}
	slotTextColor  = color.RGBA{20, 24, 28, 230}
)

type hourRange struct {
	start int
	end   int
}

func (h hourRange) total() int { return h.end - h.start + 1 }

// WeekImage renders the slots of the week starting at weekStart (a Monday
// at midnight) into a PNG. Slots outside the week are ignored.
func WeekImage(weekStart time.Time, slots []model.AvailabilitySlot) ([]byte, error) {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(bgColor)
	dc.Clear()

	weekEnd := weekStart.AddDate(0, 0, totalDays)
	hours := visibleHours(weekStart, weekEnd, slots)

	dayWidth := float64(imageWidth-leftLabelsWidth) / totalDays
	gridHeight := float64(imageHeight - headerHeight)
	hourHeight := gridHeight / float64(hours.total())

	// Day columns and headers.
	for day := 0; day < totalDays; day++ {
		x := float64(leftLabelsWidth) + float64(day)*dayWidth

		if day%2 == 0 {
			dc.SetColor(evenDayColor)
		} else {
			dc.SetColor(oddDayColor)
		}
		dc.DrawRectangle(x, headerHeight, dayWidth, gridHeight)
		dc.Fill()

		date := weekStart.AddDate(0, 0, day)
		label := date.Format("Mon 02.01")
		dc.SetColor(textColor)
		dc.DrawStringAnchored(label, x+dayWidth/2, headerHeight/2, 0.5, 0.5)
	}

	// Hour lines and labels.
	for h := 0; h <= hours.total(); h++ {
		y := float64(headerHeight) + float64(h)*hourHeight
		dc.SetColor(hourLineColor)
		dc.SetLineWidth(1)
		dc.DrawLine(leftLabelsWidth, y, imageWidth, y)
		dc.Stroke()

		if h < hours.total() {
			label := time.Date(0, 1, 1, hours.start+h, 0, 0, 0, time.UTC).Format("15:04")
			dc.SetColor(textColor)
			dc.DrawStringAnchored(label, leftLabelsWidth/2, y+hourHeight/2, 0.5, 0.5)
		}
	}

	// Slots.
	for _, slot := range slots {
		if slot.StartTime.Before(weekStart) || !slot.StartTime.Before(weekEnd) {
			continue
		}

		day := int(slot.StartTime.Sub(weekStart).Hours() / 24)
		x := float64(leftLabelsWidth) + float64(day)*dayWidth + dayPaddingX

		startOffset := hourOffset(slot.StartTime, hours.start)
		endOffset := hourOffset(slot.EndTime, hours.start)
		y := float64(headerHeight) + startOffset*hourHeight
		h := (endOffset - startOffset) * hourHeight
		if h < 8 {
			h = 8
		}

		if slot.IsAvailable {
			dc.SetColor(slotFreeColor)
		} else {
			dc.SetColor(slotBusyColor)
		}
		dc.DrawRoundedRectangle(x, y+1, dayWidth-2*dayPaddingX, h-2, 4)
		dc.Fill()

		label := slot.StartTime.Format("15:04") + "-" + slot.EndTime.Format("15:04")
		dc.SetColor(slotTextColor)
		dc.DrawStringAnchored(label, x+(dayWidth-2*dayPaddingX)/2, y+h/2, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// visibleHours picks the hour band covering every slot in the week, with
// the default band as a floor so an empty week still renders a usable grid.
func visibleHours(weekStart, weekEnd time.Time, slots []model.AvailabilitySlot) hourRange {
	hours := hourRange{start: defaultMinHour, end: defaultMaxHour}
	for _, slot := range slots {
		if slot.StartTime.Before(weekStart) || !slot.StartTime.Before(weekEnd) {
			continue
		}
		if h := slot.StartTime.Hour(); h < hours.start {
			hours.start = h
		}
		if h := slot.EndTime.Hour(); h >= hours.end {
			hours.end = h + 1
		}
	}
	if hours.end > 24 {
		hours.end = 24
	}
	return hours
}

func hourOffset(t time.Time, startHour int) float64 {
	return float64(t.Hour()-startHour) + float64(t.Minute())/60
}
