package model

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when an interval is missing a boundary or
// its start is not before its end.
var ErrInvalidInterval = errors.New("invalid interval")

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not count as overlap, so
// back-to-back slots never conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) (bool, error) {
	if aStart.IsZero() || aEnd.IsZero() || bStart.IsZero() || bEnd.IsZero() {
		return false, ErrInvalidInterval
	}
	if !aStart.Before(aEnd) || !bStart.Before(bEnd) {
		return false, ErrInvalidInterval
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd), nil
}
