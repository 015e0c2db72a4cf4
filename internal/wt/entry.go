package wt

import (
	"fmt"
	"time"
)

// TimestampLayout is the ISO-8601 form entries are stamped with: UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MeasurementEntry is one body-composition observation.
// A nil measurement means "not measured this session" and is never coerced to zero.
// All seven keys are always encoded; nil values encode as JSON null.
type MeasurementEntry struct {
	ID          int64    `json:"id"`
	Timestamp   string   `json:"timestamp"`
	Weight      *float64 `json:"weight"`
	BMI         *float64 `json:"bmi"`
	BodyFat     *float64 `json:"bodyFat"`
	MuscleMass  *float64 `json:"muscleMass"`
	VisceralFat *float64 `json:"visceralFat"`
}

// FormatTimestamp renders t the way entries are stamped at creation.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the entry's timestamp.
func (e *MeasurementEntry) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", e.Timestamp, err)
	}
	return t, nil
}

// sortKey returns the parsed instant, or the zero time when the timestamp is
// unparseable so such entries sort before every valid one.
func (e *MeasurementEntry) sortKey() time.Time {
	t, err := e.Time()
	if err != nil {
		return time.Time{}
	}
	return t
}

// Float returns a pointer to v. Handy for building entries in code.
func Float(v float64) *float64 {
	return &v
}
