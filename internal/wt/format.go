package wt

import (
	"fmt"
	"time"
)

const (
	labelLayout = "2006/1/2"
	rowLayout   = "2006/01/02 15:04"
)

// FormatWeight renders a weight with two decimals, or N/A when absent.
func FormatWeight(v *float64) string { return formatMeasurement(v, "%.2f kg") }

// FormatBMI renders a BMI with one decimal.
func FormatBMI(v *float64) string { return formatMeasurement(v, "%.1f") }

// FormatBodyFat renders a body fat percentage with one decimal.
func FormatBodyFat(v *float64) string { return formatMeasurement(v, "%.1f %%") }

// FormatMuscleMass renders muscle mass with one decimal.
func FormatMuscleMass(v *float64) string { return formatMeasurement(v, "%.1f kg") }

// FormatVisceralFat renders the visceral fat level with one decimal.
func FormatVisceralFat(v *float64) string { return formatMeasurement(v, "%.1f") }

func formatMeasurement(v *float64, layout string) string {
	if v == nil {
		return TextNotAvailable
	}
	return fmt.Sprintf(layout, *v)
}

// FormatRowTime renders an entry timestamp for the records table.
func FormatRowTime(timestamp string, loc *time.Location) string {
	if timestamp == "" {
		return TextNotAvailable
	}
	e := MeasurementEntry{Timestamp: timestamp}
	t, err := e.Time()
	if err != nil {
		return TextInvalidDate
	}
	return t.In(location(loc)).Format(rowLayout)
}

// formatLabel renders an entry timestamp as a chart label.
func formatLabel(e *MeasurementEntry, loc *time.Location) string {
	t, err := e.Time()
	if err != nil {
		return TextInvalidDate
	}
	return t.In(location(loc)).Format(labelLayout)
}
