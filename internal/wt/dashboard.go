package wt

import (
	"context"
	"time"
)

// Series is one metric's values over the dashboard's shared labels.
// A nil value is a gap: charts must not join the points on either side.
type Series struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Title  string     `json:"title"`
	Color  string     `json:"color"`
	Values []*float64 `json:"values"`
	// NoData is set when every value is nil; the metric shows a placeholder
	// instead of an empty chart.
	NoData bool `json:"noData"`
}

// DashboardView is what the dashboard renders. Labels and Series are only
// populated in StateLoaded.
type DashboardView struct {
	State   DisplayState `json:"state"`
	Message string       `json:"message,omitempty"`
	Labels  []string     `json:"labels,omitempty"`
	Series  []Series     `json:"series,omitempty"`
}

type metric struct {
	key   string
	label string
	title string
	color string
	value func(*MeasurementEntry) *float64
}

var dashboardMetrics = []metric{
	{"weight", "体重 (Weight) (kg)", "体重推移 (Weight Trend)", "rgb(75, 192, 192)",
		func(e *MeasurementEntry) *float64 { return e.Weight }},
	{"bmi", "BMI", "BMI推移 (BMI Trend)", "rgb(255, 99, 132)",
		func(e *MeasurementEntry) *float64 { return e.BMI }},
	{"bodyFat", "体脂肪率 (Body Fat Percentage) (%)", "体脂肪率推移 (Body Fat Percentage Trend)", "rgb(54, 162, 235)",
		func(e *MeasurementEntry) *float64 { return e.BodyFat }},
	{"muscleMass", "筋肉量 (Muscle Mass) (kg)", "筋肉量推移 (Muscle Mass Trend)", "rgb(255, 206, 86)",
		func(e *MeasurementEntry) *float64 { return e.MuscleMass }},
	{"visceralFat", "内臓脂肪量 (Visceral Fat Level)", "内臓脂肪量推移 (Visceral Fat Level Trend)", "rgb(153, 102, 255)",
		func(e *MeasurementEntry) *float64 { return e.VisceralFat }},
}

// DashboardScreen shows every entry as per-metric time series.
type DashboardScreen struct {
	entries *EntryStore
	loc     *time.Location
	logger  Logger
}

// NewDashboardScreen creates a DashboardScreen rendering dates in loc.
func NewDashboardScreen(entries *EntryStore, loc *time.Location, logger Logger) *DashboardScreen {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &DashboardScreen{entries: entries, loc: location(loc), logger: logger}
}

// Load fetches all entries and projects them into chart series.
// A fetch failure yields StateError and no chart data at all.
func (d *DashboardScreen) Load(ctx context.Context) DashboardView {
	entries, err := d.entries.ListAll(ctx)
	if err != nil {
		d.logger.Error("loading dashboard failed", "error", err)
		return DashboardView{State: StateError, Message: TextDashboardLoadFailed}
	}
	return BuildDashboard(entries, d.loc)
}

// BuildDashboard sorts entries oldest first and derives one series per metric,
// all keyed by the same label sequence. entries is sorted in place.
func BuildDashboard(entries []*MeasurementEntry, loc *time.Location) DashboardView {
	if len(entries) == 0 {
		return DashboardView{State: StateEmpty, Message: TextDashboardEmpty}
	}

	sortAscending(entries)

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = formatLabel(e, loc)
	}

	series := make([]Series, 0, len(dashboardMetrics))
	for _, m := range dashboardMetrics {
		values := make([]*float64, len(entries))
		noData := true
		for i, e := range entries {
			values[i] = m.value(e)
			if values[i] != nil {
				noData = false
			}
		}
		series = append(series, Series{
			Key:    m.key,
			Label:  m.label,
			Title:  m.title,
			Color:  m.color,
			Values: values,
			NoData: noData,
		})
	}

	return DashboardView{State: StateLoaded, Labels: labels, Series: series}
}
