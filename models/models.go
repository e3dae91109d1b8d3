package models

import (
	"fmt"
	"sort"
	"time"
)

// Measure identifies one numeric column of the source table.
type Measure string

const (
	MeasureTotalCases      Measure = "total_cases"
	MeasureNewCases        Measure = "new_cases"
	MeasureTotalDeaths     Measure = "total_deaths"
	MeasureNewDeaths       Measure = "new_deaths"
	MeasureVaccinated      Measure = "people_vaccinated"
	MeasureAged65Older     Measure = "aged_65_older"
	MeasureICUPatients     Measure = "icu_patients"
	MeasureHospitalBeds    Measure = "hospital_beds_per_thousand"
	MeasureGDPPerCapita    Measure = "gdp_per_capita"
	MeasurePopulation      Measure = "population"
	MeasureExcessMortality Measure = "excess_mortality"
	MeasureNewTests        Measure = "new_tests"
	MeasureTotalTests      Measure = "total_tests"
)

// RequiredMeasures are the numeric columns every backing store must carry.
var RequiredMeasures = []Measure{
	MeasureTotalCases,
	MeasureNewCases,
	MeasureTotalDeaths,
	MeasureNewDeaths,
	MeasureVaccinated,
	MeasureAged65Older,
	MeasureICUPatients,
	MeasureHospitalBeds,
	MeasureGDPPerCapita,
	MeasurePopulation,
}

// OptionalMeasures may be missing from the backing store; consumers must
// check the dataset schema before requesting them.
var OptionalMeasures = []Measure{
	MeasureExcessMortality,
	MeasureNewTests,
	MeasureTotalTests,
}

// ParseMeasure validates a measure name coming from the outside (query
// parameters, CLI flags).
func ParseMeasure(s string) (Measure, error) {
	m := Measure(s)
	for _, known := range RequiredMeasures {
		if m == known {
			return m, nil
		}
	}
	for _, known := range OptionalMeasures {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown measure %q", s)
}

// Observation is one dated row for one location. Measures holds only the
// values the source row actually carried; a missing key means no value.
type Observation struct {
	Location  string              `json:"location"`
	Continent string              `json:"continent"`
	Date      time.Time           `json:"date"`
	Measures  map[Measure]float64 `json:"measures"`
}

// Value returns the measure value and whether the row carries it.
func (o Observation) Value(m Measure) (float64, bool) {
	v, ok := o.Measures[m]
	return v, ok
}

// Dataset is the loaded table: observations sorted by (location, date),
// the set of measures the source schema carried, and the observed date span.
type Dataset struct {
	Observations []Observation
	schema       map[Measure]bool
	minDate      time.Time
	maxDate      time.Time
}

// NewDataset builds a dataset from rows and the measures the source carried.
// Rows are sorted by (location, date); the date span is computed from the
// rows themselves.
func NewDataset(observations []Observation, measures []Measure) *Dataset {
	sort.SliceStable(observations, func(i, j int) bool {
		if observations[i].Location != observations[j].Location {
			return observations[i].Location < observations[j].Location
		}
		return observations[i].Date.Before(observations[j].Date)
	})

	schema := make(map[Measure]bool, len(measures))
	for _, m := range measures {
		schema[m] = true
	}

	ds := &Dataset{Observations: observations, schema: schema}
	for _, o := range observations {
		if ds.minDate.IsZero() || o.Date.Before(ds.minDate) {
			ds.minDate = o.Date
		}
		if o.Date.After(ds.maxDate) {
			ds.maxDate = o.Date
		}
	}
	return ds
}

// HasMeasure reports whether the source schema carried the measure.
func (d *Dataset) HasMeasure(m Measure) bool {
	return d.schema[m]
}

// Measures returns the measures the source schema carried, required ones first.
func (d *Dataset) Measures() []Measure {
	var out []Measure
	for _, m := range RequiredMeasures {
		if d.schema[m] {
			out = append(out, m)
		}
	}
	for _, m := range OptionalMeasures {
		if d.schema[m] {
			out = append(out, m)
		}
	}
	return out
}

// MinDate returns the earliest observed date.
func (d *Dataset) MinDate() time.Time { return d.minDate }

// MaxDate returns the latest observed date.
func (d *Dataset) MaxDate() time.Time { return d.maxDate }

// Len returns the number of observations.
func (d *Dataset) Len() int { return len(d.Observations) }

// Locations returns the distinct locations in order of first appearance.
func (d *Dataset) Locations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range d.Observations {
		if !seen[o.Location] {
			seen[o.Location] = true
			out = append(out, o.Location)
		}
	}
	return out
}

// Series extracts the ascending (date, value) sequence for one location and
// measure. Dates present in the rows but missing the measure become invalid
// points so that gaps survive into the transforms. Duplicate dates keep the
// first row encountered. Returns ErrEmptySelection when the location has no
// rows at all.
func (d *Dataset) Series(location string, m Measure) (TimeSeries, error) {
	var series TimeSeries
	var lastDate time.Time
	for _, o := range d.Observations {
		if o.Location != location {
			continue
		}
		if len(series) > 0 && o.Date.Equal(lastDate) {
			continue
		}
		p := Point{Date: o.Date}
		p.Value, p.Valid = o.Value(m)
		series = append(series, p)
		lastDate = o.Date
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no rows for location %q: %w", location, ErrEmptySelection)
	}
	return series, nil
}

// Point is one element of a time series. Valid is false when the source had
// no value for the date.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Valid bool      `json:"valid"`
}

// TimeSeries is an ascending-by-date (date, value) sequence for a single
// location and measure. Gaps are represented by invalid points, not dropped.
type TimeSeries []Point

// Last returns the most recent valid value.
func (s TimeSeries) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Valid {
			return s[i].Value, true
		}
	}
	return 0, false
}

// Max returns the largest valid value.
func (s TimeSeries) Max() (float64, bool) {
	var max float64
	found := false
	for _, p := range s {
		if !p.Valid {
			continue
		}
		if !found || p.Value > max {
			max = p.Value
			found = true
		}
	}
	return max, found
}

// DateRange is an inclusive calendar-date interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds an inclusive range, rejecting a start after the end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return DateRange{}, fmt.Errorf("range start %s after end %s", start.Format(DateLayout), end.Format(DateLayout))
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ClampTo narrows the range to the dataset's observed span.
func (r DateRange) ClampTo(d *Dataset) DateRange {
	out := r
	if out.Start.Before(d.minDate) {
		out.Start = d.minDate
	}
	if d.maxDate.Before(out.End) {
		out.End = d.maxDate
	}
	return out
}

// ForecastInput is the generic history contract the forecasting backend
// consumes: parallel timestamp/value slices with no absent values.
type ForecastInput struct {
	Times  []time.Time `json:"times"`
	Values []float64   `json:"values"`
}

// ForecastResponse carries point estimates and uncertainty bounds for every
// historical date plus the requested horizon. Slices are parallel and the
// same length, and Lower[i] <= Forecast[i] <= Upper[i] holds for every i.
type ForecastResponse struct {
	Dates    []time.Time `json:"dates"`
	Forecast []float64   `json:"forecast"`
	Lower    []float64   `json:"lower"`
	Upper    []float64   `json:"upper"`
}

// Len returns the number of forecast rows.
func (r *ForecastResponse) Len() int { return len(r.Dates) }

// GlobalSummary holds the worldwide headline metrics.
type GlobalSummary struct {
	TotalCases       float64 `json:"total_cases"`
	TotalDeaths      float64 `json:"total_deaths"`
	PeopleVaccinated float64 `json:"people_vaccinated"`
}
