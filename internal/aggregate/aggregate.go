// Package aggregate computes group-level summaries over a dataset: global
// per-date totals, per-location latest snapshots, and the worldwide headline
// metrics.
package aggregate

import (
	"sort"
	"time"

	"github.com/Alias1177/Covidash/models"
)

// GlobalDailyTotals groups all rows by date and sums each measure across
// locations, treating absent values as zero. One ascending series is
// returned per measure the schema carries; every point is defined.
func GlobalDailyTotals(ds *models.Dataset) map[models.Measure]models.TimeSeries {
	measures := ds.Measures()

	type totals map[models.Measure]float64
	byDate := make(map[int64]totals)
	for _, o := range ds.Observations {
		key := o.Date.Unix()
		t, ok := byDate[key]
		if !ok {
			t = make(totals, len(measures))
			byDate[key] = t
		}
		for _, m := range measures {
			if v, ok := o.Value(m); ok {
				t[m] += v
			}
		}
	}

	keys := make([]int64, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(map[models.Measure]models.TimeSeries, len(measures))
	for _, m := range measures {
		series := make(models.TimeSeries, 0, len(keys))
		for _, k := range keys {
			series = append(series, models.Point{
				Date:  models.Day(time.Unix(k, 0).UTC()),
				Value: byDate[k][m],
				Valid: true,
			})
		}
		out[m] = series
	}
	return out
}

// LatestSnapshot returns, per location, the row with the maximum date. When
// two rows share the maximum date the first one encountered in input order
// wins; that tie-break is deliberate, not incidental.
func LatestSnapshot(ds *models.Dataset) map[string]models.Observation {
	out := make(map[string]models.Observation)
	for _, o := range ds.Observations {
		current, ok := out[o.Location]
		if !ok || o.Date.After(current.Date) {
			out[o.Location] = o
		}
	}
	return out
}

// GlobalSummary derives the dashboard headline metrics: the maxima of the
// worldwide cumulative series.
func GlobalSummary(ds *models.Dataset) models.GlobalSummary {
	totals := GlobalDailyTotals(ds)

	var summary models.GlobalSummary
	if v, ok := totals[models.MeasureTotalCases].Max(); ok {
		summary.TotalCases = v
	}
	if v, ok := totals[models.MeasureTotalDeaths].Max(); ok {
		summary.TotalDeaths = v
	}
	if v, ok := totals[models.MeasureVaccinated].Max(); ok {
		summary.PeopleVaccinated = v
	}
	return summary
}
