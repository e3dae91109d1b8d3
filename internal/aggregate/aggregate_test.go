package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Covidash/models"
)

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

func obs(location string, d int, measures map[models.Measure]float64) models.Observation {
	return models.Observation{Location: location, Date: day(d), Measures: measures}
}

func TestGlobalDailyTotals(t *testing.T) {
	ds := models.NewDataset([]models.Observation{
		obs("A", 1, map[models.Measure]float64{models.MeasureNewCases: 10, models.MeasureTotalCases: 10}),
		obs("B", 1, map[models.Measure]float64{models.MeasureNewCases: 5}), // total_cases absent: counts as 0
		obs("A", 2, map[models.Measure]float64{models.MeasureNewCases: 20, models.MeasureTotalCases: 30}),
		obs("B", 2, map[models.Measure]float64{models.MeasureNewCases: 1, models.MeasureTotalCases: 6}),
	}, []models.Measure{models.MeasureNewCases, models.MeasureTotalCases})

	totals := GlobalDailyTotals(ds)

	cases := totals[models.MeasureNewCases]
	require.Len(t, cases, 2)
	assert.Equal(t, day(1), cases[0].Date)
	assert.Equal(t, 15.0, cases[0].Value)
	assert.Equal(t, day(2), cases[1].Date)
	assert.Equal(t, 21.0, cases[1].Value)

	cumulative := totals[models.MeasureTotalCases]
	require.Len(t, cumulative, 2)
	assert.Equal(t, 10.0, cumulative[0].Value, "absent value sums as zero")
	assert.Equal(t, 36.0, cumulative[1].Value)

	for _, series := range totals {
		for _, p := range series {
			assert.True(t, p.Valid, "global totals are always defined")
		}
	}
}

func TestLatestSnapshot(t *testing.T) {
	ds := models.NewDataset([]models.Observation{
		obs("A", 1, map[models.Measure]float64{models.MeasureTotalCases: 1}),
		obs("A", 3, map[models.Measure]float64{models.MeasureTotalCases: 3}),
		obs("A", 2, map[models.Measure]float64{models.MeasureTotalCases: 2}),
		obs("B", 5, map[models.Measure]float64{models.MeasureTotalCases: 50}),
	}, []models.Measure{models.MeasureTotalCases})

	snapshot := LatestSnapshot(ds)

	require.Len(t, snapshot, 2)
	assert.Equal(t, day(3), snapshot["A"].Date)
	assert.Equal(t, 3.0, snapshot["A"].Measures[models.MeasureTotalCases])
	assert.Equal(t, day(5), snapshot["B"].Date)
}

func TestLatestSnapshotTieBreak(t *testing.T) {
	// Two rows on the same max date should not occur, but when they do the
	// first in input order wins. NewDataset sorts stably, so input order
	// within a (location, date) pair is preserved.
	ds := models.NewDataset([]models.Observation{
		obs("A", 2, map[models.Measure]float64{models.MeasureTotalCases: 111}),
		obs("A", 2, map[models.Measure]float64{models.MeasureTotalCases: 999}),
	}, []models.Measure{models.MeasureTotalCases})

	snapshot := LatestSnapshot(ds)
	assert.Equal(t, 111.0, snapshot["A"].Measures[models.MeasureTotalCases])
}

func TestGlobalSummary(t *testing.T) {
	ds := models.NewDataset([]models.Observation{
		obs("A", 1, map[models.Measure]float64{
			models.MeasureTotalCases:  100,
			models.MeasureTotalDeaths: 10,
			models.MeasureVaccinated:  1000,
		}),
		obs("A", 2, map[models.Measure]float64{
			models.MeasureTotalCases:  150,
			models.MeasureTotalDeaths: 12,
			models.MeasureVaccinated:  2000,
		}),
		obs("B", 2, map[models.Measure]float64{
			models.MeasureTotalCases:  50,
			models.MeasureTotalDeaths: 3,
		}),
	}, []models.Measure{models.MeasureTotalCases, models.MeasureTotalDeaths, models.MeasureVaccinated})

	summary := GlobalSummary(ds)

	assert.Equal(t, 200.0, summary.TotalCases)
	assert.Equal(t, 15.0, summary.TotalDeaths)
	assert.Equal(t, 2000.0, summary.PeopleVaccinated)
}
