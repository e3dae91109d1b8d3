package dataset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Alias1177/Covidash/models"
)

var testHeader = []interface{}{
	"date", "location", "continent",
	"total_cases", "new_cases", "total_deaths", "new_deaths",
	"people_vaccinated", "aged_65_older", "icu_patients",
	"hospital_beds_per_thousand", "gdp_per_capita", "population",
	"excess_mortality",
}

func writeWorkbook(t *testing.T, header []interface{}, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "covid_data.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestXLSXSourceObservations(t *testing.T) {
	path := writeWorkbook(t, testHeader, [][]interface{}{
		{"2021-01-01", "Testland", "Europe", 100, 10, 5, 1, 50, 15.5, 2, 3.1, 40000, 1000000, ""},
		{"2021-01-02", "Testland", "Europe", 120, 20, 6, 1, "", 15.5, 3, 3.1, 40000, 1000000, 1.2},
		{"2021-01-01", "Otherland", "Asia", 7, 7, 0, 0, 0, 9.9, 0, 1.5, 12000, 500000, ""},
	})

	source := NewXLSXSource(path, "")
	observations, measures, err := source.Observations(context.Background())
	require.NoError(t, err)

	assert.Len(t, observations, 3)
	assert.Contains(t, measures, models.MeasureExcessMortality, "optional column in the header is picked up")
	assert.NotContains(t, measures, models.MeasureNewTests)

	first := observations[0]
	assert.Equal(t, "Testland", first.Location)
	assert.Equal(t, "Europe", first.Continent)
	assert.Equal(t, "2021-01-01", first.Date.Format(models.DateLayout))
	assert.Equal(t, 10.0, first.Measures[models.MeasureNewCases])

	_, hasVaccinated := observations[1].Value(models.MeasureVaccinated)
	assert.False(t, hasVaccinated, "empty cell means no value")
	v, hasExcess := observations[1].Value(models.MeasureExcessMortality)
	assert.True(t, hasExcess)
	assert.Equal(t, 1.2, v)
}

func TestXLSXSourceSkipsMalformedRows(t *testing.T) {
	path := writeWorkbook(t, testHeader, [][]interface{}{
		{"2021-01-01", "Testland", "Europe", 100, 10, 5, 1, 50, 15.5, 2, 3.1, 40000, 1000000, ""},
		{"not a date", "Testland", "Europe", 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, ""},
		{"2021-01-02", "", "Europe", 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, ""},
	})

	source := NewXLSXSource(path, "")
	observations, _, err := source.Observations(context.Background())
	require.NoError(t, err)
	assert.Len(t, observations, 1)
}

func TestXLSXSourceMissingRequiredColumn(t *testing.T) {
	header := []interface{}{"date", "location", "continent", "total_cases"} // new_cases et al. missing
	path := writeWorkbook(t, header, [][]interface{}{
		{"2021-01-01", "Testland", "Europe", 100},
	})

	source := NewXLSXSource(path, "")
	_, _, err := source.Observations(context.Background())
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestXLSXSourceMissingFile(t *testing.T) {
	source := NewXLSXSource(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	_, _, err := source.Observations(context.Background())
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestXLSXSourceUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, testHeader, [][]interface{}{
		{"2021-01-01", "Testland", "Europe", 100, 10, 5, 1, 50, 15.5, 2, 3.1, 40000, 1000000, ""},
	})

	source := NewXLSXSource(path, "NoSuchSheet")
	_, _, err := source.Observations(context.Background())
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
