package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/Alias1177/Covidash/models"
)

// Identifier columns every store must carry alongside the measures.
const (
	columnDate      = "date"
	columnLocation  = "location"
	columnContinent = "continent"
)

// XLSXSource reads observations from a spreadsheet export.
type XLSXSource struct {
	path   string
	sheet  string
	logger zerolog.Logger
}

// NewXLSXSource creates a source over the given workbook. An empty sheet
// name selects the workbook's first sheet.
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{
		path:   path,
		sheet:  sheet,
		logger: log.With().Str("component", "xlsx_source").Logger(),
	}
}

// Observations reads the sheet, maps headers to the recognized column set
// and parses every data row. Rows with an unparseable date or an empty
// location are skipped, not fatal.
func (s *XLSXSource) Observations(ctx context.Context) ([]models.Observation, []models.Measure, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %v: %w", s.path, err, models.ErrDataUnavailable)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook %s has no sheets: %w", s.path, models.ErrDataUnavailable)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %q: %v: %w", sheet, err, models.ErrDataUnavailable)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("sheet %q has no data rows: %w", sheet, models.ErrDataUnavailable)
	}

	columns, measures, err := mapColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var observations []models.Observation
	skipped := 0
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		location := cellAt(row, columns[columnLocation])
		if location == "" {
			skipped++
			continue
		}

		date, err := models.ParseDay(cellAt(row, columns[columnDate]))
		if err != nil {
			skipped++
			continue
		}

		obs := models.Observation{
			Location:  location,
			Continent: cellAt(row, columns[columnContinent]),
			Date:      date,
			Measures:  make(map[models.Measure]float64, len(measures)),
		}
		for _, m := range measures {
			if v, ok := parseCellFloat(cellAt(row, columns[string(m)])); ok {
				obs.Measures[m] = v
			}
		}
		observations = append(observations, obs)
	}

	s.logger.Info().
		Str("sheet", sheet).
		Int("rows", len(observations)).
		Int("skipped", skipped).
		Int("measures", len(measures)).
		Msg("Loaded observations from workbook")

	return observations, measures, nil
}

// mapColumns resolves header names to column indexes and reports which
// measures the sheet carries. A missing required column is fatal.
func mapColumns(header []string) (map[string]int, []models.Measure, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{columnDate, columnLocation, columnContinent} {
		if _, ok := columns[required]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q: %w", required, models.ErrDataUnavailable)
		}
	}

	var measures []models.Measure
	for _, m := range models.RequiredMeasures {
		if _, ok := columns[string(m)]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q: %w", m, models.ErrDataUnavailable)
		}
		measures = append(measures, m)
	}
	for _, m := range models.OptionalMeasures {
		if _, ok := columns[string(m)]; ok {
			measures = append(measures, m)
		}
	}

	return columns, measures, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCellFloat parses a numeric cell. Empty cells mean no value for the
// row, which is normal in this dataset.
func parseCellFloat(cell string) (float64, bool) {
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
