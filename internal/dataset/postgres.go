package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Covidash/models"
)

const observationsTable = "observations"

// PostgresSource reads observations from a Postgres table holding the same
// column set as the spreadsheet export.
type PostgresSource struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewPostgresSource connects to the database and verifies the connection.
func NewPostgresSource(dsn string) (*PostgresSource, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %v: %w", err, models.ErrDataUnavailable)
	}
	return &PostgresSource{
		db:     db,
		logger: log.With().Str("component", "postgres_source").Logger(),
	}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() error { return s.db.Close() }

type observationRow struct {
	Location        string          `db:"location"`
	Continent       sql.NullString  `db:"continent"`
	Date            time.Time       `db:"date"`
	TotalCases      sql.NullFloat64 `db:"total_cases"`
	NewCases        sql.NullFloat64 `db:"new_cases"`
	TotalDeaths     sql.NullFloat64 `db:"total_deaths"`
	NewDeaths       sql.NullFloat64 `db:"new_deaths"`
	Vaccinated      sql.NullFloat64 `db:"people_vaccinated"`
	Aged65Older     sql.NullFloat64 `db:"aged_65_older"`
	ICUPatients     sql.NullFloat64 `db:"icu_patients"`
	HospitalBeds    sql.NullFloat64 `db:"hospital_beds_per_thousand"`
	GDPPerCapita    sql.NullFloat64 `db:"gdp_per_capita"`
	Population      sql.NullFloat64 `db:"population"`
	ExcessMortality sql.NullFloat64 `db:"excess_mortality"`
	NewTests        sql.NullFloat64 `db:"new_tests"`
	TotalTests      sql.NullFloat64 `db:"total_tests"`
}

func (r observationRow) measure(m models.Measure) sql.NullFloat64 {
	switch m {
	case models.MeasureTotalCases:
		return r.TotalCases
	case models.MeasureNewCases:
		return r.NewCases
	case models.MeasureTotalDeaths:
		return r.TotalDeaths
	case models.MeasureNewDeaths:
		return r.NewDeaths
	case models.MeasureVaccinated:
		return r.Vaccinated
	case models.MeasureAged65Older:
		return r.Aged65Older
	case models.MeasureICUPatients:
		return r.ICUPatients
	case models.MeasureHospitalBeds:
		return r.HospitalBeds
	case models.MeasureGDPPerCapita:
		return r.GDPPerCapita
	case models.MeasurePopulation:
		return r.Population
	case models.MeasureExcessMortality:
		return r.ExcessMortality
	case models.MeasureNewTests:
		return r.NewTests
	case models.MeasureTotalTests:
		return r.TotalTests
	}
	return sql.NullFloat64{}
}

// Observations queries the table's schema for the measure columns it
// carries, selects exactly those, and converts rows to the domain shape.
func (s *PostgresSource) Observations(ctx context.Context) ([]models.Observation, []models.Measure, error) {
	measures, err := s.carriedMeasures(ctx)
	if err != nil {
		return nil, nil, err
	}

	columns := []string{"location", "continent", "date"}
	for _, m := range measures {
		columns = append(columns, string(m))
	}
	// Column names come from the fixed measure whitelist above.
	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY location, date",
		strings.Join(columns, ", "), observationsTable,
	)

	var rows []observationRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, nil, fmt.Errorf("querying observations: %v: %w", err, models.ErrDataUnavailable)
	}

	observations := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		obs := models.Observation{
			Location:  r.Location,
			Continent: r.Continent.String,
			Date:      models.Day(r.Date),
			Measures:  make(map[models.Measure]float64, len(measures)),
		}
		for _, m := range measures {
			if v := r.measure(m); v.Valid {
				obs.Measures[m] = v.Float64
			}
		}
		observations = append(observations, obs)
	}

	s.logger.Info().
		Int("rows", len(observations)).
		Int("measures", len(measures)).
		Msg("Loaded observations from postgres")

	return observations, measures, nil
}

// carriedMeasures checks which recognized columns exist on the table. All
// required columns must be present; optional ones are picked up when there.
func (s *PostgresSource) carriedMeasures(ctx context.Context) ([]models.Measure, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
	`, observationsTable)
	if err != nil {
		return nil, fmt.Errorf("reading table schema: %v: %w", err, models.ErrDataUnavailable)
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[strings.ToLower(n)] = true
	}
	for _, required := range []string{"location", "continent", "date"} {
		if !present[required] {
			return nil, fmt.Errorf("missing required column %q: %w", required, models.ErrDataUnavailable)
		}
	}

	var measures []models.Measure
	for _, m := range models.RequiredMeasures {
		if !present[string(m)] {
			return nil, fmt.Errorf("missing required column %q: %w", m, models.ErrDataUnavailable)
		}
		measures = append(measures, m)
	}
	for _, m := range models.OptionalMeasures {
		if present[string(m)] {
			measures = append(measures, m)
		}
	}
	return measures, nil
}
