// Package server exposes the filter/aggregate/trend/forecast pipeline as a
// JSON API. It is the data feed for the rendering collaborator; all chart
// drawing and widget state live on the other side of it.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Covidash/config"
	"github.com/Alias1177/Covidash/internal/aggregate"
	"github.com/Alias1177/Covidash/internal/dataset"
	"github.com/Alias1177/Covidash/internal/export"
	"github.com/Alias1177/Covidash/internal/filter"
	"github.com/Alias1177/Covidash/internal/forecast"
	"github.com/Alias1177/Covidash/internal/trend"
	"github.com/Alias1177/Covidash/models"
)

// Server wires the pipeline stages behind HTTP handlers.
type Server struct {
	cfg     *config.Config
	loader  *dataset.Loader
	adapter *forecast.Adapter
	logger  zerolog.Logger
}

// New creates a server over an already-constructed loader and adapter.
func New(cfg *config.Config, loader *dataset.Loader, adapter *forecast.Adapter) *Server {
	return &Server{
		cfg:     cfg,
		loader:  loader,
		adapter: adapter,
		logger:  log.With().Str("component", "server").Logger(),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.rateLimiter())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/locations", s.handleLocations)
		r.Get("/series", s.handleSeries)
		r.Get("/trend", s.handleTrend)
		r.Get("/forecast", s.handleForecast)
		r.Get("/forecast.csv", s.handleForecastCSV)
		r.Get("/compare", s.handleCompare)
		r.Get("/snapshot", s.handleSnapshot)
	})

	return r
}

type pointDTO struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

func toPoints(s models.TimeSeries) []pointDTO {
	out := make([]pointDTO, 0, len(s))
	for _, p := range s {
		dto := pointDTO{Date: p.Date.Format(models.DateLayout)}
		if p.Valid {
			v := p.Value
			dto.Value = &v
		}
		out = append(out, dto)
	}
	return out
}

type seriesResponse struct {
	Location string     `json:"location"`
	Measure  string     `json:"measure"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	Points   []pointDTO `json:"points"`
}

type trendResponse struct {
	seriesResponse
	Trend  string `json:"trend"`
	Window int    `json:"window,omitempty"`
}

type forecastResponse struct {
	Location    string    `json:"location"`
	Measure     string    `json:"measure"`
	HorizonDays int       `json:"horizon_days"`
	Dates       []string  `json:"dates"`
	Forecast    []float64 `json:"forecast"`
	Lower       []float64 `json:"lower"`
	Upper       []float64 `json:"upper"`
}

type compareResponse struct {
	Measure string               `json:"measure"`
	From    string               `json:"from"`
	To      string               `json:"to"`
	Dates   []string             `json:"dates"`
	Series  map[string][]float64 `json:"series"`
}

type snapshotPoint struct {
	Location string  `json:"location"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type snapshotResponse struct {
	XMeasure string          `json:"x_measure"`
	YMeasure string          `json:"y_measure"`
	Points   []snapshotPoint `json:"points"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, aggregate.GlobalSummary(ds))
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string][]string{"locations": ds.Locations()})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ds, location, measure, rng, ok := s.selection(w, r)
	if !ok {
		return
	}

	series, err := s.locationSeries(ds, location, measure, rng)
	if err != nil && !errors.Is(err, models.ErrEmptySelection) {
		s.respondError(w, r, err)
		return
	}

	render.JSON(w, r, seriesResponse{
		Location: location,
		Measure:  string(measure),
		From:     rng.Start.Format(models.DateLayout),
		To:       rng.End.Format(models.DateLayout),
		Points:   toPoints(series),
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	ds, location, measure, rng, ok := s.selection(w, r)
	if !ok {
		return
	}

	kind := r.URL.Query().Get("type")
	window := s.cfg.MovingAvgWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.badRequest(w, r, fmt.Sprintf("invalid window %q", raw))
			return
		}
		window = v
	}

	series, err := s.locationSeries(ds, location, measure, rng)
	if err != nil && !errors.Is(err, models.ErrEmptySelection) {
		s.respondError(w, r, err)
		return
	}

	resp := trendResponse{
		seriesResponse: seriesResponse{
			Location: location,
			Measure:  string(measure),
			From:     rng.Start.Format(models.DateLayout),
			To:       rng.End.Format(models.DateLayout),
		},
		Trend: kind,
	}

	switch kind {
	case "moving_average":
		resp.Window = window
		resp.Points = toPoints(trend.MovingAverage(series, window))
	case "growth_rate":
		resp.Points = toPoints(trend.GrowthRate(series))
	default:
		s.badRequest(w, r, fmt.Sprintf("unknown trend type %q", kind))
		return
	}

	render.JSON(w, r, resp)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	location, measure, horizon, fc, ok := s.runForecast(w, r)
	if !ok {
		return
	}

	resp := &forecastResponse{
		Location:    location,
		Measure:     string(measure),
		HorizonDays: horizon,
		Forecast:    fc.Forecast,
		Lower:       fc.Lower,
		Upper:       fc.Upper,
	}
	for _, d := range fc.Dates {
		resp.Dates = append(resp.Dates, d.Format(models.DateLayout))
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleForecastCSV(w http.ResponseWriter, r *http.Request) {
	location, _, _, fc, ok := s.runForecast(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", location+"_covid_forecast.csv"))
	if err := export.ForecastCSV(w, fc); err != nil {
		s.logger.Error().Err(err).Msg("Writing forecast CSV failed")
	}
}

func (s *Server) runForecast(w http.ResponseWriter, r *http.Request) (string, models.Measure, int, *models.ForecastResponse, bool) {
	ds, location, measure, rng, ok := s.selection(w, r)
	if !ok {
		return "", "", 0, nil, false
	}

	horizon := s.cfg.DefaultHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(w, r, fmt.Sprintf("invalid horizon %q", raw))
			return "", "", 0, nil, false
		}
		horizon = v
	}

	series, err := s.locationSeries(ds, location, measure, rng)
	if err != nil {
		s.respondError(w, r, err)
		return "", "", 0, nil, false
	}

	fc, err := s.adapter.ForecastSeries(r.Context(), series, horizon)
	if err != nil {
		s.respondError(w, r, err)
		return "", "", 0, nil, false
	}
	return location, measure, horizon, fc, true
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	measure, ok := s.parseMeasure(w, r, ds)
	if !ok {
		return
	}
	rng, ok := s.parseRange(w, r, ds)
	if !ok {
		return
	}

	var locations []string
	if raw := r.URL.Query().Get("locations"); raw != "" {
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				locations = append(locations, l)
			}
		}
	}

	sub := filter.ByLocation(filter.ByDateRange(ds, rng), locations)

	// Pivot to one column per location over the union of dates; locations
	// missing a date contribute 0, matching the dashboard's comparison chart.
	var dates []string
	index := make(map[string]int)
	for _, o := range sub.Observations {
		key := o.Date.Format(models.DateLayout)
		if _, ok := index[key]; !ok {
			index[key] = 0
			dates = append(dates, key)
		}
	}
	sort.Strings(dates) // ISO dates sort chronologically
	for i, d := range dates {
		index[d] = i
	}

	series := make(map[string][]float64, len(locations))
	for _, l := range locations {
		series[l] = make([]float64, len(dates))
	}
	for _, o := range sub.Observations {
		if v, ok := o.Value(measure); ok {
			series[o.Location][index[o.Date.Format(models.DateLayout)]] = v
		}
	}

	render.JSON(w, r, compareResponse{
		Measure: string(measure),
		From:    rng.Start.Format(models.DateLayout),
		To:      rng.End.Format(models.DateLayout),
		Dates:   dates,
		Series:  series,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	xMeasure, ok := s.parseMeasureParam(w, r, ds, "x", models.MeasureAged65Older)
	if !ok {
		return
	}
	yMeasure, ok := s.parseMeasureParam(w, r, ds, "y", models.MeasureTotalCases)
	if !ok {
		return
	}

	snapshot := aggregate.LatestSnapshot(ds)
	resp := snapshotResponse{
		XMeasure: string(xMeasure),
		YMeasure: string(yMeasure),
		Points:   []snapshotPoint{},
	}
	for _, location := range ds.Locations() {
		row := snapshot[location]
		x, okX := row.Value(xMeasure)
		y, okY := row.Value(yMeasure)
		if okX && okY {
			resp.Points = append(resp.Points, snapshotPoint{Location: location, X: x, Y: y})
		}
	}

	render.JSON(w, r, resp)
}

// selection parses the common location/measure/range parameters and loads
// the dataset.
func (s *Server) selection(w http.ResponseWriter, r *http.Request) (*models.Dataset, string, models.Measure, models.DateRange, bool) {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return nil, "", "", models.DateRange{}, false
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		s.badRequest(w, r, "location parameter is required")
		return nil, "", "", models.DateRange{}, false
	}

	measure, ok := s.parseMeasure(w, r, ds)
	if !ok {
		return nil, "", "", models.DateRange{}, false
	}
	rng, ok := s.parseRange(w, r, ds)
	if !ok {
		return nil, "", "", models.DateRange{}, false
	}
	return ds, location, measure, rng, true
}

// locationSeries runs the filter stages and extracts the series.
func (s *Server) locationSeries(ds *models.Dataset, location string, m models.Measure, rng models.DateRange) (models.TimeSeries, error) {
	sub := filter.ByLocation(filter.ByDateRange(ds, rng), []string{location})
	return sub.Series(location, m)
}

func (s *Server) parseMeasure(w http.ResponseWriter, r *http.Request, ds *models.Dataset) (models.Measure, bool) {
	return s.parseMeasureParam(w, r, ds, "measure", models.MeasureNewCases)
}

func (s *Server) parseMeasureParam(w http.ResponseWriter, r *http.Request, ds *models.Dataset, param string, fallback models.Measure) (models.Measure, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return fallback, true
	}
	m, err := models.ParseMeasure(raw)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return "", false
	}
	if !ds.HasMeasure(m) {
		s.badRequest(w, r, fmt.Sprintf("measure %q not present in this dataset", m))
		return "", false
	}
	return m, true
}

// parseRange reads from/to, defaulting to the trailing DefaultRangeDays of
// the dataset, and clamps the result to the observed span.
func (s *Server) parseRange(w http.ResponseWriter, r *http.Request, ds *models.Dataset) (models.DateRange, bool) {
	start := models.AddDays(ds.MaxDate(), -s.cfg.DefaultRangeDays)
	end := ds.MaxDate()

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := models.ParseDay(raw)
		if err != nil {
			s.badRequest(w, r, err.Error())
			return models.DateRange{}, false
		}
		start = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := models.ParseDay(raw)
		if err != nil {
			s.badRequest(w, r, err.Error())
			return models.DateRange{}, false
		}
		end = t
	}

	rng, err := models.NewDateRange(start, end)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return models.DateRange{}, false
	}
	return rng.ClampTo(ds), true
}

type errResponse struct {
	Error string `json:"error"`
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errResponse{Error: msg})
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrDataUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidHorizon),
		errors.Is(err, models.ErrInsufficientHistory),
		errors.Is(err, models.ErrEmptySelection):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	render.Status(r, status)
	render.JSON(w, r, errResponse{Error: err.Error()})
}
