package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Covidash/models"
)

type fakeSource struct {
	calls        int64
	observations []models.Observation
	measures     []models.Measure
	err          error
}

func (f *fakeSource) Observations(ctx context.Context) ([]models.Observation, []models.Measure, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.observations, f.measures, f.err
}

func sampleRows() []models.Observation {
	var out []models.Observation
	for d := 1; d <= 5; d++ {
		out = append(out, models.Observation{
			Location: "A",
			Date:     time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC),
			Measures: map[models.Measure]float64{models.MeasureNewCases: float64(d)},
		})
	}
	return out
}

func TestLoadCachesDataset(t *testing.T) {
	source := &fakeSource{observations: sampleRows(), measures: []models.Measure{models.MeasureNewCases}}
	loader := New(source)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second, "repeated loads must return the identical dataset")
	assert.EqualValues(t, 1, atomic.LoadInt64(&source.calls), "backing store read more than once")
}

func TestLoadConcurrentFirstUse(t *testing.T) {
	source := &fakeSource{observations: sampleRows(), measures: []models.Measure{models.MeasureNewCases}}
	loader := New(source)

	const workers = 16
	results := make([]*models.Dataset, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := loader.Load(context.Background())
			assert.NoError(t, err)
			results[i] = ds
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&source.calls))
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("disk gone: %w", models.ErrDataUnavailable)}
	loader := New(source)

	_, err := loader.Load(context.Background())
	require.ErrorIs(t, err, models.ErrDataUnavailable)

	// The store recovers; the next call should read it again.
	source.err = nil
	source.observations = sampleRows()
	source.measures = []models.Measure{models.MeasureNewCases}

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	assert.EqualValues(t, 2, atomic.LoadInt64(&source.calls))
}

func TestLoadEmptyStore(t *testing.T) {
	loader := New(&fakeSource{measures: []models.Measure{models.MeasureNewCases}})

	_, err := loader.Load(context.Background())
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}
