package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/geocode"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "intake.db")
	s, err := Open(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, RunRecord{
		ProjectID:        "AB12CD34",
		InputPath:        "/drawings/riverside",
		ProjectType:      "new_build_residential",
		Status:           "critical_gaps",
		Recommendation:   "hold",
		CompletenessPct:  42.5,
		TotalDocuments:   2,
		TotalDrawings:    7,
		WarningCount:     3,
		ProcessingTimeMS: 1234,
	}))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, "AB12CD34", got.ProjectID)
	assert.Equal(t, "hold", got.Recommendation)
	assert.InDelta(t, 42.5, got.CompletenessPct, 1e-9)
	assert.Equal(t, 7, got.TotalDrawings)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGeocodeCacheRoundTrip(t *testing.T) {
	s := testStore(t)
	cache := s.GeocodeCache()

	_, ok := cache.Get("sw1a 1aa:postcodes_io")
	assert.False(t, ok)

	loc := &geocode.Location{
		Query:        "SW1A 1AA",
		Provider:     "postcodes_io",
		Latitude:     51.501009,
		Longitude:    -0.141588,
		Postcode:     "SW1A 1AA",
		MatchQuality: constants.MatchExact,
	}
	cache.Put("sw1a 1aa:postcodes_io", loc)

	got, ok := cache.Get("sw1a 1aa:postcodes_io")
	require.True(t, ok)
	assert.Equal(t, loc.Postcode, got.Postcode)
	assert.InDelta(t, loc.Latitude, got.Latitude, 1e-9)

	// Upsert replaces the stored value.
	loc.Latitude = 52.0
	cache.Put("sw1a 1aa:postcodes_io", loc)
	got, ok = cache.Get("sw1a 1aa:postcodes_io")
	require.True(t, ok)
	assert.InDelta(t, 52.0, got.Latitude, 1e-9)
}
