package geocode

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizePostcode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sw1a1aa", "SW1A 1AA"},
		{"SW1A 1AA", "SW1A 1AA"},
		{"  rg1 8bt ", "RG1 8BT"},
		{"EC1A1BB", "EC1A 1BB"},
		{"not a postcode", "NOT A POSTCODE"},
	}
	for _, tt := range tests {
		got := NormalizePostcode(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		// Idempotence: normalizing again must not change anything.
		assert.Equal(t, got, NormalizePostcode(got), tt.in)
	}
}

func TestIsUKPostcode(t *testing.T) {
	assert.True(t, IsUKPostcode("SW1A 1AA"))
	assert.True(t, IsUKPostcode("rg1 8bt"))
	assert.True(t, IsUKPostcode("M1 1AE"))
	assert.False(t, IsUKPostcode("12345"))
	assert.False(t, IsUKPostcode("10 Downing Street"))
	assert.False(t, IsUKPostcode(""))
}

func postcodesServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path == "/postcodes/XX11XX" {
			http.Error(w, `{"status": 404, "error": "Postcode not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"result": map[string]any{
				"postcode":       "SW1A 1AA",
				"latitude":       51.501009,
				"longitude":      -0.141588,
				"admin_district": "Westminster",
				"region":         "London",
				"country":        "England",
			},
		})
	}))
}

func TestGeocodePostcodeRouting(t *testing.T) {
	var hits atomic.Int64
	srv := postcodesServer(t, &hits)
	defer srv.Close()

	g := New(Config{PostcodesBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	// Postcodes always route to postcodes.io even when another provider is
	// requested, with a warning.
	res, err := g.Geocode(context.Background(), "sw1a 1aa", "google")
	require.NoError(t, err)
	assert.Equal(t, "postcodes_io", res.Location.Provider)
	assert.Equal(t, constants.MatchExact, res.Location.MatchQuality)
	assert.InDelta(t, 51.501009, res.Location.Latitude, 1e-6)
	assert.Equal(t, "Westminster", res.Location.LocalAuthority)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "postcodes.io")
}

func TestGeocodeCacheHit(t *testing.T) {
	var hits atomic.Int64
	srv := postcodesServer(t, &hits)
	defer srv.Close()

	g := New(Config{PostcodesBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	_, err := g.Geocode(context.Background(), "SW1A 1AA", "")
	require.NoError(t, err)
	_, err = g.Geocode(context.Background(), "sw1a1aa", "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "second lookup must come from cache")
}

func TestGeocodeAddressToPostcodesIOInvalid(t *testing.T) {
	g := New(Config{Timeout: time.Second}, nil, testLogger())
	_, err := g.Geocode(context.Background(), "10 Downing Street, London", "postcodes_io")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UK postcodes")
}

func TestGeocodeGoogleWithoutKeyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "gb", r.URL.Query().Get("countrycodes"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"lat":          "51.4543",
				"lon":          "-0.9781",
				"display_name": "45 River Lane, Reading, England",
				"class":        "place",
				"type":         "house",
				"address": map[string]any{
					"postcode": "RG1 8BT",
					"city":     "Reading",
					"state":    "England",
					"country":  "United Kingdom",
				},
			},
		})
	}))
	defer srv.Close()

	g := New(Config{NominatimBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	res, err := g.Geocode(context.Background(), "45 River Lane, Reading", "google")
	require.NoError(t, err)
	assert.Equal(t, "nominatim", res.Location.Provider)
	assert.Equal(t, constants.MatchExact, res.Location.MatchQuality)
	assert.Contains(t, res.Warnings[0], "falling back to Nominatim")
	assert.Equal(t, "RG1 8BT", res.Location.Postcode)
}

func TestGeocodeNominatimMatchQuality(t *testing.T) {
	quality := "road"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"lat": "51.0", "lon": "-1.0", "display_name": "River Lane", "class": "highway", "type": quality},
		})
	}))
	defer srv.Close()

	g := New(Config{NominatimBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	res, err := g.Geocode(context.Background(), "River Lane, Reading", "")
	require.NoError(t, err)
	assert.Equal(t, constants.MatchPartial, res.Location.MatchQuality)
	assert.Contains(t, res.Warnings, "Match quality: partial")
}

func TestGoogleProviderLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{
					"formatted_address": "45 River Lane, Reading RG1 8BT, UK",
					"geometry": map[string]any{
						"location":      map[string]any{"lat": 51.4543, "lng": -0.9781},
						"location_type": "ROOFTOP",
					},
					"address_components": []map[string]any{
						{"long_name": "RG1 8BT", "types": []string{"postal_code"}},
						{"long_name": "Reading", "types": []string{"postal_town"}},
						{"long_name": "England", "types": []string{"administrative_area_level_1"}},
						{"long_name": "United Kingdom", "types": []string{"country"}},
					},
				},
			},
		})
	}))
	defer srv.Close()

	g := New(Config{GoogleBaseURL: srv.URL, GoogleAPIKey: "secret", Timeout: 5 * time.Second}, nil, testLogger())

	res, err := g.Geocode(context.Background(), "45 River Lane, Reading", "google")
	require.NoError(t, err)
	assert.Equal(t, "google", res.Location.Provider)
	assert.Equal(t, constants.MatchExact, res.Location.MatchQuality)
	assert.Equal(t, "RG1 8BT", res.Location.Postcode)
	assert.Equal(t, "Reading", res.Location.LocalAuthority)
	assert.Equal(t, "England", res.Location.Region)
}

func TestValidatePostcode(t *testing.T) {
	srv := postcodesServer(t, nil)
	defer srv.Close()

	g := New(Config{PostcodesBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	ok, err := g.ValidatePostcode(context.Background(), "SW1A 1AA")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.ValidatePostcode(context.Background(), "XX1 1XX")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.ValidatePostcode(context.Background(), "not a postcode")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnrichLocation(t *testing.T) {
	srv := postcodesServer(t, nil)
	defer srv.Close()

	g := New(Config{PostcodesBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	loc := &entity.LocationInfo{
		Address:  "45 River Lane, Reading",
		Postcode: "sw1a1aa",
	}
	enriched, status, _ := g.EnrichLocation(context.Background(), loc)
	assert.Equal(t, constants.StepSuccess, status)
	// Extracted fields survive; coordinates always come from the geocoder.
	assert.Equal(t, "45 River Lane, Reading", enriched.Address)
	assert.Equal(t, "SW1A 1AA", enriched.Postcode)
	assert.InDelta(t, 51.501009, enriched.Latitude, 1e-6)
	assert.Equal(t, "Westminster", enriched.LocalAuthority)
	assert.Equal(t, "London", enriched.Region)
	assert.Equal(t, "England", enriched.Country)
}

func TestEnrichLocationCountryFirstWriteWins(t *testing.T) {
	srv := postcodesServer(t, nil)
	defer srv.Close()

	g := New(Config{PostcodesBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, testLogger())

	// The extracted country must not be replaced by the provider's
	// ("England" from postcodes.io).
	loc := &entity.LocationInfo{Postcode: "SW1A 1AA", Country: "UK"}
	enriched, status, _ := g.EnrichLocation(context.Background(), loc)
	assert.Equal(t, constants.StepSuccess, status)
	assert.Equal(t, "UK", enriched.Country)
}

func TestEnrichLocationNoQuery(t *testing.T) {
	g := New(Config{Timeout: time.Second}, nil, testLogger())
	_, status, warnings := g.EnrichLocation(context.Background(), &entity.LocationInfo{})
	assert.Equal(t, constants.StepPartial, status)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "No postcode or address")
}
