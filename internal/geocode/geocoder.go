// Package geocode resolves UK postcodes and free-text addresses to
// coordinates, routing each query to the provider best suited to it.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
	"github.com/dellqs/qsintake/internal/entity"
)

// postcodeRe matches a full UK postcode with optional internal whitespace.
var postcodeRe = regexp.MustCompile(`^([A-Z]{1,2}[0-9][0-9A-Z]?)\s*([0-9][A-Z]{2})$`)

// Location is one resolved geocoding hit.
type Location struct {
	Query          string                 `json:"query"`
	Provider       string                 `json:"provider"`
	Latitude       float64                `json:"latitude"`
	Longitude      float64                `json:"longitude"`
	Address        string                 `json:"address,omitempty"`
	Postcode       string                 `json:"postcode,omitempty"`
	LocalAuthority string                 `json:"local_authority,omitempty"`
	Region         string                 `json:"region,omitempty"`
	Country        string                 `json:"country,omitempty"`
	MatchQuality   constants.MatchQuality `json:"match_quality"`
}

// Result pairs a hit with step bookkeeping.
type Result struct {
	Location *Location
	Status   constants.StepStatus
	Warnings []string
}

// Cache stores resolved queries. Keys are lower(query):provider.
type Cache interface {
	Get(key string) (*Location, bool)
	Put(key string, loc *Location)
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]*Location
}

func newMemoryCache() *memoryCache { return &memoryCache{m: map[string]*Location{}} }

func (c *memoryCache) Get(key string) (*Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.m[key]
	return loc, ok
}

func (c *memoryCache) Put(key string, loc *Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = loc
}

// provider resolves a single query. Each backend owns its own wire format.
type provider interface {
	name() string
	lookup(ctx context.Context, query string) (*Location, error)
}

// Config holds geocoder settings. The BaseURL fields exist so tests can
// point providers at a local server.
type Config struct {
	GoogleAPIKey     string
	Timeout          time.Duration
	PostcodesBaseURL string
	NominatimBaseURL string
	GoogleBaseURL    string
}

// Geocoder routes queries to postcodes.io, Nominatim or Google and caches
// every successful hit for the life of the process (or longer, with a
// persistent Cache).
type Geocoder struct {
	cfg       Config
	cache     Cache
	logger    *slog.Logger
	postcodes *postcodesIO
	nominatim *nominatim
	google    *googleGeocode
}

func New(cfg Config, cache Cache, logger *slog.Logger) *Geocoder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cache == nil {
		cache = newMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := &http.Client{Timeout: cfg.Timeout}
	return &Geocoder{
		cfg:       cfg,
		cache:     cache,
		logger:    logger,
		postcodes: newPostcodesIO(cfg.PostcodesBaseURL, client),
		nominatim: newNominatim(cfg.NominatimBaseURL, client),
		google:    newGoogleGeocode(cfg.GoogleBaseURL, cfg.GoogleAPIKey, client),
	}
}

// NormalizePostcode upper-cases and reformats a candidate postcode to the
// canonical "outward inward" form. Invalid input is returned unchanged
// (upper-cased, trimmed); the call is idempotent either way.
func NormalizePostcode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	compact := strings.ReplaceAll(s, " ", "")
	if m := postcodeRe.FindStringSubmatch(compact); m != nil {
		return m[1] + " " + m[2]
	}
	return s
}

// IsUKPostcode reports whether s is a full, valid-format UK postcode.
func IsUKPostcode(s string) bool {
	compact := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "")
	return postcodeRe.MatchString(compact)
}

// Geocode resolves query via the requested provider ("" lets the geocoder
// choose). UK postcodes always route to postcodes.io regardless of the
// request; free-text queries to postcodes.io are rejected as invalid input.
func (g *Geocoder) Geocode(ctx context.Context, query, providerName string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewAppError("INVALID_INPUT", "empty geocode query", common.ErrInvalidInput)
	}

	var warnings []string
	var p provider

	switch {
	case IsUKPostcode(query):
		if providerName != "" && providerName != g.postcodes.name() {
			warnings = append(warnings, fmt.Sprintf("Using postcodes.io for UK postcode (requested %s)", providerName))
		}
		query = NormalizePostcode(query)
		p = g.postcodes
	case providerName == g.postcodes.name():
		return nil, common.NewAppError("INVALID_INPUT",
			"postcodes.io only resolves UK postcodes; use nominatim or google for addresses", common.ErrInvalidInput)
	case providerName == g.google.name():
		if g.cfg.GoogleAPIKey == "" {
			warnings = append(warnings, "Google API key not configured, falling back to Nominatim")
			p = g.nominatim
		} else {
			p = g.google
		}
	default:
		p = g.nominatim
	}

	key := strings.ToLower(query) + ":" + p.name()
	if cached, ok := g.cache.Get(key); ok {
		g.logger.Debug("geocode.cache.hit", "query", query, "provider", p.name())
		return &Result{Location: cached, Status: constants.StepSuccess, Warnings: warnings}, nil
	}

	start := time.Now()
	loc, err := p.lookup(ctx, query)
	if err != nil {
		return nil, err
	}
	loc.Query = query
	loc.Provider = p.name()
	g.cache.Put(key, loc)

	if loc.MatchQuality != constants.MatchExact {
		warnings = append(warnings, fmt.Sprintf("Match quality: %s", loc.MatchQuality))
	}

	g.logger.Info("geocode.ok",
		"query", query,
		"provider", p.name(),
		"match_quality", loc.MatchQuality,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Location: loc, Status: constants.StepSuccess, Warnings: warnings}, nil
}

// ValidatePostcode checks format locally and then existence via postcodes.io.
func (g *Geocoder) ValidatePostcode(ctx context.Context, postcode string) (bool, error) {
	if !IsUKPostcode(postcode) {
		return false, nil
	}
	_, err := g.postcodes.lookup(ctx, NormalizePostcode(postcode))
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnrichLocation fills the gaps in an extracted location from geocoding.
// Extracted fields win; coordinates always come from the geocoder since
// extraction never produces them.
func (g *Geocoder) EnrichLocation(ctx context.Context, loc *entity.LocationInfo) (*entity.LocationInfo, constants.StepStatus, []string) {
	if loc == nil {
		loc = &entity.LocationInfo{}
	}
	query := loc.Postcode
	if query == "" {
		query = loc.Address
	}
	if query == "" {
		return loc, constants.StepPartial, []string{"No postcode or address available for geocoding"}
	}

	res, err := g.Geocode(ctx, query, "")
	if err != nil {
		g.logger.Warn("geocode.enrich.failed", "query", query, "error", err)
		return loc, constants.StepPartial, []string{fmt.Sprintf("Geocoding failed: %v", err)}
	}

	hit := res.Location
	loc.Latitude = hit.Latitude
	loc.Longitude = hit.Longitude
	if loc.Address == "" {
		loc.Address = hit.Address
	}
	if loc.Postcode == "" {
		loc.Postcode = hit.Postcode
	} else {
		loc.Postcode = NormalizePostcode(loc.Postcode)
	}
	if loc.LocalAuthority == "" {
		loc.LocalAuthority = hit.LocalAuthority
	}
	if loc.Region == "" {
		loc.Region = hit.Region
	}
	if loc.Country == "" {
		loc.Country = hit.Country
	}
	return loc, constants.StepSuccess, res.Warnings
}
