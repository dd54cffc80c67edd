package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
)

// postcodesIO resolves UK postcodes via the free postcodes.io API. Postcode
// lookups are authoritative, so every hit is an exact match.
type postcodesIO struct {
	baseURL string
	client  *http.Client
}

func newPostcodesIO(baseURL string, client *http.Client) *postcodesIO {
	if baseURL == "" {
		baseURL = "https://api.postcodes.io"
	}
	return &postcodesIO{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *postcodesIO) name() string { return "postcodes_io" }

func (p *postcodesIO) lookup(ctx context.Context, query string) (*Location, error) {
	compact := strings.ReplaceAll(query, " ", "")
	endpoint := p.baseURL + "/postcodes/" + url.PathEscape(compact)

	raw, status, err := getJSON(ctx, p.client, endpoint, nil)
	if err != nil {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("postcodes.io request failed: %v", err), common.ErrProvider)
	}
	if status == http.StatusNotFound {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("postcode not found: %s", query), common.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("postcodes.io status %d", status), common.ErrProvider)
	}

	var resp struct {
		Result struct {
			Postcode      string  `json:"postcode"`
			Latitude      float64 `json:"latitude"`
			Longitude     float64 `json:"longitude"`
			AdminDistrict string  `json:"admin_district"`
			Region        string  `json:"region"`
			Country       string  `json:"country"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("decode postcodes.io response: %v", err), common.ErrProvider)
	}

	return &Location{
		Latitude:       resp.Result.Latitude,
		Longitude:      resp.Result.Longitude,
		Postcode:       resp.Result.Postcode,
		LocalAuthority: resp.Result.AdminDistrict,
		Region:         resp.Result.Region,
		Country:        resp.Result.Country,
		MatchQuality:   constants.MatchExact,
	}, nil
}

// nominatim resolves free-text addresses via OpenStreetMap, constrained to
// Great Britain. Requires a User-Agent per the usage policy.
type nominatim struct {
	baseURL string
	client  *http.Client
}

func newNominatim(baseURL string, client *http.Client) *nominatim {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &nominatim{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (n *nominatim) name() string { return "nominatim" }

func (n *nominatim) lookup(ctx context.Context, query string) (*Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "gb")
	endpoint := n.baseURL + "/search?" + params.Encode()

	raw, status, err := getJSON(ctx, n.client, endpoint, map[string]string{
		"User-Agent": "qsintake/1.0 (drawing intake pipeline)",
	})
	if err != nil {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("nominatim request failed: %v", err), common.ErrProvider)
	}
	if status != http.StatusOK {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("nominatim status %d", status), common.ErrProvider)
	}

	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
		Class       string `json:"class"`
		Type        string `json:"type"`
		Address     struct {
			Postcode string `json:"postcode"`
			City     string `json:"city"`
			County   string `json:"county"`
			State    string `json:"state"`
			Country  string `json:"country"`
		} `json:"address"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("decode nominatim response: %v", err), common.ErrProvider)
	}
	if len(hits) == 0 {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("address not found: %s", query), common.ErrNotFound)
	}

	hit := hits[0]
	lat, _ := strconv.ParseFloat(hit.Lat, 64)
	lon, _ := strconv.ParseFloat(hit.Lon, 64)

	quality := constants.MatchApproximate
	switch hit.Type {
	case "house", "building", "address", "residential":
		quality = constants.MatchExact
	case "street", "road":
		quality = constants.MatchPartial
	}

	localAuthority := hit.Address.City
	if localAuthority == "" {
		localAuthority = hit.Address.County
	}

	return &Location{
		Latitude:       lat,
		Longitude:      lon,
		Address:        hit.DisplayName,
		Postcode:       NormalizePostcode(hit.Address.Postcode),
		LocalAuthority: localAuthority,
		Region:         hit.Address.State,
		Country:        hit.Address.Country,
		MatchQuality:   quality,
	}, nil
}

// googleGeocode resolves addresses via the Google Geocoding API.
type googleGeocode struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newGoogleGeocode(baseURL, apiKey string, client *http.Client) *googleGeocode {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &googleGeocode{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (g *googleGeocode) name() string { return "google" }

func (g *googleGeocode) lookup(ctx context.Context, query string) (*Location, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("region", "uk")
	params.Set("key", g.apiKey)
	endpoint := g.baseURL + "/maps/api/geocode/json?" + params.Encode()

	raw, status, err := getJSON(ctx, g.client, endpoint, nil)
	if err != nil {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("google geocode request failed: %v", err), common.ErrProvider)
	}
	if status != http.StatusOK {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("google geocode status %d", status), common.ErrProvider)
	}

	var resp struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
				LocationType string `json:"location_type"`
			} `json:"geometry"`
			AddressComponents []struct {
				LongName string   `json:"long_name"`
				Types    []string `json:"types"`
			} `json:"address_components"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("decode google response: %v", err), common.ErrProvider)
	}
	if resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("address not found: %s", query), common.ErrNotFound)
	}
	if resp.Status != "OK" {
		return nil, common.NewAppError("PROVIDER_ERROR", fmt.Sprintf("google geocode status: %s", resp.Status), common.ErrProvider)
	}

	hit := resp.Results[0]
	quality := constants.MatchApproximate
	switch hit.Geometry.LocationType {
	case "ROOFTOP":
		quality = constants.MatchExact
	case "RANGE_INTERPOLATED", "GEOMETRIC_CENTER":
		quality = constants.MatchPartial
	}

	loc := &Location{
		Latitude:     hit.Geometry.Location.Lat,
		Longitude:    hit.Geometry.Location.Lng,
		Address:      hit.FormattedAddress,
		MatchQuality: quality,
	}
	for _, comp := range hit.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "postal_code":
				loc.Postcode = NormalizePostcode(comp.LongName)
			case "postal_town", "administrative_area_level_2":
				if loc.LocalAuthority == "" {
					loc.LocalAuthority = comp.LongName
				}
			case "administrative_area_level_1":
				loc.Region = comp.LongName
			case "country":
				loc.Country = comp.LongName
			}
		}
	}
	return loc, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			slog.Warn("geocode response body close error", "error", cerr)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, resp.StatusCode, err
	}
	return buf.Bytes(), resp.StatusCode, nil
}
