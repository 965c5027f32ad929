// Google Maps client: geocoding and the distance matrix API behind the
// provider interfaces, with retry on transient failures.

package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/avast/retry-go"
)

const (
	googleGeocodeEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"
	googleMatrixEndpoint  = "https://maps.googleapis.com/maps/api/distancematrix/json"

	metersPerMile = 1609.344
)

// GoogleClient implements GeocodeProvider and DistanceProvider against the
// Google Maps web APIs. Transient statuses retry with backoff; definitive
// ones (bad request, zero results, denied) fail immediately.
type GoogleClient struct {
	APIKey     string
	HTTPClient *http.Client

	// Endpoint overrides for tests. Empty means the live API.
	GeocodeEndpoint string
	MatrixEndpoint  string
}

func (c *GoogleClient) Name() string { return "google" }

func (c *GoogleClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *GoogleClient) geocodeEndpoint() string {
	if c.GeocodeEndpoint != "" {
		return c.GeocodeEndpoint
	}
	return googleGeocodeEndpoint
}

func (c *GoogleClient) matrixEndpoint() string {
	if c.MatrixEndpoint != "" {
		return c.MatrixEndpoint
	}
	return googleMatrixEndpoint
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Types        []string `json:"types"`
		PartialMatch bool     `json:"partial_match"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocode resolves one free-form query to the API's best match.
func (c *GoogleClient) Geocode(ctx context.Context, query string) (Point, float64, error) {
	if c.APIKey == "" {
		return Point{}, 0, errors.New("google: api key not configured")
	}
	u := c.geocodeEndpoint() + "?" + url.Values{
		"address": {query},
		"key":     {c.APIKey},
	}.Encode()

	var pt Point
	var conf float64
	err := retry.Do(
		func() error {
			var out googleGeocodeResponse
			if err := c.getJSON(ctx, u, &out); err != nil {
				return err
			}
			switch out.Status {
			case "OK":
			case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
				return fmt.Errorf("google: geocode status %s", out.Status)
			default:
				return retry.Unrecoverable(fmt.Errorf("google: geocode status %s for %q", out.Status, query))
			}
			if len(out.Results) == 0 {
				return retry.Unrecoverable(fmt.Errorf("google: no results for %q", query))
			}
			best := out.Results[0]
			pt = Point{Lat: best.Geometry.Location.Lat, Lng: best.Geometry.Location.Lng}
			conf = matchConfidence(best.Types, best.PartialMatch)
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return Point{}, 0, err
	}
	return pt, conf, nil
}

// matchConfidence scores how precisely the API matched the query from the
// result types: rooftop-level 0.95, street-level 0.85, locality-level 0.70,
// anything vaguer 0.60, minus 0.15 for a partial match.
func matchConfidence(types []string, partial bool) float64 {
	ts := make(map[string]bool, len(types))
	for _, t := range types {
		ts[t] = true
	}
	conf := 0.60
	switch {
	case ts["street_address"] || ts["premise"] || ts["subpremise"]:
		conf = 0.95
	case ts["route"] || ts["intersection"]:
		conf = 0.85
	case ts["locality"] || ts["administrative_area_level_1"] || ts["administrative_area_level_2"]:
		conf = 0.70
	}
	if partial {
		conf -= 0.15
	}
	return math.Max(0, math.Min(1, conf))
}

type googleMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
	ErrorMessage string `json:"error_message"`
}

// Matrix measures every origin-destination combination in one API call.
// Any failed element fails the whole call; the matrix builder treats that
// as a provider outage and estimates offline instead.
func (c *GoogleClient) Matrix(ctx context.Context, origins, dests []Point) ([][]Leg, error) {
	if c.APIKey == "" {
		return nil, errors.New("google: api key not configured")
	}
	u := c.matrixEndpoint() + "?" + url.Values{
		"origins":      {joinPoints(origins)},
		"destinations": {joinPoints(dests)},
		"key":          {c.APIKey},
	}.Encode()

	var legs [][]Leg
	err := retry.Do(
		func() error {
			var out googleMatrixResponse
			if err := c.getJSON(ctx, u, &out); err != nil {
				return err
			}
			switch out.Status {
			case "OK":
			case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
				return fmt.Errorf("google: matrix status %s", out.Status)
			default:
				return retry.Unrecoverable(fmt.Errorf("google: matrix status %s: %s", out.Status, out.ErrorMessage))
			}
			if len(out.Rows) != len(origins) {
				return retry.Unrecoverable(fmt.Errorf("google: matrix returned %d rows for %d origins", len(out.Rows), len(origins)))
			}
			legs = make([][]Leg, len(origins))
			for i, row := range out.Rows {
				if len(row.Elements) != len(dests) {
					return retry.Unrecoverable(fmt.Errorf("google: matrix row %d has %d elements for %d destinations", i, len(row.Elements), len(dests)))
				}
				legs[i] = make([]Leg, len(dests))
				for j, el := range row.Elements {
					if el.Status != "OK" {
						return retry.Unrecoverable(fmt.Errorf("google: matrix element (%d,%d) status %s", i, j, el.Status))
					}
					legs[i][j] = Leg{
						Miles:   el.Distance.Value / metersPerMile,
						Minutes: el.Duration.Value / 60,
					}
				}
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return legs, nil
}

// Distance measures a single directed pair as a 1x1 matrix call.
func (c *GoogleClient) Distance(ctx context.Context, from, to Point) (Leg, error) {
	legs, err := c.Matrix(ctx, []Point{from}, []Point{to})
	if err != nil {
		return Leg{}, err
	}
	return legs[0][0], nil
}

func (c *GoogleClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("google: http %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return retry.Unrecoverable(fmt.Errorf("google: http %d", resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func joinPoints(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = p.CoordKey()
	}
	return strings.Join(parts, "|")
}
