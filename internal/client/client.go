// Package client talks to the discovery API and to the chat recommendation backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/regions"
)

const sessionHeader = "X-Session-ID"

// Client is a discovery API client bound to one session.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the API at baseURL acting as sessionID.
func New(baseURL, sessionID string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SessionID returns the session token sent with every request.
func (c *Client) SessionID() string { return c.sessionID }

// SetLocation reports the session's coordinate.
func (c *Client) SetLocation(ctx context.Context, coord domain.Coordinate) error {
	body, err := json.Marshal(coord)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/location", nil, body, nil)
}

// Nearby asks for restaurants around the session's stored coordinate. An
// empty category means all.
func (c *Client) Nearby(ctx context.Context, radiusKm float64, category domain.Category) ([]domain.RankedResult, error) {
	q := url.Values{"radius": {strconv.FormatFloat(radiusKm, 'f', -1, 64)}}
	if category != "" {
		q.Set("category", string(category))
	}
	var out []domain.RankedResult
	if err := c.do(ctx, http.MethodGet, "/restaurants/nearby", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Markers returns the full dataset.
func (c *Client) Markers(ctx context.Context) ([]domain.POI, error) {
	var out []domain.POI
	if err := c.do(ctx, http.MethodGet, "/restaurants/markers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Detail returns one restaurant.
func (c *Client) Detail(ctx context.Context, id int64) (domain.POI, error) {
	var out domain.POI
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.do(ctx, http.MethodGet, "/restaurant/detail", q, nil, &out); err != nil {
		return domain.POI{}, err
	}
	return out, nil
}

// Regions fetches the server's province/district table.
func (c *Client) Regions(ctx context.Context) (*regions.Table, error) {
	var snap regions.Snapshot
	if err := c.do(ctx, http.MethodGet, "/regions", nil, nil, &snap); err != nil {
		return nil, err
	}
	return regions.New(snap)
}

// ForwardGeocode resolves a place name through the server. It implements
// domain.Geocoder; a 404 is reported as no match.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	var out struct {
		RegionName string            `json:"region_name"`
		PlaceName  string            `json:"place_name"`
		Coordinate domain.Coordinate `json:"coordinate"`
		Confidence float64           `json:"confidence"`
	}
	err := c.do(ctx, http.MethodGet, "/geocode", url.Values{"q": {query}}, nil, &out)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.GeocodingResult{}, nil
	}
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	return domain.GeocodingResult{
		Coordinate: out.Coordinate,
		RegionName: out.RegionName,
		PlaceName:  out.PlaceName,
		Confidence: out.Confidence,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(sessionHeader, c.sessionID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// statusError maps an API status code back onto the domain sentinel errors.
func statusError(method, path string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = domain.ErrInvalidArgument
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	default:
		sentinel = domain.ErrUnavailable
	}
	return fmt.Errorf("%s %s: status %d: %w: %s", method, path, resp.StatusCode, sentinel, body.Error)
}
