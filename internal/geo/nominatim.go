package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "barista-adviser/1.0"
	defaultHTTPTimeout  = 15 * time.Second
)

// ErrNoMatch is returned when an address does not resolve to a location.
var ErrNoMatch = errors.New("address not found")

// NominatimClient geocodes addresses with an OpenStreetMap Nominatim server.
// Requests are throttled and successful lookups are cached for the life of
// the client.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]domain.Coordinates
}

// NewNominatimClient creates a client allowing rps requests per second.
func NewNominatimClient(baseURL, userAgent string, rps float64, logger *zap.Logger) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if rps <= 0 {
		rps = 1
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		cache:      make(map[string]domain.Coordinates),
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for address.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return domain.Coordinates{}, ErrNoMatch
	}

	c.mu.RLock()
	coords, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return coords, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode throttle: %w", err)
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("read geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("geocode status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return domain.Coordinates{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	coords = domain.Coordinates{Lat: lat, Lon: lon}

	c.mu.Lock()
	c.cache[key] = coords
	c.mu.Unlock()

	c.logger.Debug("geocoded address",
		zap.String("address", address),
		zap.String("match", places[0].DisplayName),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon))
	return coords, nil
}

var _ domain.Geocoder = (*NominatimClient)(nil)
