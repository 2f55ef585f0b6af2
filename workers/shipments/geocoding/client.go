// Package geocoding looks up coordinates for postal codes and cities through
// a Nominatim compatible search API.
package geocoding

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
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"parcel-mileage-service/workers/shipments/models"
)

var ErrNotFound = errors.New("geocoder returned no results")

type Config struct {
	BaseURI     string
	UserAgent   string
	CountryCode string
	Timeout     time.Duration
	MaxAttempts int
	MinInterval time.Duration
}

type Client struct {
	logger  *zap.Logger
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(logger *zap.Logger, cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "us"
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Client{
		logger:  logger,
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) GeocodePostalCode(ctx context.Context, code string) (models.Place, error) {
	q := url.Values{}
	q.Set("postalcode", code)
	place, err := c.geocode(ctx, q)
	if err != nil {
		return models.Place{}, err
	}
	place.PostalCode = code
	return place, nil
}

func (c *Client) GeocodeCity(ctx context.Context, city, state string) (models.Place, error) {
	q := url.Values{}
	q.Set("city", city)
	if state != "" {
		q.Set("state", state)
	}
	place, err := c.geocode(ctx, q)
	if err != nil {
		return models.Place{}, err
	}
	if place.State == "" {
		place.State = strings.ToUpper(state)
	}
	return place, nil
}

// geocode runs a search, retrying transient failures. An empty result set
// is final and is not retried.
func (c *Client) geocode(ctx context.Context, q url.Values) (models.Place, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Place{}, err
		}

		place, err := c.search(ctx, q)
		if err == nil || errors.Is(err, ErrNotFound) {
			return place, err
		}
		if ctx.Err() != nil {
			return models.Place{}, ctx.Err()
		}

		lastErr = err
		c.logger.Debug("Geocoder request failed",
			zap.String("query", q.Encode()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return models.Place{}, fmt.Errorf("geocoder failed after %d attempts: %w", c.config.MaxAttempts, lastErr)
}

func (c *Client) search(ctx context.Context, q url.Values) (models.Place, error) {
	u, err := url.Parse(strings.TrimRight(c.config.BaseURI, "/") + "/search")
	if err != nil {
		return models.Place{}, err
	}

	q = cloneValues(q)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	q.Set("countrycodes", c.config.CountryCode)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Place{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Place{}, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return models.Place{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Place{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 {
		return models.Place{}, ErrNotFound
	}
	return results[0].Place()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func parseCoordinate(lat, lon string) (models.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid longitude %q", lon)
	}
	return models.Coordinate{Lat: la, Lon: lo}, nil
}
