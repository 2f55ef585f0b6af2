// Package routing asks an OSRM compatible routing service for driving
// distances between two coordinates.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/geo"
	"parcel-mileage-service/workers/shipments/models"
)

const (
	profile          = "driving"
	geohashPrecision = 9
)

type Config struct {
	BaseURI string
	Timeout time.Duration
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Client returns driving miles between coordinates. Results are memoized by
// the geohash of both endpoints for the lifetime of the client.
type Client struct {
	logger *zap.Logger
	config Config
	client *http.Client

	mu    sync.Mutex
	cache map[string]float64
}

func NewClient(logger *zap.Logger, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		logger: logger,
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  make(map[string]float64),
	}
}

// DrivingMiles returns the recommended driving distance from origin to
// destination. models.ErrNoRouteFound is returned when the service has no
// route.
func (c *Client) DrivingMiles(ctx context.Context, origin, destination models.Coordinate) (float64, error) {
	key := cacheKey(origin, destination)

	c.mu.Lock()
	miles, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return miles, nil
	}

	miles, err := c.route(ctx, origin, destination)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.cache[key] = miles
	c.mu.Unlock()
	return miles, nil
}

func (c *Client) route(ctx context.Context, origin, destination models.Coordinate) (float64, error) {
	endpoint := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f",
		strings.TrimRight(c.config.BaseURI, "/"), profile,
		origin.Lon, origin.Lat, destination.Lon, destination.Lat)

	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, err
	}
	q := u.Query()
	q.Set("overview", "false")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	// OSRM answers 400 with code NoRoute when the points are not connected.
	if body.Code != "Ok" || len(body.Routes) == 0 {
		c.logger.Debug("Routing service returned no route",
			zap.String("origin", origin.String()),
			zap.String("destination", destination.String()),
			zap.String("code", body.Code),
			zap.String("message", body.Message),
		)
		return 0, fmt.Errorf("%w: %s to %s (%s)", models.ErrNoRouteFound, origin, destination, body.Code)
	}

	return body.Routes[0].Distance / geo.MetersPerMile, nil
}

func cacheKey(origin, destination models.Coordinate) string {
	return geohash.EncodeWithPrecision(origin.Lat, origin.Lon, geohashPrecision) + ":" +
		geohash.EncodeWithPrecision(destination.Lat, destination.Lon, geohashPrecision)
}
