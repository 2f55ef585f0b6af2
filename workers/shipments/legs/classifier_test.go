package legs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/models"
)

type stubRouter struct {
	miles float64
	err   error
	calls int
}

func (r *stubRouter) DrivingMiles(context.Context, models.Coordinate, models.Coordinate) (float64, error) {
	r.calls++
	return r.miles, r.err
}

var start = time.Date(2021, time.March, 1, 16, 0, 0, 0, time.UTC)

func waypoint(city, state string, lat, lon float64, hours float64) models.Waypoint {
	return models.Waypoint{
		Coordinate: models.Coordinate{Lat: lat, Lon: lon},
		At:         start.Add(time.Duration(hours * float64(time.Hour))),
		City:       city,
		State:      state,
	}
}

// fixedDistance makes every leg exactly miles long.
func fixedDistance(c *Classifier, miles float64) {
	c.distance = func(a, b models.Coordinate) float64 { return miles }
}

func TestClassify_ShortRoutes(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)

	result, err := c.Classify(context.Background(), nil, Options{Explain: true})
	require.NoError(t, err)
	assert.Zero(t, result.GroundMiles)
	assert.Zero(t, result.AirMiles)
	assert.Empty(t, result.Trace)

	result, err = c.Classify(context.Background(), models.Route{waypoint("Atlanta", "GA", 33.75, -84.39, 0)}, Options{Explain: true})
	require.NoError(t, err)
	assert.Zero(t, result.GroundMiles)
	assert.Zero(t, result.AirMiles)
	assert.Empty(t, result.Trace)
}

func TestClassify_GroundDetourIndex(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	fixedDistance(c, 100.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Macon", "GA", 32.84, -83.63, 4),
	}
	result, err := c.Classify(context.Background(), route, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 141.7, result.GroundMiles, 1e-9)
	assert.Zero(t, result.AirMiles)
}

func TestClassify_AirBySpeedAndDistance(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	fixedDistance(c, 700.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Dallas", "TX", 32.78, -96.80, 5),
	}
	result, err := c.Classify(context.Background(), route, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 700.0, result.AirMiles, 1e-9)
	assert.Zero(t, result.GroundMiles)
}

func TestClassify_FastButShortIsGround(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	fixedDistance(c, 50.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Marietta", "GA", 33.95, -84.55, 0.5),
	}
	result, err := c.Classify(context.Background(), route, Options{})
	require.NoError(t, err)
	assert.Zero(t, result.AirMiles)
	assert.InDelta(t, 50.0*DetourIndex, result.GroundMiles, 1e-9)
}

func TestClassify_LongButSlowIsGround(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	fixedDistance(c, 700.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Dallas", "TX", 32.78, -96.80, 20),
	}
	result, err := c.Classify(context.Background(), route, Options{})
	require.NoError(t, err)
	assert.Zero(t, result.AirMiles)
	assert.InDelta(t, 700.0*DetourIndex, result.GroundMiles, 1e-9)
}

func TestClassify_OverseasRegionIsAir(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	fixedDistance(c, 40.0)

	route := models.Route{
		waypoint("Honolulu", "HI", 21.31, -157.86, 0),
		waypoint("Kailua", "hi", 21.40, -157.74, 2),
	}
	result, err := c.Classify(context.Background(), route, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 40.0, result.AirMiles, 1e-9)
	assert.Zero(t, result.GroundMiles)
}

func TestClassify_SkipsNonPositiveDuration(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	fixedDistance(c, 100.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 5),
		waypoint("Macon", "GA", 32.84, -83.63, 5),
		waypoint("Savannah", "GA", 32.08, -81.09, 3),
	}
	result, err := c.Classify(context.Background(), route, Options{Explain: true})
	require.NoError(t, err)
	assert.Zero(t, result.GroundMiles)
	assert.Zero(t, result.AirMiles)
	assert.Empty(t, result.Trace)
}

func TestClassify_SkipsIdenticalCoordinates(t *testing.T) {
	router := &stubRouter{miles: 90}
	c := NewClassifier(zap.NewNop(), router)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Atlanta", "GA", 33.75, -84.39, 2),
		waypoint("Macon", "GA", 32.84, -83.63, 5),
		waypoint("Macon", "GA", 32.84, -83.63, 9),
	}
	result, err := c.Classify(context.Background(), route, Options{UseRouting: true, Explain: true})
	require.NoError(t, err)
	assert.Equal(t, 1, router.calls)
	assert.InDelta(t, 90.0, result.GroundMiles, 1e-9)
	require.Len(t, result.Trace, 1)
	assert.Contains(t, result.Trace[0], "in 3.0 h")
}

func TestClassify_RoutingService(t *testing.T) {
	router := &stubRouter{miles: 85.2}
	c := NewClassifier(zap.NewNop(), router)
	fixedDistance(c, 100.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Macon", "GA", 32.84, -83.63, 4),
	}
	result, err := c.Classify(context.Background(), route, Options{UseRouting: true})
	require.NoError(t, err)
	assert.InDelta(t, 85.2, result.GroundMiles, 1e-9)
}

func TestClassify_AirLegsNeverUseRouting(t *testing.T) {
	router := &stubRouter{miles: 1}
	c := NewClassifier(zap.NewNop(), router)
	fixedDistance(c, 700.0)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Dallas", "TX", 32.78, -96.80, 5),
	}
	result, err := c.Classify(context.Background(), route, Options{UseRouting: true})
	require.NoError(t, err)
	assert.Zero(t, router.calls)
	assert.InDelta(t, 700.0, result.AirMiles, 1e-9)
}

func TestClassify_NoRouteAborts(t *testing.T) {
	router := &stubRouter{err: models.ErrNoRouteFound}
	c := NewClassifier(zap.NewNop(), router)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Macon", "GA", 32.84, -83.63, 4),
		waypoint("Savannah", "GA", 32.08, -81.09, 9),
	}
	result, err := c.Classify(context.Background(), route, Options{UseRouting: true})
	assert.ErrorIs(t, err, models.ErrNoRouteFound)
	assert.Zero(t, result.GroundMiles)
	assert.Zero(t, result.AirMiles)
	assert.Equal(t, 1, router.calls)
}

func TestClassify_RoutingWithoutRouter(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)
	route := models.Route{
		waypoint("Atlanta", "GA", 33.75, -84.39, 0),
		waypoint("Macon", "GA", 32.84, -83.63, 4),
	}
	_, err := c.Classify(context.Background(), route, Options{UseRouting: true})
	assert.Error(t, err)
}

func TestClassify_ExplainTrace(t *testing.T) {
	c := NewClassifier(zap.NewNop(), nil)

	route := models.Route{
		waypoint("Atlanta", "GA", 33.7490, -84.3880, 0),
		waypoint("Dallas", "TX", 32.7767, -96.7970, 4),
		waypoint("Fort Worth", "TX", 32.7555, -97.3308, 8),
	}
	result, err := c.Classify(context.Background(), route, Options{Explain: true})
	require.NoError(t, err)
	require.Len(t, result.Trace, 2)
	assert.Regexp(t, `^AIR 7\d\d\.\d mi W from Atlanta, GA to Dallas, TX in 4\.0 h \(1\d\d\.\d mph\)$`, result.Trace[0])
	assert.Regexp(t, `^GROUND \d+\.\d mi W from Dallas, TX to Fort Worth, TX in 4\.0 h`, result.Trace[1])
	assert.Greater(t, result.AirMiles, 700.0)
	assert.Greater(t, result.GroundMiles, 0.0)
}
