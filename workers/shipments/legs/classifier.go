// Package legs splits a shipment route into legs and decides which were
// flown and which were driven.
package legs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/geo"
	"parcel-mileage-service/workers/shipments/models"
)

const (
	// DetourIndex is the ratio of road distance to straight-line distance.
	DetourIndex = 1.417

	AirSpeedThreshold    = 55.0
	AirDistanceThreshold = 60.0
)

type Mode string

const (
	Air    Mode = "AIR"
	Ground Mode = "GROUND"
)

// Regions outside the contiguous road network. Any leg touching one is flown.
var overseasRegions = map[string]struct{}{
	"HI": {},
	"PR": {},
	"VI": {},
	"GU": {},
}

type Router interface {
	DrivingMiles(ctx context.Context, origin, destination models.Coordinate) (float64, error)
}

type Options struct {
	UseRouting bool
	Explain    bool
}

// Leg is the travel between two consecutive waypoints.
type Leg struct {
	From    models.Waypoint
	To      models.Waypoint
	Hours   float64
	Miles   float64
	Bearing float64
}

func (l Leg) Speed() float64 {
	return l.Miles / l.Hours
}

func (l Leg) Mode() Mode {
	if isOverseas(l.From.State) || isOverseas(l.To.State) {
		return Air
	}
	if l.Speed() > AirSpeedThreshold && l.Miles > AirDistanceThreshold {
		return Air
	}
	return Ground
}

type Classifier struct {
	logger   *zap.Logger
	router   Router
	distance func(a, b models.Coordinate) float64
	bearing  func(a, b models.Coordinate) float64
}

// NewClassifier builds a classifier. router may be nil when driving
// distances are always estimated.
func NewClassifier(logger *zap.Logger, router Router) *Classifier {
	return &Classifier{
		logger:   logger,
		router:   router,
		distance: geo.Distance,
		bearing:  geo.Bearing,
	}
}

// Classify sums air and ground miles over every leg of route.
func (c *Classifier) Classify(ctx context.Context, route models.Route, opts Options) (models.ShipmentResult, error) {
	var result models.ShipmentResult

	for i := 0; i+1 < len(route); i++ {
		from, to := route[i], route[i+1]
		if from.Coordinate == to.Coordinate {
			continue
		}

		leg := Leg{
			From:  from,
			To:    to,
			Hours: to.At.Sub(from.At).Hours(),
			Miles: c.distance(from.Coordinate, to.Coordinate),
		}
		if leg.Hours <= 0 {
			c.logger.Debug("Skipping leg without positive duration",
				zap.String("from", from.Label()),
				zap.String("to", to.Label()),
				zap.Float64("hours", leg.Hours),
			)
			continue
		}

		mode := leg.Mode()
		miles := leg.Miles
		if mode == Air {
			result.AirMiles += miles
		} else {
			var err error
			miles, err = c.groundMiles(ctx, leg, opts)
			if err != nil {
				return models.ShipmentResult{}, err
			}
			result.GroundMiles += miles
		}

		if opts.Explain {
			leg.Bearing = c.bearing(from.Coordinate, to.Coordinate)
			result.Trace = append(result.Trace, Describe(leg, mode, miles))
		}
	}

	return result, nil
}

func (c *Classifier) groundMiles(ctx context.Context, leg Leg, opts Options) (float64, error) {
	if !opts.UseRouting {
		return leg.Miles * DetourIndex, nil
	}
	if c.router == nil {
		return 0, errors.New("routing service requested but not configured")
	}
	miles, err := c.router.DrivingMiles(ctx, leg.From.Coordinate, leg.To.Coordinate)
	if err != nil {
		return 0, fmt.Errorf("ground leg %s to %s: %w", leg.From.Label(), leg.To.Label(), err)
	}
	return miles, nil
}

// Describe renders a leg for the explain trace.
func Describe(leg Leg, mode Mode, miles float64) string {
	return fmt.Sprintf("%s %.1f mi %s from %s to %s in %.1f h (%.1f mph)",
		mode, miles, geo.Compass(leg.Bearing),
		leg.From.Label(), leg.To.Label(), leg.Hours, leg.Speed())
}

func isOverseas(region string) bool {
	_, ok := overseasRegions[strings.ToUpper(strings.TrimSpace(region))]
	return ok
}
