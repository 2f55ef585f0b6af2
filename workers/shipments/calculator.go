package shipments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/legs"
	"parcel-mileage-service/workers/shipments/models"
	"parcel-mileage-service/workers/shipments/processors"
	"parcel-mileage-service/workers/shipments/routes"
)

type RouteBuilder interface {
	Build(ctx context.Context, record *models.TrackingRecord, opts routes.Options) (models.Route, error)
}

type LegClassifier interface {
	Classify(ctx context.Context, route models.Route, opts legs.Options) (models.ShipmentResult, error)
}

type CalculatorOptions struct {
	IncludeOutForDelivery bool
	UseRouting            bool
	Explain               bool
}

// Calculator estimates ground and air mileage for one tracking number at a
// time.
type Calculator struct {
	logger     *zap.Logger
	processor  processors.TrackingProcessor
	builder    RouteBuilder
	classifier LegClassifier
	opts       CalculatorOptions
}

func NewCalculator(logger *zap.Logger, processor processors.TrackingProcessor, builder RouteBuilder, classifier LegClassifier, opts CalculatorOptions) *Calculator {
	return &Calculator{
		logger:     logger,
		processor:  processor,
		builder:    builder,
		classifier: classifier,
		opts:       opts,
	}
}

// Calculate returns a zero-mileage result with a reason for every expected
// failure of a shipment. Only transport and programming errors are returned.
func (c *Calculator) Calculate(ctx context.Context, trackingNumber string) (models.ShipmentResult, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)

	record, err := c.processor.Track(ctx, trackingNumber)
	if err != nil {
		return models.ShipmentResult{}, fmt.Errorf("track %s: %w", trackingNumber, err)
	}

	route, err := c.builder.Build(ctx, record, routes.Options{IncludeOutForDelivery: c.opts.IncludeOutForDelivery})
	if err != nil {
		return c.recover(trackingNumber, err)
	}

	result, err := c.classifier.Classify(ctx, route, legs.Options{UseRouting: c.opts.UseRouting, Explain: c.opts.Explain})
	if err != nil {
		return c.recover(trackingNumber, err)
	}
	result.TrackingNumber = trackingNumber

	c.logger.Debug("Shipment measured",
		zap.String("tracking_number", trackingNumber),
		zap.Int("waypoints", len(route)),
		zap.Float64("ground_miles", result.GroundMiles),
		zap.Float64("air_miles", result.AirMiles),
	)

	return result, nil
}

func (c *Calculator) recover(trackingNumber string, err error) (models.ShipmentResult, error) {
	reason, ok := Reason(err)
	if !ok {
		return models.ShipmentResult{}, fmt.Errorf("measure %s: %w", trackingNumber, err)
	}

	c.logger.Info("Shipment not measured",
		zap.String("tracking_number", trackingNumber),
		zap.String("reason", reason),
		zap.Error(err),
	)

	return models.ShipmentResult{TrackingNumber: trackingNumber, Reason: reason}, nil
}

// Reason maps a shipment-level failure to its human-readable reason.
func Reason(err error) (string, bool) {
	switch {
	case errors.Is(err, models.ErrInvalidTracking):
		return "invalid tracking: " + strings.TrimPrefix(err.Error(), models.ErrInvalidTracking.Error()+": "), true
	case errors.Is(err, models.ErrNotYetDelivered):
		return "not yet delivered", true
	case errors.Is(err, models.ErrDetailsUnavailable):
		return "tracking details unavailable", true
	case errors.Is(err, models.ErrInternationalUnsupported):
		return "international unsupported", true
	case errors.Is(err, models.ErrLocationUnresolved):
		return "location unresolved", true
	case errors.Is(err, models.ErrNoRouteFound):
		return "no ground route found", true
	default:
		return "", false
	}
}
