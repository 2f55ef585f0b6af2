// Package routes turns carrier tracking events into an ordered list of
// resolved waypoints.
package routes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/locations"
	"parcel-mileage-service/workers/shipments/models"
)

const (
	timestampLayout = "January 2, 2006 3:04 PM"
	dateLayout      = "January 2, 2006"
)

type Resolver interface {
	ResolvePostalCode(ctx context.Context, raw string) (models.Place, error)
	CanonicalCity(f locations.Facility) (city, state string)
	ResolveCity(ctx context.Context, city, state string) (models.Place, error)
}

type Options struct {
	IncludeOutForDelivery bool
}

type Builder struct {
	logger   *zap.Logger
	resolver Resolver
}

func NewBuilder(logger *zap.Logger, resolver Resolver) *Builder {
	return &Builder{logger: logger, resolver: resolver}
}

// foldState is carried from one event to the next while building a route.
type foldState struct {
	lastTime string
	previous *models.Waypoint
}

// Validate reports why a tracking record cannot be measured, if it can't.
func Validate(record *models.TrackingRecord) error {
	switch {
	case record == nil:
		return models.ErrDetailsUnavailable
	case record.Error != "":
		return fmt.Errorf("%w: %s", models.ErrInvalidTracking, record.Error)
	case record.Summary == nil:
		return models.ErrNotYetDelivered
	case !record.Summary.IsDelivered():
		return fmt.Errorf("%w: %s", models.ErrNotYetDelivered, record.Summary.Event)
	case len(record.Details) == 0:
		return models.ErrDetailsUnavailable
	}
	return nil
}

// Build resolves every usable event of a delivered shipment into a
// waypoint. Events that cannot be resolved are dropped; an international
// facility aborts the whole route.
func (b *Builder) Build(ctx context.Context, record *models.TrackingRecord, opts Options) (models.Route, error) {
	if err := Validate(record); err != nil {
		return nil, err
	}

	log := b.logger.With(zap.String("tracking_number", record.TrackingNumber))
	var route models.Route
	state := foldState{}

	for _, e := range record.Chronological() {
		wp, ok, err := b.resolveEvent(ctx, log, e, opts, state)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		route = append(route, wp)
		state.previous = &wp
		if e.Time != "" {
			state.lastTime = e.Time
		}
	}

	final, ok, err := b.resolveSummary(ctx, log, *record.Summary, state)
	if err != nil {
		return nil, err
	}
	if ok {
		route = append(route, final)
	}
	return route, nil
}

func (b *Builder) resolveEvent(ctx context.Context, log *zap.Logger, e models.TrackingEvent, opts Options, state foldState) (models.Waypoint, bool, error) {
	if e.HasPostalCode() {
		if e.IsOutForDelivery() && !opts.IncludeOutForDelivery {
			return models.Waypoint{}, false, nil
		}
		at, ok := eventTime(log, e, state)
		if !ok {
			return models.Waypoint{}, false, nil
		}
		place, err := b.resolver.ResolvePostalCode(ctx, e.ZIPCode)
		if err != nil {
			if ctx.Err() != nil {
				return models.Waypoint{}, false, ctx.Err()
			}
			log.Debug("Dropping unresolved event", zap.String("postal_code", e.ZIPCode), zap.Error(err))
			return models.Waypoint{}, false, nil
		}
		return newWaypoint(place, at), true, nil
	}

	facility, ok := locations.ParseFacility(e.City, e.State)
	if !ok {
		return models.Waypoint{}, false, nil
	}
	if facility.International {
		return models.Waypoint{}, false, fmt.Errorf("%w: %s", models.ErrInternationalUnsupported, e.City)
	}

	at, ok := eventTime(log, e, state)
	if !ok {
		return models.Waypoint{}, false, nil
	}

	city, region := b.resolver.CanonicalCity(facility)
	place, err := b.resolver.ResolveCity(ctx, city, region)
	if err == nil {
		return newWaypoint(place, at), true, nil
	}
	if ctx.Err() != nil {
		return models.Waypoint{}, false, ctx.Err()
	}

	// Chained events at the same hub reuse the hub's coordinate.
	if prev := state.previous; prev != nil && strings.EqualFold(prev.City, city) &&
		(region == "" || strings.EqualFold(prev.State, region)) {
		wp := *prev
		wp.At = at
		return wp, true, nil
	}

	log.Debug("Dropping unresolved facility",
		zap.String("facility", e.City),
		zap.String("city", city),
		zap.String("state", region),
		zap.Error(err),
	)
	return models.Waypoint{}, false, nil
}

func (b *Builder) resolveSummary(ctx context.Context, log *zap.Logger, summary models.TrackingEvent, state foldState) (models.Waypoint, bool, error) {
	if !summary.HasPostalCode() {
		log.Debug("Delivery summary has no postal code")
		return models.Waypoint{}, false, nil
	}
	at, ok := eventTime(log, summary, state)
	if !ok {
		return models.Waypoint{}, false, nil
	}
	place, err := b.resolver.ResolvePostalCode(ctx, summary.ZIPCode)
	if err != nil {
		if ctx.Err() != nil {
			return models.Waypoint{}, false, ctx.Err()
		}
		log.Debug("Dropping unresolved delivery", zap.String("postal_code", summary.ZIPCode), zap.Error(err))
		return models.Waypoint{}, false, nil
	}
	return newWaypoint(place, at), true, nil
}

// eventTime combines the event date with its time, falling back to the
// time of the last retained event and then to midnight.
func eventTime(log *zap.Logger, e models.TrackingEvent, state foldState) (time.Time, bool) {
	clock := e.Time
	if clock == "" {
		clock = state.lastTime
	}
	at, err := ParseTimestamp(e.Date, clock)
	if err != nil {
		log.Debug("Dropping event with unreadable timestamp",
			zap.String("date", e.Date),
			zap.String("time", clock),
			zap.Error(err),
		)
		return time.Time{}, false
	}
	return at, true
}

// ParseTimestamp reads carrier dates such as "March 4, 2021" and times such
// as "2:15 pm". An empty clock yields midnight of that date.
func ParseTimestamp(date, clock string) (time.Time, error) {
	date = strings.ToUpper(strings.TrimSpace(date))
	clock = strings.ToUpper(strings.TrimSpace(clock))
	if clock == "" {
		return time.Parse(dateLayout, date)
	}
	return time.Parse(timestampLayout, date+" "+clock)
}

func newWaypoint(place models.Place, at time.Time) models.Waypoint {
	return models.Waypoint{
		Coordinate: place.Coordinate,
		At:         at,
		City:       place.City,
		State:      place.State,
	}
}
