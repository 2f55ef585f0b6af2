package locations

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/models"
)

const DefaultNeighborAttempts = 20

// Geocoder is the remote lookup used when the reference table has no
// answer. Implementations retry on their own.
type Geocoder interface {
	GeocodePostalCode(ctx context.Context, code string) (models.Place, error)
	GeocodeCity(ctx context.Context, city, state string) (models.Place, error)
}

type Resolver struct {
	logger           *zap.Logger
	reference        *ReferenceTable
	aliases          *FacilityAliasTable
	geocoder         Geocoder
	neighborAttempts int
}

// NewResolver wires the lookup tables and geocoder. geocoder may be nil, in
// which case only the reference table is consulted.
func NewResolver(logger *zap.Logger, reference *ReferenceTable, aliases *FacilityAliasTable, geocoder Geocoder, neighborAttempts int) *Resolver {
	if reference == nil {
		reference = NewReferenceTable(nil)
	}
	if neighborAttempts <= 0 {
		neighborAttempts = DefaultNeighborAttempts
	}
	return &Resolver{
		logger:           logger,
		reference:        reference,
		aliases:          aliases,
		geocoder:         geocoder,
		neighborAttempts: neighborAttempts,
	}
}

// ResolvePostalCode resolves a postal code, walking outwards to nearby codes
// when the original cannot be found.
func (r *Resolver) ResolvePostalCode(ctx context.Context, raw string) (models.Place, error) {
	code, err := NormalizePostalCode(raw)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: %v", models.ErrLocationUnresolved, err)
	}

	candidate := code
	jump := -1
	for attempt := 1; attempt <= r.neighborAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Place{}, err
		}

		if place, ok := r.lookupPostalCode(ctx, candidate); ok {
			if candidate != code {
				r.logger.Debug("Resolved postal code through neighbor",
					zap.String("postal_code", code),
					zap.String("neighbor", candidate),
					zap.Int("attempt", attempt),
				)
			}
			return place, nil
		}

		candidate = OffsetPostalCode(candidate, jump)
		jump = nextJump(jump)
	}

	return models.Place{}, fmt.Errorf("%w: postal code %s and %d neighbors", models.ErrLocationUnresolved, code, r.neighborAttempts-1)
}

func (r *Resolver) lookupPostalCode(ctx context.Context, code string) (models.Place, bool) {
	if place, ok := r.reference.PostalCode(code); ok {
		return place, true
	}
	if r.geocoder == nil {
		return models.Place{}, false
	}

	place, err := r.geocoder.GeocodePostalCode(ctx, code)
	if err != nil {
		r.logger.Debug("Postal code not geocoded", zap.String("postal_code", code), zap.Error(err))
		return models.Place{}, false
	}
	if place.PostalCode == "" {
		place.PostalCode = code
	}
	return r.withLabel(place), true
}

// CanonicalCity applies the facility alias tables to a parsed facility and
// returns the city and state to look up.
func (r *Resolver) CanonicalCity(f Facility) (city, state string) {
	city, state = f.City, f.State
	if r.aliases == nil {
		return city, state
	}
	if c, s, ok := r.aliases.Area(f.Area); ok {
		return c, s
	}
	if c, ok := r.aliases.Sectional(state, city); ok {
		return c, state
	}
	return city, state
}

// ResolveCity resolves an already canonical city and state.
func (r *Resolver) ResolveCity(ctx context.Context, city, state string) (models.Place, error) {
	if strings.TrimSpace(city) == "" {
		return models.Place{}, fmt.Errorf("%w: empty city", models.ErrLocationUnresolved)
	}
	if place, ok := r.reference.City(city, state); ok {
		return place, nil
	}
	if r.geocoder == nil {
		return models.Place{}, fmt.Errorf("%w: %s, %s", models.ErrLocationUnresolved, city, state)
	}

	place, err := r.geocoder.GeocodeCity(ctx, city, state)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: %s, %s: %v", models.ErrLocationUnresolved, city, state, err)
	}
	if place.City == "" {
		place.City = city
	}
	if place.State == "" {
		place.State = state
	}
	return place, nil
}

// withLabel fills in a missing city or state from the closest reference
// place so every waypoint can be described.
func (r *Resolver) withLabel(place models.Place) models.Place {
	if place.City != "" && place.State != "" {
		return place
	}
	nearest, ok := r.reference.Nearest(place.Coordinate)
	if !ok {
		return place
	}
	if place.City == "" {
		place.City = nearest.City
	}
	if place.State == "" {
		place.State = nearest.State
	}
	return place
}
