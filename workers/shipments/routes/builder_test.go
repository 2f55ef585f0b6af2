package routes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/locations"
	"parcel-mileage-service/workers/shipments/models"
)

type stubGeocoder struct {
	cityCalls []string
}

func (g *stubGeocoder) GeocodePostalCode(context.Context, string) (models.Place, error) {
	return models.Place{}, errors.New("not found")
}

func (g *stubGeocoder) GeocodeCity(_ context.Context, city, state string) (models.Place, error) {
	g.cityCalls = append(g.cityCalls, city+", "+state)
	return models.Place{}, errors.New("not found")
}

var (
	atlanta = models.Place{PostalCode: "30303", City: "Atlanta", State: "GA", Coordinate: models.Coordinate{Lat: 33.7525, Lon: -84.3888}}
	dallas  = models.Place{PostalCode: "75201", City: "Dallas", State: "TX", Coordinate: models.Coordinate{Lat: 32.7876, Lon: -96.7994}}
	durham  = models.Place{PostalCode: "27703", City: "Durham", State: "NC", Coordinate: models.Coordinate{Lat: 35.9780, Lon: -78.8450}}
)

func newTestBuilder(t *testing.T) (*Builder, *stubGeocoder) {
	t.Helper()
	aliases, err := locations.LoadFacilityAliases()
	require.NoError(t, err)
	geocoder := &stubGeocoder{}
	reference := locations.NewReferenceTable([]models.Place{atlanta, dallas, durham})
	resolver := locations.NewResolver(zap.NewNop(), reference, aliases, geocoder, 2)
	return NewBuilder(zap.NewNop(), resolver), geocoder
}

func deliveredRecord(details ...models.TrackingEvent) *models.TrackingRecord {
	return &models.TrackingRecord{
		TrackingNumber: "9400100000000000000000",
		Summary: &models.TrackingEvent{
			Event:   "Delivered, In/At Mailbox",
			ZIPCode: "75201",
			Date:    "March 4, 2021",
			Time:    "2:15 pm",
		},
		Details:     details,
		NewestFirst: true,
	}
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := ParseTimestamp(date, clock)
	require.NoError(t, err)
	return ts
}

func TestBuild_ChronologicalRoute(t *testing.T) {
	b, _ := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Out for Delivery", ZIPCode: "75201", Date: "March 4, 2021", Time: "8:02 am"},
		models.TrackingEvent{Event: "Arrived at USPS Regional Facility", City: "ATLANTA-PEACHTREE GA DISTRIBUTION CENTER", Date: "March 2, 2021", Time: "11:40 pm"},
		models.TrackingEvent{Event: "USPS in possession of item", ZIPCode: "27703", Date: "March 1, 2021", Time: "4:10 pm"},
	)

	route, err := b.Build(context.Background(), record, Options{})
	require.NoError(t, err)
	require.Len(t, route, 3)

	assert.Equal(t, "Durham", route[0].City)
	assert.Equal(t, at(t, "March 1, 2021", "4:10 PM"), route[0].At)
	assert.Equal(t, "Atlanta", route[1].City)
	assert.Equal(t, atlanta.Coordinate, route[1].Coordinate)
	assert.Equal(t, "Dallas", route[2].City)
	assert.Equal(t, at(t, "March 4, 2021", "2:15 PM"), route[2].At)
}

func TestBuild_IncludeOutForDelivery(t *testing.T) {
	b, _ := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Out for Delivery", ZIPCode: "75201", Date: "March 4, 2021", Time: "8:02 am"},
		models.TrackingEvent{Event: "Accepted at USPS Origin Facility", ZIPCode: "27703", Date: "March 1, 2021", Time: "4:10 pm"},
	)

	route, err := b.Build(context.Background(), record, Options{IncludeOutForDelivery: true})
	require.NoError(t, err)
	require.Len(t, route, 3)
	assert.Equal(t, "Dallas", route[1].City)
	assert.Equal(t, "Dallas", route[2].City, "delivery waypoint is appended even when it repeats")
}

func TestBuild_InternationalAborts(t *testing.T) {
	b, _ := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Arrived", City: "CHICAGO IL INTERNATIONAL DISTRIBUTION CENTER", Date: "March 2, 2021", Time: "1:00 am"},
		models.TrackingEvent{Event: "Accepted", ZIPCode: "27703", Date: "March 1, 2021", Time: "4:10 pm"},
	)

	route, err := b.Build(context.Background(), record, Options{})
	assert.ErrorIs(t, err, models.ErrInternationalUnsupported)
	assert.Nil(t, route)
}

func TestBuild_MissingTimeReusesPrevious(t *testing.T) {
	b, _ := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Departed", City: "ATLANTA-PEACHTREE GA DISTRIBUTION CENTER", Date: "March 3, 2021"},
		models.TrackingEvent{Event: "Accepted", ZIPCode: "27703", Date: "March 1, 2021", Time: "4:10 pm"},
	)

	route, err := b.Build(context.Background(), record, Options{})
	require.NoError(t, err)
	require.Len(t, route, 3)
	assert.Equal(t, at(t, "March 3, 2021", "4:10 PM"), route[1].At)
}

func TestBuild_MissingTimeWithoutPrevious(t *testing.T) {
	b, _ := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Accepted", ZIPCode: "27703", Date: "March 1, 2021"},
	)

	route, err := b.Build(context.Background(), record, Options{})
	require.NoError(t, err)
	require.Len(t, route, 2)
	assert.Equal(t, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC), route[0].At)
}

func TestBuild_DuplicateCityReusesCoordinate(t *testing.T) {
	b, geocoder := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Departed", City: "ATLANTA GA NETWORK DISTRIBUTION CENTER", Date: "March 3, 2021", Time: "2:00 am"},
		models.TrackingEvent{Event: "Arrived", City: "ATLANTA-PEACHTREE GA DISTRIBUTION CENTER", Date: "March 2, 2021", Time: "11:40 pm"},
	)

	// ATLANTA resolves from the reference table; make the second lookup miss.
	reference := locations.NewReferenceTable([]models.Place{dallas, {PostalCode: "30303", City: "Atlanta", State: "GA", Coordinate: atlanta.Coordinate}})
	aliases, err := locations.LoadFacilityAliases([]byte("sectional:\n  GA:\n    ATLANTA-PEACHTREE: Atlanta\n"))
	require.NoError(t, err)
	b.resolver = &missingCityResolver{
		Resolver: locations.NewResolver(zap.NewNop(), reference, aliases, geocoder, 2),
		missOnce: "ATLANTA",
	}

	route, err := b.Build(context.Background(), record, Options{})
	require.NoError(t, err)
	require.Len(t, route, 3)
	assert.Equal(t, route[0].Coordinate, route[1].Coordinate)
	assert.Equal(t, at(t, "March 3, 2021", "2:00 AM"), route[1].At)
}

// missingCityResolver fails the first lookup of missOnce after the first
// successful lookup of any city, simulating a remote outage mid-route.
type missingCityResolver struct {
	*locations.Resolver
	missOnce string
	resolved int
}

func (r *missingCityResolver) ResolveCity(ctx context.Context, city, state string) (models.Place, error) {
	r.resolved++
	if r.resolved > 1 && city == r.missOnce {
		return models.Place{}, models.ErrLocationUnresolved
	}
	return r.Resolver.ResolveCity(ctx, city, state)
}

func TestBuild_UnresolvedFacilityDropped(t *testing.T) {
	b, geocoder := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "Arrived", City: "NOWHERE ZZ DISTRIBUTION CENTER", Date: "March 2, 2021", Time: "11:40 pm"},
		models.TrackingEvent{Event: "Accepted", ZIPCode: "27703", Date: "March 1, 2021", Time: "4:10 pm"},
	)

	route, err := b.Build(context.Background(), record, Options{})
	require.NoError(t, err)
	require.Len(t, route, 2)
	assert.Equal(t, []string{"NOWHERE, ZZ"}, geocoder.cityCalls)
}

func TestBuild_IgnoresEventsWithoutLocation(t *testing.T) {
	b, _ := newTestBuilder(t)
	record := deliveredRecord(
		models.TrackingEvent{Event: "In Transit to Next Facility", Date: "March 3, 2021", Time: "1:00 am"},
		models.TrackingEvent{Event: "Departed Post Office", City: "DURHAM", State: "NC", Date: "March 1, 2021", Time: "6:10 pm"},
		models.TrackingEvent{Event: "Accepted", ZIPCode: "27703", Date: "March 1, 2021", Time: "4:10 pm"},
	)

	route, err := b.Build(context.Background(), record, Options{})
	require.NoError(t, err)
	assert.Len(t, route, 2)
}

func TestValidate(t *testing.T) {
	delivered := &models.TrackingEvent{Event: "Delivered", ZIPCode: "75201"}
	tests := []struct {
		name     string
		record   *models.TrackingRecord
		expected error
	}{
		{"nil record", nil, models.ErrDetailsUnavailable},
		{"carrier error", &models.TrackingRecord{Error: "could not locate"}, models.ErrInvalidTracking},
		{"no summary", &models.TrackingRecord{}, models.ErrNotYetDelivered},
		{"in transit", &models.TrackingRecord{Summary: &models.TrackingEvent{Event: "In Transit"}}, models.ErrNotYetDelivered},
		{"no details", &models.TrackingRecord{Summary: delivered}, models.ErrDetailsUnavailable},
		{"ok", &models.TrackingRecord{Summary: delivered, Details: []models.TrackingEvent{{}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.record)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("March 4, 2021", "2:15 pm")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.March, 4, 14, 15, 0, 0, time.UTC), ts)

	ts, err = ParseTimestamp("December 31, 2020", "12:05 AM")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.December, 31, 0, 5, 0, 0, time.UTC), ts)

	_, err = ParseTimestamp("2021-03-04", "14:15")
	assert.Error(t, err)
}
