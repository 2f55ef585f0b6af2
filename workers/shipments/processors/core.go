package processors

import (
	"context"

	"parcel-mileage-service/workers/shipments/models"
)

// TrackingProcessor fetches the tracking history of a single shipment from
// a carrier.
type TrackingProcessor interface {
	Track(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error)
}
