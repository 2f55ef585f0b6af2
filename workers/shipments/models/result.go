package models

// ShipmentResult is the mileage estimate for a single shipment. Reason is
// set when the shipment could not be measured and both totals are zero.
type ShipmentResult struct {
	TrackingNumber string
	GroundMiles    float64
	AirMiles       float64
	Trace          []string
	Reason         string
}

func (r ShipmentResult) Failed() bool {
	return r.Reason != ""
}
