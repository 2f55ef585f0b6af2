package models

import "strings"

const (
	EventOutForDelivery = "Out for Delivery"
	EventDelivered      = "Delivered"
)

// TrackingEvent is one line of carrier tracking history.
type TrackingEvent struct {
	Event   string
	City    string
	State   string
	ZIPCode string
	Country string
	Date    string
	Time    string
}

func (e TrackingEvent) HasPostalCode() bool {
	return strings.TrimSpace(e.ZIPCode) != ""
}

func (e TrackingEvent) IsOutForDelivery() bool {
	return strings.EqualFold(strings.TrimSpace(e.Event), EventOutForDelivery)
}

func (e TrackingEvent) IsDelivered() bool {
	return strings.Contains(e.Event, EventDelivered)
}

// TrackingRecord is everything a carrier returned for one tracking number.
// Error is set when the carrier rejected the tracking number.
type TrackingRecord struct {
	TrackingNumber string
	Error          string
	Summary        *TrackingEvent
	Details        []TrackingEvent
	NewestFirst    bool
}

// Chronological returns the detail events oldest first without touching
// the record.
func (r *TrackingRecord) Chronological() []TrackingEvent {
	events := make([]TrackingEvent, len(r.Details))
	copy(events, r.Details)
	if !r.NewestFirst {
		return events
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}
