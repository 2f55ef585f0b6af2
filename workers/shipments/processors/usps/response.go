package usps

import (
	"encoding/xml"
	"strings"

	"parcel-mileage-service/workers/shipments/models"
)

type Error struct {
	Number      string `xml:"Number"`
	Description string `xml:"Description"`
}

type Event struct {
	EventTime    string `xml:"EventTime"`
	EventDate    string `xml:"EventDate"`
	Event        string `xml:"Event"`
	EventCity    string `xml:"EventCity"`
	EventState   string `xml:"EventState"`
	EventZIPCode string `xml:"EventZIPCode"`
	EventCountry string `xml:"EventCountry"`
}

type TrackInfo struct {
	ID      string  `xml:"ID,attr"`
	Error   *Error  `xml:"Error"`
	Summary *Event  `xml:"TrackSummary"`
	Details []Event `xml:"TrackDetail"`
}

type TrackResponse struct {
	XMLName   xml.Name    `xml:"TrackResponse"`
	TrackInfo []TrackInfo `xml:"TrackInfo"`
}

func (e Event) toModel() models.TrackingEvent {
	return models.TrackingEvent{
		Event:   strings.TrimSpace(e.Event),
		City:    strings.TrimSpace(e.EventCity),
		State:   strings.TrimSpace(e.EventState),
		ZIPCode: strings.TrimSpace(e.EventZIPCode),
		Country: strings.TrimSpace(e.EventCountry),
		Date:    strings.TrimSpace(e.EventDate),
		Time:    strings.TrimSpace(e.EventTime),
	}
}

func (t TrackInfo) toModel(trackingNumber string) *models.TrackingRecord {
	record := &models.TrackingRecord{
		TrackingNumber: trackingNumber,
		NewestFirst:    true,
	}
	if t.Error != nil {
		record.Error = strings.TrimSpace(t.Error.Description)
		if record.Error == "" {
			record.Error = "error " + t.Error.Number
		}
		return record
	}
	if t.Summary != nil {
		summary := t.Summary.toModel()
		record.Summary = &summary
	}
	for _, d := range t.Details {
		record.Details = append(record.Details, d.toModel())
	}
	return record
}
