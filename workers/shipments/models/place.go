package models

import (
	"fmt"
	"time"
)

type Coordinate struct {
	Lat float64
	Lon float64
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

// Place is a resolved location with its canonical city and state.
type Place struct {
	Coordinate
	PostalCode string
	City       string
	State      string
}

func (p Place) Label() string {
	return label(p.City, p.State, p.Coordinate)
}

// Waypoint is a resolved, timestamped point on a shipment route.
type Waypoint struct {
	Coordinate
	At    time.Time
	City  string
	State string
}

func (w Waypoint) Label() string {
	return label(w.City, w.State, w.Coordinate)
}

// Route is the chronological list of waypoints of a single shipment.
type Route []Waypoint

func label(city, state string, c Coordinate) string {
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	case state != "":
		return state
	default:
		return c.String()
	}
}
