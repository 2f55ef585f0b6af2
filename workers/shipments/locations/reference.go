package locations

import (
	"strings"

	"github.com/dhconnelly/rtreego"

	"parcel-mileage-service/workers/shipments/models"
)

const pointTolerance = 1e-6

type cityKey struct {
	city  string
	state string
}

type referencePoint struct {
	place models.Place
	rect  rtreego.Rect
}

func (p *referencePoint) Bounds() rtreego.Rect {
	return p.rect
}

// ReferenceTable is the local postal code and city lookup consulted before
// any remote geocoding. It never changes after NewReferenceTable returns and
// is safe for concurrent reads.
type ReferenceTable struct {
	byPostalCode map[string]models.Place
	byCity       map[cityKey]models.Place
	tree         *rtreego.Rtree
}

func NewReferenceTable(places []models.Place) *ReferenceTable {
	t := &ReferenceTable{
		byPostalCode: make(map[string]models.Place, len(places)),
		byCity:       make(map[cityKey]models.Place),
	}

	points := make([]rtreego.Spatial, 0, len(places))
	for _, p := range places {
		if code, err := NormalizePostalCode(p.PostalCode); err == nil {
			p.PostalCode = code
			if _, exists := t.byPostalCode[code]; exists {
				continue
			}
			t.byPostalCode[code] = p
		}
		if p.City != "" && p.State != "" {
			key := newCityKey(p.City, p.State)
			if _, exists := t.byCity[key]; !exists {
				t.byCity[key] = p
			}
		}
		points = append(points, &referencePoint{
			place: p,
			rect:  rtreego.Point{p.Lat, p.Lon}.ToRect(pointTolerance),
		})
	}
	t.tree = rtreego.NewTree(2, 25, 50, points...)
	return t
}

func (t *ReferenceTable) Len() int {
	return len(t.byPostalCode)
}

func (t *ReferenceTable) PostalCode(code string) (models.Place, bool) {
	p, ok := t.byPostalCode[code]
	return p, ok
}

func (t *ReferenceTable) City(city, state string) (models.Place, bool) {
	p, ok := t.byCity[newCityKey(city, state)]
	return p, ok
}

// Nearest returns the reference place closest to c.
func (t *ReferenceTable) Nearest(c models.Coordinate) (models.Place, bool) {
	if t.tree.Size() == 0 {
		return models.Place{}, false
	}
	nearest, ok := t.tree.NearestNeighbor(rtreego.Point{c.Lat, c.Lon}).(*referencePoint)
	if !ok || nearest == nil {
		return models.Place{}, false
	}
	return nearest.place, true
}

func newCityKey(city, state string) cityKey {
	return cityKey{
		city:  strings.ToUpper(strings.Join(strings.Fields(city), " ")),
		state: strings.ToUpper(strings.TrimSpace(state)),
	}
}
