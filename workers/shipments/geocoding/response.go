package geocoding

import (
	"strings"

	"parcel-mileage-service/workers/shipments/models"
)

type Address struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Hamlet       string `json:"hamlet"`
	County       string `json:"county"`
	CityDistrict string `json:"city_district"`
	State        string `json:"state"`
	StateCode    string `json:"ISO3166-2-lvl4"`
	PostCode     string `json:"postcode"`
	CountryCode  string `json:"country_code"`
}

type SearchResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

func (r SearchResult) Place() (models.Place, error) {
	coord, err := parseCoordinate(r.Lat, r.Lon)
	if err != nil {
		return models.Place{}, err
	}
	return models.Place{
		Coordinate: coord,
		City:       r.Address.locality(),
		State:      r.Address.stateCode(),
	}, nil
}

// locality picks the first populated field that can stand in for a city.
func (a Address) locality() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.Hamlet, a.County, a.CityDistrict} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a Address) stateCode() string {
	if _, code, ok := strings.Cut(a.StateCode, "-"); ok {
		return strings.ToUpper(code)
	}
	return ""
}
