package repositories

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"parcel-mileage-service/workers/shipments/models"
)

var referenceColumns = map[string][]string{
	"code":      {"zip", "zipcode", "zip_code", "postal_code", "code"},
	"city":      {"city", "primary_city"},
	"state":     {"state", "state_abbr", "state_code"},
	"latitude":  {"latitude", "lat"},
	"longitude": {"longitude", "lon", "lng"},
}

// LoadReferenceFile reads postal code reference rows from a CSV file with a
// header row. Rows without usable coordinates are skipped.
func LoadReferenceFile(path string) ([]models.ZipCode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadReference(f)
}

func ReadReference(r io.Reader) ([]models.ZipCode, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}

	index := make(map[string]int, len(referenceColumns))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for field, aliases := range referenceColumns {
			if _, found := index[field]; found {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					index[field] = i
				}
			}
		}
	}
	for field := range referenceColumns {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("reference table has no %s column", field)
		}
	}

	var zipCodes []models.ZipCode
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference row: %w", err)
		}

		get := func(field string) string {
			i := index[field]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		lat, errLat := strconv.ParseFloat(get("latitude"), 64)
		lon, errLon := strconv.ParseFloat(get("longitude"), 64)
		if errLat != nil || errLon != nil || get("code") == "" {
			continue
		}

		zipCodes = append(zipCodes, models.ZipCode{
			Code:      get("code"),
			City:      get("city"),
			State:     strings.ToUpper(get("state")),
			Latitude:  lat,
			Longitude: lon,
		})
	}

	return zipCodes, nil
}
