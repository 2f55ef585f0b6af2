package models

// ZipCode represents the zip_codes reference table
type ZipCode struct {
	Code      string  `gorm:"primaryKey;size:5"`
	City      string  `gorm:"size:100;not null;index:idx_zip_codes_city_state"`
	State     string  `gorm:"size:2;not null;index:idx_zip_codes_city_state"`
	Latitude  float64 `gorm:"not null"`
	Longitude float64 `gorm:"not null"`
}

func (z ZipCode) Place() Place {
	return Place{
		Coordinate: Coordinate{Lat: z.Latitude, Lon: z.Longitude},
		PostalCode: z.Code,
		City:       z.City,
		State:      z.State,
	}
}
