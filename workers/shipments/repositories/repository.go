package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parcel-mileage-service/workers/shipments/models"
)

const seedBatchSize = 500

// Repository reads the postal code reference table from postgres.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&models.ZipCode{})
}

func (r *Repository) CountZipCodes() (int64, error) {
	var count int64
	err := r.db.Model(&models.ZipCode{}).Count(&count).Error
	return count, err
}

func (r *Repository) GetZipCodes() ([]models.ZipCode, error) {
	var zipCodes []models.ZipCode
	err := r.db.Order("code").Find(&zipCodes).Error
	return zipCodes, err
}

func (r *Repository) GetPlaces() ([]models.Place, error) {
	zipCodes, err := r.GetZipCodes()
	if err != nil {
		return nil, err
	}

	places := make([]models.Place, 0, len(zipCodes))
	for _, z := range zipCodes {
		places = append(places, z.Place())
	}
	return places, nil
}

// SaveZipCodes upserts reference rows keyed on the postal code.
func (r *Repository) SaveZipCodes(zipCodes []models.ZipCode) error {
	if len(zipCodes) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(zipCodes, seedBatchSize).Error
}
