package config

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type UspsApiConfig struct {
	BaseUri string        `env:"USPS_API_BASE_URI, default=https://secure.shippingapis.com/ShippingAPI.dll" validate:"required,url"`
	UserId  string        `env:"USPS_API_USER_ID" validate:"required"`
	Timeout time.Duration `env:"USPS_API_TIMEOUT, default=30s" validate:"gt=0"`
}

type GeocoderConfig struct {
	BaseUri     string        `env:"GEOCODER_BASE_URI, default=https://nominatim.openstreetmap.org" validate:"required,url"`
	UserAgent   string        `env:"GEOCODER_USER_AGENT, default=parcel-mileage-service" validate:"required"`
	Timeout     time.Duration `env:"GEOCODER_TIMEOUT, default=15s" validate:"gt=0"`
	MaxAttempts int           `env:"GEOCODER_MAX_ATTEMPTS, default=3" validate:"gte=1"`
	MinInterval time.Duration `env:"GEOCODER_MIN_INTERVAL, default=1s" validate:"gte=0"`
}

type RoutingConfig struct {
	Enabled bool          `env:"USE_ROUTING_SERVICE, default=false"`
	BaseUri string        `env:"ROUTING_BASE_URI, default=https://router.project-osrm.org" validate:"omitempty,url"`
	Timeout time.Duration `env:"ROUTING_TIMEOUT, default=15s" validate:"gt=0"`
}

type LocationsConfig struct {
	NeighborAttempts    int    `env:"POSTAL_NEIGHBOR_ATTEMPTS, default=20" validate:"gte=1"`
	ReferenceTablePath  string `env:"REFERENCE_TABLE_PATH" validate:"omitempty,file"`
	FacilityAliasesPath string `env:"FACILITY_ALIASES_PATH" validate:"omitempty,file"`
}

type BatchConfig struct {
	InputPath             string   `env:"BATCH_INPUT_PATH" validate:"required"`
	OutputPath            string   `env:"BATCH_OUTPUT_PATH" validate:"required"`
	IDColumn              string   `env:"BATCH_ID_COLUMN, default=carton_id" validate:"required"`
	TrackingColumn        string   `env:"BATCH_TRACKING_COLUMN, default=tracking" validate:"required"`
	RegionColumn          string   `env:"BATCH_REGION_COLUMN, default=state_abbr"`
	PostalColumn          string   `env:"BATCH_POSTAL_COLUMN, default=zipcode"`
	OutputColumns         []string `env:"BATCH_OUTPUT_COLUMNS, default=carton_id,tracking,state_abbr,zipcode,ground_miles,air_miles,miles_calc,status" validate:"min=1,dive,required"`
	ExcludedRegions       []string `env:"BATCH_EXCLUDED_REGIONS"`
	ExcludeMilitary       bool     `env:"BATCH_EXCLUDE_MILITARY, default=true"`
	MinIndex              int      `env:"BATCH_MIN_INDEX, default=0" validate:"gte=0"`
	MaxIndex              int      `env:"BATCH_MAX_INDEX, default=0" validate:"gte=0"`
	Schedule              string   `env:"BATCH_SCHEDULE"`
	MetricsTextfile       string   `env:"METRICS_TEXTFILE"`
	Explain               bool     `env:"EXPLAIN_LEGS, default=false"`
	IncludeOutForDelivery bool     `env:"INCLUDE_OUT_FOR_DELIVERY, default=false"`
}

type Config struct {
	DSN           string `env:"DATABASE_DSN"`
	LogsDirectory string `env:"LOGS_DIRECTORY"`
	LogLevel      string `env:"LOG_LEVEL, default=info" validate:"oneof=debug info warn error"`

	USPSApi   UspsApiConfig
	Geocoder  GeocoderConfig
	Routing   RoutingConfig
	Locations LocationsConfig
	Batch     BatchConfig
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return Process(context.Background(), envconfig.OsLookuper())
}

// Process decodes and validates the configuration from lookuper.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	// Resuming a batch reads processed ids back from the output table.
	if !slices.Contains(cfg.Batch.OutputColumns, cfg.Batch.IDColumn) {
		return nil, fmt.Errorf("BATCH_OUTPUT_COLUMNS must include the id column %q", cfg.Batch.IDColumn)
	}
	return &cfg, nil
}
