package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"parcel-mileage-service/config"
	"parcel-mileage-service/core"
	"parcel-mileage-service/workers/shipments"
	"parcel-mileage-service/workers/shipments/geocoding"
	"parcel-mileage-service/workers/shipments/legs"
	"parcel-mileage-service/workers/shipments/locations"
	"parcel-mileage-service/workers/shipments/models"
	"parcel-mileage-service/workers/shipments/processors/usps"
	"parcel-mileage-service/workers/shipments/repositories"
	"parcel-mileage-service/workers/shipments/routes"
	"parcel-mileage-service/workers/shipments/routing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := core.NewLogger(*cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, err := newWorker(logger, cfg)
	if err != nil {
		logger.Fatal("Failed to set up batch worker", zap.Error(err))
	}

	if cfg.Batch.Schedule == "" {
		if _, err := worker.Run(ctx); err != nil {
			logger.Error("Batch run failed", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		return
	}

	orchestrator := core.NewOrchestrator(logger, []core.Worker{worker})

	c, err := orchestrator.Start(ctx)
	if err != nil {
		logger.Fatal("Failed to start orchestrator", zap.Error(err))
	}

	// Wait for termination signal to exit gracefully
	<-ctx.Done()
	logger.Info("Shutting down, waiting for running batch")
	<-c.Stop().Done()
}

func newWorker(logger *zap.Logger, cfg *config.Config) (*shipments.Worker, error) {
	places, err := loadReferencePlaces(logger, cfg)
	if err != nil {
		return nil, err
	}
	reference := locations.NewReferenceTable(places)
	logger.Info("Reference table loaded", zap.Int("places", reference.Len()))

	var extraAliases [][]byte
	if cfg.Locations.FacilityAliasesPath != "" {
		data, err := os.ReadFile(cfg.Locations.FacilityAliasesPath)
		if err != nil {
			return nil, err
		}
		extraAliases = append(extraAliases, data)
	}
	aliases, err := locations.LoadFacilityAliases(extraAliases...)
	if err != nil {
		return nil, err
	}

	geocoder := geocoding.NewClient(logger, geocoding.Config{
		BaseURI:     cfg.Geocoder.BaseUri,
		UserAgent:   cfg.Geocoder.UserAgent,
		Timeout:     cfg.Geocoder.Timeout,
		MaxAttempts: cfg.Geocoder.MaxAttempts,
		MinInterval: cfg.Geocoder.MinInterval,
	})
	resolver := locations.NewResolver(logger, reference, aliases, geocoder, cfg.Locations.NeighborAttempts)

	var router legs.Router
	if cfg.Routing.Enabled {
		router = routing.NewClient(logger, routing.Config{
			BaseURI: cfg.Routing.BaseUri,
			Timeout: cfg.Routing.Timeout,
		})
	}

	processor := usps.NewTrackingProcessor(logger, usps.Config{
		BaseURI:   cfg.USPSApi.BaseUri,
		UserID:    cfg.USPSApi.UserId,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.USPSApi.Timeout,
	})

	calculator := shipments.NewCalculator(logger, processor,
		routes.NewBuilder(logger, resolver),
		legs.NewClassifier(logger, router),
		shipments.CalculatorOptions{
			IncludeOutForDelivery: cfg.Batch.IncludeOutForDelivery,
			UseRouting:            cfg.Routing.Enabled,
			Explain:               cfg.Batch.Explain,
		})

	table := repositories.NewShipmentTable(cfg.Batch.InputPath, cfg.Batch.OutputPath, cfg.Batch.OutputColumns)

	return shipments.NewWorker(logger, calculator, table, shipments.BatchOptions{
		Schedule:        cfg.Batch.Schedule,
		IDColumn:        cfg.Batch.IDColumn,
		TrackingColumn:  cfg.Batch.TrackingColumn,
		RegionColumn:    cfg.Batch.RegionColumn,
		PostalColumn:    cfg.Batch.PostalColumn,
		ExcludedRegions: cfg.Batch.ExcludedRegions,
		ExcludeMilitary: cfg.Batch.ExcludeMilitary,
		MinIndex:        cfg.Batch.MinIndex,
		MaxIndex:        cfg.Batch.MaxIndex,
		UseRouting:      cfg.Routing.Enabled,
		MetricsTextfile: cfg.Batch.MetricsTextfile,
	}), nil
}

// loadReferencePlaces prefers the zip_codes table, seeding it from the
// reference file when it is empty, and falls back to the file alone.
func loadReferencePlaces(logger *zap.Logger, cfg *config.Config) ([]models.Place, error) {
	var fromFile []models.ZipCode
	if cfg.Locations.ReferenceTablePath != "" {
		zipCodes, err := repositories.LoadReferenceFile(cfg.Locations.ReferenceTablePath)
		if err != nil {
			return nil, err
		}
		fromFile = zipCodes
	}

	if cfg.DSN == "" {
		if len(fromFile) == 0 {
			logger.Warn("No reference table configured, every lookup goes to the geocoder")
		}
		places := make([]models.Place, 0, len(fromFile))
		for _, z := range fromFile {
			places = append(places, z.Place())
		}
		return places, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	repo := repositories.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}

	count, err := repo.CountZipCodes()
	if err != nil {
		return nil, err
	}
	if count == 0 && len(fromFile) > 0 {
		logger.Info("Seeding zip_codes from reference file",
			zap.String("path", cfg.Locations.ReferenceTablePath),
			zap.Int("rows", len(fromFile)),
		)
		if err := repo.SaveZipCodes(fromFile); err != nil {
			return nil, err
		}
	}

	return repo.GetPlaces()
}
