package shipments

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/locations"
	"parcel-mileage-service/workers/shipments/metrics"
	"parcel-mileage-service/workers/shipments/models"
	"parcel-mileage-service/workers/shipments/repositories"
)

// Computed output columns.
const (
	ColumnGroundMiles = "ground_miles"
	ColumnAirMiles    = "air_miles"
	ColumnMilesCalc   = "miles_calc"
	ColumnStatus      = "status"

	StatusOK = "ok"

	milesCalcRouted    = "mixed"
	milesCalcEstimated = "estimated"
)

var (
	ErrBatchInProgress   = errors.New("batch already in progress")
	ErrIDColumnNotOutput = errors.New("id column missing from output columns")
)

type MileageCalculator interface {
	Calculate(ctx context.Context, trackingNumber string) (models.ShipmentResult, error)
}

type BatchOptions struct {
	Schedule        string
	IDColumn        string
	TrackingColumn  string
	RegionColumn    string
	PostalColumn    string
	ExcludedRegions []string
	ExcludeMilitary bool
	// MinIndex and MaxIndex bound the rows attempted after filtering,
	// [MinIndex, MaxIndex). MaxIndex <= 0 means no upper bound.
	MinIndex        int
	MaxIndex        int
	UseRouting      bool
	MetricsTextfile string
}

type BatchSummary struct {
	RunID      string
	Total      int
	Processed  int
	Excluded   int
	Attempted  int
	Measured   int
	Skipped    int
	Errors     int
	Elapsed    time.Duration
	AverageRow time.Duration
}

type pendingRow struct {
	index int
	row   repositories.ShipmentRow
}

type Worker struct {
	logger     *zap.Logger
	calculator MileageCalculator
	table      *repositories.ShipmentTable
	opts       BatchOptions
	excluded   map[string]struct{}
	busy       atomic.Bool
}

func NewWorker(logger *zap.Logger, calculator MileageCalculator, table *repositories.ShipmentTable, opts BatchOptions) *Worker {
	excluded := make(map[string]struct{}, len(opts.ExcludedRegions))
	for _, region := range opts.ExcludedRegions {
		if region = strings.ToUpper(strings.TrimSpace(region)); region != "" {
			excluded[region] = struct{}{}
		}
	}

	return &Worker{
		logger:     logger,
		calculator: calculator,
		table:      table,
		opts:       opts,
		excluded:   excluded,
	}
}

func (w *Worker) Schedule() string {
	return w.opts.Schedule
}

func (w *Worker) Ready(time.Time) bool {
	return !w.busy.Load()
}

func (w *Worker) Execute() {
	if _, err := w.Run(context.Background()); err != nil {
		w.logger.Error("Batch run failed", zap.Error(err))
	}
}

// Run measures every pending input row once and appends one output row per
// attempted input row.
func (w *Worker) Run(ctx context.Context) (BatchSummary, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return BatchSummary{}, ErrBatchInProgress
	}
	defer w.busy.Store(false)

	if !slices.Contains(w.table.Columns(), w.opts.IDColumn) {
		return BatchSummary{}, fmt.Errorf("%w: %q", ErrIDColumnNotOutput, w.opts.IDColumn)
	}

	summary := BatchSummary{RunID: uuid.NewString()}
	log := w.logger.With(zap.String("run_id", summary.RunID))
	batchMetrics := metrics.NewBatchMetrics(summary.RunID)
	started := time.Now()

	log.Info("Starting batch processing.")

	rows, err := w.table.Rows()
	if err != nil {
		return summary, fmt.Errorf("read shipments: %w", err)
	}
	summary.Total = len(rows)

	processed, err := w.table.ProcessedIDs(w.opts.IDColumn)
	if err != nil {
		return summary, fmt.Errorf("read processed shipments: %w", err)
	}

	pending := w.pendingRows(log, rows, processed, batchMetrics, &summary)
	log.Info("Shipments selected",
		zap.Int("total", summary.Total),
		zap.Int("already_processed", summary.Processed),
		zap.Int("excluded", summary.Excluded),
		zap.Int("pending", len(pending)),
	)

	var samples []time.Duration
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			w.finish(log, batchMetrics, &summary, started, samples)
			return summary, err
		}

		rowStarted := time.Now()
		out, outcome, result := w.processRow(ctx, log, p)
		elapsed := time.Since(rowStarted)
		samples = append(samples, elapsed)

		summary.Attempted++
		switch outcome {
		case metrics.OutcomeMeasured:
			summary.Measured++
		case metrics.OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Errors++
		}
		batchMetrics.ObserveRow(outcome, result.GroundMiles, result.AirMiles, elapsed)

		if err := w.table.Append(out); err != nil {
			w.finish(log, batchMetrics, &summary, started, samples)
			return summary, fmt.Errorf("append shipment %s: %w", p.row.Get(w.opts.IDColumn), err)
		}
	}

	w.finish(log, batchMetrics, &summary, started, samples)
	return summary, nil
}

func (w *Worker) pendingRows(log *zap.Logger, rows []repositories.ShipmentRow, processed map[string]struct{}, batchMetrics *metrics.BatchMetrics, summary *BatchSummary) []pendingRow {
	var excludedRegion, excludedMilitary int
	var pending []pendingRow

	for i, row := range rows {
		if _, ok := processed[row.Get(w.opts.IDColumn)]; ok {
			summary.Processed++
			continue
		}
		if _, ok := w.excluded[strings.ToUpper(row.Get(w.opts.RegionColumn))]; ok {
			excludedRegion++
			continue
		}
		if w.opts.ExcludeMilitary && locations.IsMilitaryPostalCode(row.Get(w.opts.PostalColumn)) {
			excludedMilitary++
			continue
		}
		pending = append(pending, pendingRow{index: i, row: row})
	}

	summary.Excluded = excludedRegion + excludedMilitary
	batchMetrics.ObserveExcluded("processed", summary.Processed)
	batchMetrics.ObserveExcluded("region", excludedRegion)
	batchMetrics.ObserveExcluded("military", excludedMilitary)

	lo, hi := w.opts.MinIndex, w.opts.MaxIndex
	if lo < 0 {
		lo = 0
	}
	if hi <= 0 || hi > len(pending) {
		hi = len(pending)
	}
	if lo >= hi {
		if len(pending) > 0 {
			log.Warn("Index range selects no shipments",
				zap.Int("min_index", w.opts.MinIndex),
				zap.Int("max_index", w.opts.MaxIndex),
				zap.Int("pending", len(pending)),
			)
		}
		return nil
	}
	return pending[lo:hi]
}

// processRow never panics and never fails: every problem ends up in the
// status column of the returned row.
func (w *Worker) processRow(ctx context.Context, log *zap.Logger, p pendingRow) (out repositories.ShipmentRow, outcome string, result models.ShipmentResult) {
	tracking := p.row.Get(w.opts.TrackingColumn)
	out = w.outputRow(p.row)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("Shipment panicked",
				zap.Int("row", p.index),
				zap.String("shipment_id", p.row.Get(w.opts.IDColumn)),
				zap.String("tracking_number", tracking),
				zap.Error(err),
			)
			out = w.markError(out, tracking, err)
			outcome, result = metrics.OutcomeError, models.ShipmentResult{}
		}
	}()

	if tracking == "" {
		return w.markError(out, tracking, errors.New("missing tracking number")), metrics.OutcomeError, result
	}

	result, err := w.calculator.Calculate(ctx, tracking)
	if err != nil {
		log.Error("Failed to measure shipment",
			zap.Int("row", p.index),
			zap.String("shipment_id", p.row.Get(w.opts.IDColumn)),
			zap.String("tracking_number", tracking),
			zap.Error(err),
		)
		return w.markError(out, tracking, err), metrics.OutcomeError, models.ShipmentResult{}
	}

	out[ColumnGroundMiles] = formatMiles(result.GroundMiles)
	out[ColumnAirMiles] = formatMiles(result.AirMiles)
	if result.Failed() {
		out[ColumnStatus] = result.Reason
		return out, metrics.OutcomeSkipped, result
	}

	out[ColumnStatus] = StatusOK
	for _, line := range result.Trace {
		log.Info(line, zap.String("tracking_number", tracking))
	}
	log.Info("Shipment successfully processed",
		zap.Int("row", p.index),
		zap.String("shipment_id", p.row.Get(w.opts.IDColumn)),
		zap.String("tracking_number", tracking),
		zap.Float64("ground_miles", result.GroundMiles),
		zap.Float64("air_miles", result.AirMiles),
	)
	return out, metrics.OutcomeMeasured, result
}

func (w *Worker) outputRow(in repositories.ShipmentRow) repositories.ShipmentRow {
	out := make(repositories.ShipmentRow, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	out[ColumnGroundMiles] = formatMiles(0)
	out[ColumnAirMiles] = formatMiles(0)
	if w.opts.UseRouting {
		out[ColumnMilesCalc] = milesCalcRouted
	} else {
		out[ColumnMilesCalc] = milesCalcEstimated
	}
	return out
}

func (w *Worker) markError(out repositories.ShipmentRow, tracking string, err error) repositories.ShipmentRow {
	out[ColumnGroundMiles] = formatMiles(0)
	out[ColumnAirMiles] = formatMiles(0)
	out[ColumnStatus] = ErrorMarker(err, tracking)
	return out
}

func (w *Worker) finish(log *zap.Logger, batchMetrics *metrics.BatchMetrics, summary *BatchSummary, started time.Time, samples []time.Duration) {
	summary.Elapsed = time.Since(started)
	if len(samples) > 0 {
		var total time.Duration
		for _, s := range samples {
			total += s
		}
		summary.AverageRow = total / time.Duration(len(samples))
	}

	batchMetrics.Finish(time.Now())
	if w.opts.MetricsTextfile != "" {
		if err := batchMetrics.WriteTextfile(w.opts.MetricsTextfile); err != nil {
			log.Error("Failed to write metrics textfile", zap.String("path", w.opts.MetricsTextfile), zap.Error(err))
		}
	}

	log.Info("Batch work completed 😴",
		zap.Int("attempted", summary.Attempted),
		zap.Int("measured", summary.Measured),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Duration("average_row", summary.AverageRow),
	)
}

// ErrorMarker is the status recorded for a row that could not be measured.
func ErrorMarker(err error, tracking string) string {
	return fmt.Sprintf("error: %v tracking: %s", err, tracking)
}

func formatMiles(miles float64) string {
	return strconv.FormatFloat(miles, 'f', 2, 64)
}
