package core

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Orchestrator struct {
	logger  *zap.Logger
	workers []Worker
}

func NewOrchestrator(logger *zap.Logger, workers []Worker) *Orchestrator {
	return &Orchestrator{logger: logger, workers: workers}
}

// Start schedules every worker and starts the cron runner. The runner stops
// when ctx is done; callers may also stop it themselves.
func (o *Orchestrator) Start(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()

	for _, worker := range o.workers {
		worker := worker
		schedule := worker.Schedule()
		_, err := c.AddFunc(schedule, func() {
			if !worker.Ready(time.Now()) {
				o.logger.Info("Worker still busy, skipping tick", zap.String("schedule", schedule))
				return
			}
			go worker.Execute()
		})

		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", schedule, err)
		}
		o.logger.Info("Worker scheduled", zap.String("schedule", schedule))
	}

	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return c, nil
}
