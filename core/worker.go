package core

import "time"

// Worker is a unit of scheduled work run by the Orchestrator.
type Worker interface {
	// Schedule is a standard five field cron expression.
	Schedule() string
	// Ready reports whether a tick at now should start the worker.
	Ready(now time.Time) bool
	Execute()
}
