// Package jobs holds the asynq task definitions and handlers run by
// cmd/worker. The jobs reuse the request-path services; the API process
// itself never runs background work.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup pre-fills the dashboard cache for connected shops.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskCogsBackfill ensures COGS rows exist for yesterday's orders.
	TaskCogsBackfill = "cogs:backfill"
)

// DashboardWarmupPayload selects the windows to warm.
type DashboardWarmupPayload struct {
	Presets []string `json:"presets"`
}

// NewDashboardWarmupTask constructs the warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// CogsBackfillPayload selects the window to backfill.
type CogsBackfillPayload struct {
	Preset string `json:"preset"`
}

// NewCogsBackfillTask constructs the backfill task.
func NewCogsBackfillTask(payload CogsBackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCogsBackfill, data), nil
}
