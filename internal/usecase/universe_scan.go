package usecase

import (
	"context"
	"fmt"

	applogger "PairPull/pkg/logger"
	"PairPull/pkg/queue"
)

// ScanPayload is the queue message for a universe re-scan.
type ScanPayload struct {
	Reason string `json:"reason"`
}

// UniverseScanJob is a queue job that triggers a full engine refresh. Scans
// are expensive, so ad-hoc requests go through the Redis queue instead of
// running inline in an HTTP handler.
type UniverseScanJob struct {
	runner *SignalRunner
	logger *applogger.Logger
}

func NewUniverseScanJob(runner *SignalRunner, logger *applogger.Logger) *UniverseScanJob {
	return &UniverseScanJob{runner: runner, logger: logger}
}

func (j *UniverseScanJob) Name() string { return "universe-scan" }

func (j *UniverseScanJob) Type() string { return "scan.universe" }

func (j *UniverseScanJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScanPayload](payload)
	if err != nil {
		return fmt.Errorf("scan payload: %w", err)
	}
	j.logger.Info("universe scan requested", applogger.String("reason", p.Reason))
	return j.runner.Refresh(ctx)
}

var _ queue.Job = (*UniverseScanJob)(nil)
