package worker

import (
	"context"
	"log"
	"time"

	"github.com/tradewatch/internal/service"
)

// PollWorker periodically pulls a bot snapshot and derives fills, replacing
// an external cron. Deployments that keep an external scheduler can disable
// it and hit the pull endpoint instead.
type PollWorker struct {
	snapshotService *service.SnapshotService
	statsService    *service.StatsService
	interval        time.Duration
	stopChan        chan struct{}
}

// NewPollWorker creates a new snapshot poll worker
func NewPollWorker(
	snapshotService *service.SnapshotService,
	statsService *service.StatsService,
	interval time.Duration,
) *PollWorker {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &PollWorker{
		snapshotService: snapshotService,
		statsService:    statsService,
		interval:        interval,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the polling loop
func (w *PollWorker) Start() {
	log.Printf("Poll worker started with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.pullOnce()
		case <-w.stopChan:
			log.Println("Poll worker stopped")
			return
		}
	}
}

// Stop stops the polling loop
func (w *PollWorker) Stop() {
	close(w.stopChan)
}

// pullOnce runs one pull. Failures are logged and the loop continues; the
// next tick retries from scratch.
func (w *PollWorker) pullOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	result, err := w.snapshotService.Pull(ctx)
	if err != nil {
		log.Printf("Poll worker: pull failed: %v", err)
		return
	}

	w.statsService.Invalidate(ctx)

	log.Printf("Poll worker: snapshot at %s, %d positions, %d events, %d fills written",
		result.TS.Format(time.RFC3339), result.PositionsCount, result.Events, result.FillsWritten)
}
