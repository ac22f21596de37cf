// Package application orchestrates the upload and login flows into batches.
package application

import (
	"context"
	"log/slog"
	"time"

	"tokpost-go/core/event"
	"tokpost-go/core/eventbus"
	"tokpost-go/domain/media"
)

// ItemUploader runs the upload state machine for one item.
type ItemUploader interface {
	UploadAndPost(ctx context.Context, item media.Item, index, total int) (media.Outcome, error)
}

// UploadRecorder persists a successful upload so the item is never posted
// twice. Satisfied by catalog.Catalog.
type UploadRecorder interface {
	MarkUploaded(ctx context.Context, fingerprint, remoteURL string) error
}

// BatchItem pairs a media item with its catalog identity.
type BatchItem struct {
	Item        media.Item
	Fingerprint string
}

// Coordinator runs batches of uploads sequentially. Items share one browser
// session, so there is no parallelism; pacing between posts keeps the remote
// side from rate-limiting the account.
type Coordinator struct {
	uploader ItemUploader
	recorder UploadRecorder
	bus      eventbus.EventBus
	interval time.Duration
	logger   *slog.Logger

	// Injectable for tests.
	sleep func(time.Duration)
}

// CoordinatorConfig holds dependencies for the Coordinator.
type CoordinatorConfig struct {
	Uploader ItemUploader
	Recorder UploadRecorder
	EventBus eventbus.EventBus
	// Interval is the pause after each successful upload except the last.
	Interval time.Duration
	Logger   *slog.Logger
}

// NewCoordinator creates a batch coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		uploader: cfg.Uploader,
		recorder: cfg.Recorder,
		bus:      cfg.EventBus,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		sleep:    time.Sleep,
	}
}

// RunBatch uploads every item in order and returns an outcome per path. One
// item's failure never aborts the rest; only context cancellation does. Every
// success is recorded before the next item starts, so an interrupted batch
// resumes where it left off.
func (c *Coordinator) RunBatch(ctx context.Context, items []BatchItem) (map[string]media.Outcome, error) {
	results := make(map[string]media.Outcome, len(items))
	succeeded, failed := 0, 0

	for i, bi := range items {
		if err := ctx.Err(); err != nil {
			c.finish(succeeded, failed)
			return results, err
		}

		c.logger.Info("batch item starting",
			"index", i+1, "total", len(items), "path", bi.Item.Path)

		outcome, err := c.uploader.UploadAndPost(ctx, bi.Item, i+1, len(items))
		if err != nil {
			if ctx.Err() != nil {
				c.finish(succeeded, failed)
				return results, ctx.Err()
			}
			// Driver-level failure: isolate it to this item.
			c.logger.Error("item failed outside the state machine", "path", bi.Item.Path, "error", err)
			outcome = media.FailureOutcome(bi.Item.Path, media.FailureUnclassified, err.Error())
		}
		results[bi.Item.Path] = outcome

		if outcome.Succeeded {
			succeeded++
			if c.recorder != nil && bi.Fingerprint != "" {
				if err := c.recorder.MarkUploaded(ctx, bi.Fingerprint, outcome.RemoteURL); err != nil {
					c.logger.Error("failed to record upload", "path", bi.Item.Path, "error", err)
				}
			}
			// Pace consecutive posts; nothing follows the last one.
			if i < len(items)-1 {
				c.logger.Info("pausing before next item", "interval", c.interval)
				c.sleep(c.interval)
			}
		} else {
			failed++
			c.logger.Warn("batch item failed",
				"path", bi.Item.Path, "reason", outcome.Reason.String(), "message", outcome.Message)
		}
	}

	c.finish(succeeded, failed)
	return results, nil
}

func (c *Coordinator) finish(succeeded, failed int) {
	c.logger.Info("batch finished", "succeeded", succeeded, "failed", failed)
	if c.bus != nil {
		c.bus.Publish(event.NewBatchFinished(succeeded, failed))
	}
}
