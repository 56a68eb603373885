package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/domain/port"
	"github.com/framefleet/frame-extraction-worker/internal/domain/shard"
	"github.com/framefleet/frame-extraction-worker/internal/infra/metrics"
)

const maxPublishBackoff = 60 * time.Second

// RunWorkerUseCase is the per-process entry point of the fleet: it resolves
// this worker's shard from the shared input listing, processes each assigned
// video, then publishes the staged frames and the run report to the durable
// output prefix. Per-video failures are recorded and tolerated; only
// configuration, listing, and publish failures are fatal for the run.
type RunWorkerUseCase struct {
	storage    port.ObjectStorage
	processor  *ProcessVideoUseCase
	reportSink port.ReportSink
	statusPub  port.StatusPublisher
	logger     *zap.Logger
	cfg        RunWorkerConfig
}

type RunWorkerConfig struct {
	WorkerIndex       int
	ShardCount        int
	SampleFPS         float64
	StagingDir        string
	OutputPrefix      string
	PublishMaxRetries int
	PublishBaseDelay  time.Duration
}

// NewRunWorkerUseCase wires the runner. reportSink and statusPub may be nil;
// both are optional observers of the finished run.
func NewRunWorkerUseCase(
	storage port.ObjectStorage,
	processor *ProcessVideoUseCase,
	reportSink port.ReportSink,
	statusPub port.StatusPublisher,
	logger *zap.Logger,
	cfg RunWorkerConfig,
) *RunWorkerUseCase {
	return &RunWorkerUseCase{
		storage:    storage,
		processor:  processor,
		reportSink: reportSink,
		statusPub:  statusPub,
		logger:     logger,
		cfg:        cfg,
	}
}

// Execute runs the worker to completion and always returns a report; its
// Status carries the terminal state (SUCCEEDED, PARTIAL, FATAL). The error is
// non-nil exactly when the run is fatal.
func (uc *RunWorkerUseCase) Execute(ctx context.Context) (*entity.RunReport, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "RunWorker")
	defer span.End()

	report := entity.NewRunReport(uc.cfg.WorkerIndex, uc.cfg.ShardCount, uc.cfg.SampleFPS)
	span.SetAttributes(
		attribute.String("run.id", report.RunID.String()),
		attribute.Int("run.worker_index", uc.cfg.WorkerIndex),
		attribute.Int("run.shard_count", uc.cfg.ShardCount),
	)
	log := uc.logger.With(
		zap.String("run_id", report.RunID.String()),
		zap.Int("worker_index", uc.cfg.WorkerIndex),
		zap.Int("shard_count", uc.cfg.ShardCount),
	)

	own, err := uc.listAndAssign(ctx, log)
	if err != nil {
		report.Finish(entity.RunFatal)
		return report, err
	}

	runDir := filepath.Join(uc.cfg.StagingDir, report.RunID.String())
	framesRoot := filepath.Join(runDir, "frames")
	scratchDir := filepath.Join(runDir, "scratch")
	for _, dir := range []string{framesRoot, scratchDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			report.Finish(entity.RunFatal)
			return report, fmt.Errorf("create staging dir %s: %w", dir, err)
		}
	}
	defer os.RemoveAll(runDir)

	for _, video := range own.Videos {
		if ctx.Err() != nil {
			report.Finish(entity.RunFatal)
			return report, fmt.Errorf("run cancelled: %w", ctx.Err())
		}
		report.Record(uc.processor.Execute(ctx, video, scratchDir, framesRoot))
	}

	status := entity.RunSucceeded
	if report.VideosFailed > 0 {
		status = entity.RunPartial
	}
	report.Finish(status)

	if err := uc.publish(ctx, report, runDir, framesRoot, log); err != nil {
		report.Status = entity.RunFatal
		return report, err
	}

	uc.notify(ctx, report, log)

	log.Info("run finished",
		zap.String("status", string(report.Status)),
		zap.Int("videos_total", report.VideosTotal),
		zap.Int("videos_failed", report.VideosFailed),
		zap.Int("frames_written", report.FramesWritten),
	)
	return report, nil
}

// listAndAssign obtains the full corpus listing and keeps this worker's
// shard. An empty corpus is a configuration problem: the launcher pointed the
// fleet at nothing.
func (uc *RunWorkerUseCase) listAndAssign(ctx context.Context, log *zap.Logger) (entity.Shard, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "list_inputs")
	defer span.End()

	videos, err := uc.storage.ListVideos(ctx)
	if err != nil {
		return entity.Shard{}, fmt.Errorf("list input videos: %w", err)
	}
	if len(videos) == 0 {
		return entity.Shard{}, fmt.Errorf("%w: input listing is empty", entity.ErrConfiguration)
	}

	own, err := shard.Assign(videos, uc.cfg.WorkerIndex, uc.cfg.ShardCount)
	if err != nil {
		return entity.Shard{}, err
	}

	metrics.ShardSize.Set(float64(own.Size()))
	log.Info("shard assigned",
		zap.Int("corpus_size", len(videos)),
		zap.Int("shard_size", own.Size()),
	)
	return own, nil
}

// publish uploads the staged frame tree and the run report to the output
// prefix. Frame keys derive only from the video identifier, so concurrent
// workers never write the same key; every put is an idempotent overwrite, so
// retries and whole-shard re-runs converge to the same final state.
func (uc *RunWorkerUseCase) publish(ctx context.Context, report *entity.RunReport, runDir, framesRoot string, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "publish")
	defer span.End()

	start := time.Now()

	reportPath := filepath.Join(runDir, "report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}

	uploaded := 0
	err = filepath.WalkDir(framesRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(framesRoot, p)
		if err != nil {
			return err
		}
		key := path.Join(uc.cfg.OutputPrefix, "frames", filepath.ToSlash(rel))
		if err := uc.uploadWithRetry(ctx, p, key, "image/jpeg", log); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return err
	}

	reportKey := path.Join(uc.cfg.OutputPrefix, "reports", fmt.Sprintf("worker_%03d.json", uc.cfg.WorkerIndex))
	if err := uc.uploadWithRetry(ctx, reportPath, reportKey, "application/json", log); err != nil {
		return err
	}

	metrics.StageDuration.WithLabelValues("publish").Observe(time.Since(start).Seconds())
	log.Info("staging tree published",
		zap.Int("objects_uploaded", uploaded+1),
		zap.String("report_key", reportKey),
	)
	return nil
}

// uploadWithRetry retries one put with bounded exponential backoff.
// Exhaustion is a publish failure, fatal for the run: the data exists locally
// but downstream aggregation cannot observe it.
func (uc *RunWorkerUseCase) uploadWithRetry(ctx context.Context, localPath, key, contentType string, log *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= uc.cfg.PublishMaxRetries; attempt++ {
		lastErr = uc.storage.Upload(ctx, key, localPath, contentType)
		if lastErr == nil {
			return nil
		}

		if attempt == uc.cfg.PublishMaxRetries {
			break
		}
		metrics.PublishRetriesTotal.Inc()
		delay := uc.backoff(attempt)
		log.Warn("upload failed, backing off",
			zap.String("object_key", key),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: upload %s cancelled: %v", entity.ErrPublish, key, ctx.Err())
		}
	}
	return fmt.Errorf("%w: upload %s after %d attempts: %v", entity.ErrPublish, key, uc.cfg.PublishMaxRetries, lastErr)
}

func (uc *RunWorkerUseCase) backoff(attempt int) time.Duration {
	delay := uc.cfg.PublishBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > maxPublishBackoff {
		delay = maxPublishBackoff
	}
	return delay
}

// notify feeds the finished report to the optional audit sink and status
// publisher. Both are best effort.
func (uc *RunWorkerUseCase) notify(ctx context.Context, report *entity.RunReport, log *zap.Logger) {
	if uc.reportSink != nil {
		if err := uc.reportSink.Store(ctx, report); err != nil {
			log.Warn("report sink store failed", zap.Error(err))
		}
	}
	if uc.statusPub != nil {
		data, err := json.Marshal(report)
		if err == nil {
			err = uc.statusPub.PublishRunStatus(ctx, data)
		}
		if err != nil {
			log.Warn("run status publish failed", zap.Error(err))
		}
	}
}
