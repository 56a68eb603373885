package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/domain/port"
	"github.com/framefleet/frame-extraction-worker/internal/infra/metrics"
)

const frameFormat = "jpg"

// ProcessVideoUseCase drives one video end-to-end: download, decode, sample,
// stage retained frames. Every failure is converted into a Failed result so
// one broken video never stops the rest of the shard.
type ProcessVideoUseCase struct {
	storage port.ObjectStorage
	decoder port.VideoDecoder
	policy  entity.SamplingPolicy
	logger  *zap.Logger
}

func NewProcessVideoUseCase(
	storage port.ObjectStorage,
	decoder port.VideoDecoder,
	policy entity.SamplingPolicy,
	logger *zap.Logger,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		storage: storage,
		decoder: decoder,
		policy:  policy,
		logger:  logger,
	}
}

// Execute processes a single video. scratchDir receives the downloaded input
// (removed before returning), framesRoot the staged frames, which survive
// under framesRoot/<videoID>/ until the runner publishes them. A mid-stream
// decode failure aborts the remainder of the video but keeps what was already
// staged; the partial frame count is reported.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, video entity.VideoRef, scratchDir, framesRoot string) entity.ProcessResult {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideo")
	defer span.End()
	span.SetAttributes(
		attribute.String("video.key", video.Key),
		attribute.String("video.id", video.ID),
	)

	log := uc.logger.With(zap.String("video_key", video.Key), zap.String("video_id", video.ID))

	ext := filepath.Ext(video.Key)
	if ext == "" {
		ext = ".mp4"
	}
	videoPath := filepath.Join(scratchDir, video.ID+ext)
	defer os.Remove(videoPath)

	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_video")
	err := uc.storage.Download(ctxDl, video.Key, videoPath)
	spanDl.End()
	if err != nil {
		return uc.fail(video, 0, "download: "+err.Error(), log)
	}
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	exStart := time.Now()
	ctxEx, spanEx := tracer.Start(ctx, "decode_and_sample")
	written, err := uc.decodeAndStage(ctxEx, video, videoPath, framesRoot, log)
	spanEx.End()
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	if err != nil {
		return uc.fail(video, written, err.Error(), log)
	}

	metrics.VideosProcessedTotal.WithLabelValues("succeeded").Inc()
	log.Info("video processed", zap.Int("frames_written", written))
	return entity.Succeeded(video, written)
}

// decodeAndStage consumes the frame stream exactly once, applying the
// sampling policy and writing each retained frame under a deterministic path
// keyed by (videoID, outputIndex). Returns the number of frames staged, which
// on error is the partial count already on disk.
func (uc *ProcessVideoUseCase) decodeAndStage(ctx context.Context, video entity.VideoRef, videoPath, framesRoot string, log *zap.Logger) (int, error) {
	stream, err := uc.decoder.Open(ctx, videoPath)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	outDir := filepath.Join(framesRoot, video.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}

	selector := uc.policy.Selector()
	written := 0
	for {
		decoded, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("decode aborted mid-stream, keeping staged frames",
				zap.Int("frames_written", written),
				zap.Error(err),
			)
			return written, err
		}
		if !selector.Keep(decoded.Timestamp) {
			continue
		}

		frame := entity.Frame{
			VideoID:   video.ID,
			Index:     written,
			Timestamp: decoded.Timestamp,
			Data:      decoded.Data,
			Format:    frameFormat,
		}
		if err := os.WriteFile(filepath.Join(outDir, frame.FileName()), frame.Data, 0o644); err != nil {
			return written, err
		}
		written++
		metrics.FramesStagedTotal.Inc()
	}

	meta := stream.Meta()
	log.Debug("frame stream drained",
		zap.Int("frames_written", written),
		zap.Float64("video_duration", meta.Duration),
		zap.Float64("frame_rate", meta.FrameRate),
	)
	return written, nil
}

func (uc *ProcessVideoUseCase) fail(video entity.VideoRef, written int, reason string, log *zap.Logger) entity.ProcessResult {
	metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
	log.Error("video failed",
		zap.String("reason", reason),
		zap.Int("frames_written", written),
	)
	return entity.Failed(video, written, reason)
}
