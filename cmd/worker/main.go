package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/domain/port"
	"github.com/framefleet/frame-extraction-worker/internal/infra/config"
	"github.com/framefleet/frame-extraction-worker/internal/infra/ffmpeg"
	"github.com/framefleet/frame-extraction-worker/internal/infra/metrics"
	miniostorage "github.com/framefleet/frame-extraction-worker/internal/infra/minio"
	"github.com/framefleet/frame-extraction-worker/internal/infra/postgres"
	"github.com/framefleet/frame-extraction-worker/internal/infra/rabbitmq"
	"github.com/framefleet/frame-extraction-worker/internal/infra/tracing"
	"github.com/framefleet/frame-extraction-worker/internal/usecase"
	"github.com/framefleet/frame-extraction-worker/pkg/logger"
)

// Exit codes observed by the job launcher.
const (
	exitSuccess = 0 // every video in the shard succeeded
	exitPartial = 1 // some videos failed; inspect the run report
	exitFatal   = 2 // configuration or publish failure, no usable output
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return exitFatal
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return exitFatal
	}
	defer log.Sync()

	log.Info("starting frame-extraction-worker",
		zap.Int("worker_index", cfg.WorkerIndex),
		zap.Int("shard_count", cfg.ShardCount),
		zap.Float64("sample_fps", cfg.SampleFPS),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		InputBucket:  cfg.MinIOInputBucket,
		InputPrefix:  cfg.MinIOInputPrefix,
		OutputBucket: cfg.MinIOOutputBucket,
	})
	if err != nil {
		log.Error("create minio storage", zap.Error(err))
		return exitFatal
	}
	if err := storage.EnsureBuckets(ctx); err != nil {
		log.Error("ensure minio buckets", zap.Error(err))
		return exitFatal
	}

	policy, err := entity.NewSamplingPolicy(cfg.SampleFPS)
	if err != nil {
		log.Error("invalid sampling policy", zap.Error(err))
		return exitFatal
	}

	var reportSink port.ReportSink
	if cfg.ReportDatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.ReportDatabaseURL)
		if err != nil {
			log.Error("connect to report database", zap.Error(err))
			return exitFatal
		}
		defer pool.Close()

		sink := postgres.NewReportSink(pool)
		if err := sink.EnsureSchema(ctx); err != nil {
			log.Error("ensure report schema", zap.Error(err))
			return exitFatal
		}
		reportSink = sink
	}

	var statusPub port.StatusPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Error("connect to rabbitmq", zap.Error(err))
			return exitFatal
		}
		defer conn.Close()

		pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQExchange)
		if err != nil {
			log.Error("create rabbitmq publisher", zap.Error(err))
			return exitFatal
		}
		statusPub = rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusRoutingKey)
	}

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	processor := usecase.NewProcessVideoUseCase(storage, ffmpeg.NewDecoder(log), policy, log)
	runner := usecase.NewRunWorkerUseCase(storage, processor, reportSink, statusPub, log, usecase.RunWorkerConfig{
		WorkerIndex:       cfg.WorkerIndex,
		ShardCount:        cfg.ShardCount,
		SampleFPS:         cfg.SampleFPS,
		StagingDir:        cfg.StagingDir,
		OutputPrefix:      cfg.MinIOOutputPrefix,
		PublishMaxRetries: cfg.PublishMaxRetries,
		PublishBaseDelay:  time.Duration(cfg.PublishBaseDelayMs) * time.Millisecond,
	})

	report, err := runner.Execute(ctx)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return exitFatal
	}

	if report.Status == entity.RunPartial {
		log.Warn("run finished with failed videos",
			zap.Int("videos_failed", report.VideosFailed),
			zap.Int("videos_total", report.VideosTotal),
		)
		return exitPartial
	}
	return exitSuccess
}
