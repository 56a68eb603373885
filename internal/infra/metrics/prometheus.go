package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framefleet_videos_processed_total",
		Help: "Total number of videos processed by this worker, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framefleet_stage_duration_seconds",
		Help:    "Duration of extraction pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesStagedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framefleet_frames_staged_total",
		Help: "Total number of frames staged across all videos in this run",
	})

	PublishRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framefleet_publish_retries_total",
		Help: "Total number of publish attempts that had to be retried",
	})

	ShardSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "framefleet_shard_size",
		Help: "Number of videos assigned to this worker's shard",
	})
)
