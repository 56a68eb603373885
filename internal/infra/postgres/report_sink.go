package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

// ReportSink stores run reports in Postgres for post-hoc auditing across the
// fleet. Optional: the object-storage copy of the report remains the durable
// artifact even when no database is configured.
type ReportSink struct {
	pool *pgxpool.Pool
}

func NewReportSink(pool *pgxpool.Pool) *ReportSink {
	return &ReportSink{pool: pool}
}

// EnsureSchema creates the audit tables when they do not exist yet.
func (s *ReportSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS run_reports (
			run_id         UUID PRIMARY KEY,
			worker_index   INT NOT NULL,
			shard_count    INT NOT NULL,
			sample_fps     DOUBLE PRECISION NOT NULL,
			status         TEXT NOT NULL,
			videos_total   INT NOT NULL,
			videos_ok      INT NOT NULL,
			videos_failed  INT NOT NULL,
			frames_written INT NOT NULL,
			started_at     TIMESTAMPTZ NOT NULL,
			finished_at    TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS run_video_results (
			run_id         UUID NOT NULL REFERENCES run_reports(run_id),
			video_key      TEXT NOT NULL,
			video_id       TEXT NOT NULL,
			outcome        TEXT NOT NULL,
			frames_written INT NOT NULL,
			reason         TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, video_key)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure report schema: %w", err)
	}
	return nil
}

func (s *ReportSink) Store(ctx context.Context, report *entity.RunReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO run_reports (
			run_id, worker_index, shard_count, sample_fps, status,
			videos_total, videos_ok, videos_failed, frames_written,
			started_at, finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (run_id) DO NOTHING`,
		report.RunID, report.WorkerIndex, report.ShardCount, report.SampleFPS,
		string(report.Status), report.VideosTotal, report.VideosOK,
		report.VideosFailed, report.FramesWritten, report.StartedAt, report.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}

	for _, v := range report.Videos {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_video_results (
				run_id, video_key, video_id, outcome, frames_written, reason
			) VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (run_id, video_key) DO NOTHING`,
			report.RunID, v.VideoKey, v.VideoID, string(v.Outcome), v.FramesWritten, v.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert video result %s: %w", v.VideoKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit report tx: %w", err)
	}
	return nil
}
