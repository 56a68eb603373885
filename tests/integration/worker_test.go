package integration

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/infra/ffmpeg"
	miniostorage "github.com/framefleet/frame-extraction-worker/internal/infra/minio"
	"github.com/framefleet/frame-extraction-worker/internal/infra/postgres"
	"github.com/framefleet/frame-extraction-worker/internal/usecase"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed, skipping", bin)
		}
	}
}

// generateTestVideo renders a 2-second synthetic clip at 30fps.
func generateTestVideo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test.mp4")
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", "testsrc=duration=2:size=320x240:rate=30",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y", path,
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "generate test video: %s", string(output))
	return path
}

func TestWorkerRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	requireFFmpeg(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("audit"),
		tcpostgres.WithUsername("audit_user"),
		tcpostgres.WithPassword("audit_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		InputBucket:  "videos",
		InputPrefix:  "corpus/",
		OutputBucket: "frames",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	videoPath := generateTestVideo(t, t.TempDir())

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	inputKeys := []string{"corpus/clip_a.mp4", "corpus/clip_b.mp4"}
	for _, key := range inputKeys {
		_, err = minioClient.FPutObject(ctx, "videos", key, videoPath, miniogo.PutObjectOptions{
			ContentType: "video/mp4",
		})
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	sink := postgres.NewReportSink(pool)
	require.NoError(t, sink.EnsureSchema(ctx))

	log := zap.NewNop()
	policy, err := entity.NewSamplingPolicy(1)
	require.NoError(t, err)

	processor := usecase.NewProcessVideoUseCase(storage, ffmpeg.NewDecoder(log), policy, log)
	runner := usecase.NewRunWorkerUseCase(storage, processor, sink, nil, log, usecase.RunWorkerConfig{
		WorkerIndex:       0,
		ShardCount:        1,
		SampleFPS:         1,
		StagingDir:        t.TempDir(),
		OutputPrefix:      "run42",
		PublishMaxRetries: 3,
		PublishBaseDelay:  100 * time.Millisecond,
	})

	report, err := runner.Execute(ctx)
	require.NoError(t, err)

	assert.Equal(t, entity.RunSucceeded, report.Status)
	assert.Equal(t, 2, report.VideosTotal)
	assert.Equal(t, 2, report.VideosOK)
	// 2 seconds sampled at 1 fps: 2 frames per video, 3 at most if the
	// encoder pads the tail.
	assert.GreaterOrEqual(t, report.FramesWritten, 4)
	assert.LessOrEqual(t, report.FramesWritten, 6)

	// Published frames match the report.
	frameObjects := 0
	var reportKey string
	for object := range minioClient.ListObjects(ctx, "frames", miniogo.ListObjectsOptions{Recursive: true}) {
		require.NoError(t, object.Err)
		switch {
		case strings.HasPrefix(object.Key, "run42/frames/"):
			frameObjects++
		case strings.HasPrefix(object.Key, "run42/reports/"):
			reportKey = object.Key
		}
	}
	assert.Equal(t, report.FramesWritten, frameObjects)
	require.Equal(t, "run42/reports/worker_000.json", reportKey)

	obj, err := minioClient.GetObject(ctx, "frames", reportKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)
	var published entity.RunReport
	require.NoError(t, json.NewDecoder(obj).Decode(&published))
	assert.Equal(t, report.RunID, published.RunID)
	assert.Len(t, published.Videos, 2)

	// Audit sink recorded the run.
	var stored int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM run_reports WHERE run_id = $1", report.RunID).Scan(&stored))
	assert.Equal(t, 1, stored)
}
