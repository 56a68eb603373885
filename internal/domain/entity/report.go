package entity

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal state of a worker run, mapped to a process exit
// code by the entry point: SUCCEEDED -> 0, PARTIAL -> 1, FATAL -> 2.
type RunStatus string

const (
	RunSucceeded RunStatus = "SUCCEEDED"
	RunPartial   RunStatus = "PARTIAL"
	RunFatal     RunStatus = "FATAL"
)

// VideoResult is one video's outcome as persisted in the run report.
type VideoResult struct {
	VideoKey      string  `json:"video_key"`
	VideoID       string  `json:"video_id"`
	Outcome       Outcome `json:"outcome"`
	FramesWritten int     `json:"frames_written"`
	Reason        string  `json:"reason,omitempty"`
}

// RunReport is the per-worker summary of a run, persisted alongside the
// output for post-hoc auditing. Built up during the run, frozen by Finish,
// never mutated afterwards.
type RunReport struct {
	RunID         uuid.UUID     `json:"run_id"`
	WorkerIndex   int           `json:"worker_index"`
	ShardCount    int           `json:"shard_count"`
	SampleFPS     float64       `json:"sample_fps"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	VideosTotal   int           `json:"videos_total"`
	VideosOK      int           `json:"videos_succeeded"`
	VideosFailed  int           `json:"videos_failed"`
	FramesWritten int           `json:"frames_written"`
	Status        RunStatus     `json:"status"`
	Videos        []VideoResult `json:"videos"`
}

func NewRunReport(workerIndex, shardCount int, sampleFPS float64) *RunReport {
	return &RunReport{
		RunID:       uuid.New(),
		WorkerIndex: workerIndex,
		ShardCount:  shardCount,
		SampleFPS:   sampleFPS,
		StartedAt:   time.Now().UTC(),
	}
}

func (r *RunReport) Record(res ProcessResult) {
	r.VideosTotal++
	r.FramesWritten += res.FramesWritten
	if res.Outcome == OutcomeSucceeded {
		r.VideosOK++
	} else {
		r.VideosFailed++
	}
	r.Videos = append(r.Videos, VideoResult{
		VideoKey:      res.Video.Key,
		VideoID:       res.Video.ID,
		Outcome:       res.Outcome,
		FramesWritten: res.FramesWritten,
		Reason:        res.Reason,
	})
}

// Finish freezes the report with its terminal status.
func (r *RunReport) Finish(status RunStatus) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = status
}
