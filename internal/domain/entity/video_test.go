package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoRefIDDeterministicAndDistinct(t *testing.T) {
	a := NewVideoRef("videos/a.mp4", 100)
	b := NewVideoRef("videos/a.mp4", 100)
	c := NewVideoRef("videos/b.mp4", 100)

	assert.Equal(t, a.ID, b.ID, "same key, same identifier on every worker")
	assert.NotEqual(t, a.ID, c.ID)
	assert.Len(t, a.ID, 16)
}

func TestFrameFileName(t *testing.T) {
	f := Frame{VideoID: "abc", Index: 7, Format: "jpg"}
	assert.Equal(t, "frame_000007.jpg", f.FileName())
}

func TestRunReportCounters(t *testing.T) {
	report := NewRunReport(1, 4, 2.0)
	v1 := NewVideoRef("videos/a.mp4", 10)
	v2 := NewVideoRef("videos/b.mp4", 20)

	report.Record(Succeeded(v1, 12))
	report.Record(Failed(v2, 3, "decode: broken frame"))
	report.Finish(RunPartial)

	assert.Equal(t, 2, report.VideosTotal)
	assert.Equal(t, 1, report.VideosOK)
	assert.Equal(t, 1, report.VideosFailed)
	assert.Equal(t, 15, report.FramesWritten)
	assert.Equal(t, RunPartial, report.Status)
	assert.NotNil(t, report.FinishedAt)
	assert.Len(t, report.Videos, 2)
	assert.Equal(t, "decode: broken frame", report.Videos[1].Reason)
}
