package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// VideoRef identifies one input video in object storage. Immutable once
// listed. ID is derived from the storage key, so every worker computes the
// same identifier for the same video without coordination, and output frame
// keys built from it never collide across videos.
type VideoRef struct {
	Key  string
	Size int64
	ID   string
}

func NewVideoRef(key string, size int64) VideoRef {
	sum := sha256.Sum256([]byte(key))
	return VideoRef{
		Key:  key,
		Size: size,
		ID:   hex.EncodeToString(sum[:8]),
	}
}

// DecodedFrame is one frame as produced by the decoder: RawIndex is the
// frame's position in the decoded stream, Timestamp its presentation time in
// seconds from the start of the video.
type DecodedFrame struct {
	RawIndex  int
	Timestamp float64
	Data      []byte
}

// Frame is a retained frame after sampling. Index is the contiguous output
// index (0..k-1 for k retained frames), independent of RawIndex gaps
// introduced by subsampling.
type Frame struct {
	VideoID   string
	Index     int
	Timestamp float64
	Data      []byte
	Format    string
}

// FileName returns the frame's deterministic file name within its video's
// output directory.
func (f Frame) FileName() string {
	return fmt.Sprintf("frame_%06d.%s", f.Index, f.Format)
}

// Shard is the ordered, disjoint subset of the input videos owned by exactly
// one worker for the lifetime of a run.
type Shard struct {
	WorkerIndex int
	ShardCount  int
	Videos      []VideoRef
}

func (s Shard) Size() int {
	return len(s.Videos)
}
