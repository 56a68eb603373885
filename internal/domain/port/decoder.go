package port

import (
	"context"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

// VideoMeta is the container-level metadata probed at open time.
type VideoMeta struct {
	Duration  float64
	FrameRate float64
}

// FrameStream is a finite, single-use sequence of decoded frames in
// increasing timestamp order. Next returns io.EOF after the last frame and an
// error wrapping entity.ErrDecode if the stream breaks mid-video. A stream is
// not restartable; re-iterating requires a fresh Open.
type FrameStream interface {
	Meta() VideoMeta
	Next() (entity.DecodedFrame, error)
	Close() error
}

// VideoDecoder opens a local video file for decoding. Open fails with an
// error wrapping entity.ErrUnreadableVideo when the container itself cannot
// be read (corrupt header, unsupported codec).
type VideoDecoder interface {
	Open(ctx context.Context, path string) (FrameStream, error)
}
