package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/domain/port"
)

// fallbackFrameRate is used for timestamp derivation when ffprobe cannot
// determine the stream's frame rate.
const fallbackFrameRate = 30.0

// Decoder decodes local video files by streaming every frame through an
// ffmpeg mjpeg pipe. Each Open spawns one ffmpeg process whose stdout is
// consumed lazily, frame by frame; the stream is finite and single-use.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(ctx context.Context, videoPath string) (port.FrameStream, error) {
	meta, err := probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", videoPath,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stdout pipe: %v", entity.ErrUnreadableVideo, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", entity.ErrUnreadableVideo, err)
	}

	frameRate := meta.FrameRate
	if frameRate <= 0 {
		d.logger.Warn("frame rate unknown, assuming fallback",
			zap.String("video_path", videoPath),
			zap.Float64("fallback_fps", fallbackFrameRate),
		)
		frameRate = fallbackFrameRate
	}

	return &frameStream{
		meta:      meta,
		frameRate: frameRate,
		cmd:       cmd,
		out:       bufio.NewReaderSize(stdout, 256*1024),
		stderr:    stderr,
	}, nil
}

type frameStream struct {
	meta      port.VideoMeta
	frameRate float64
	cmd       *exec.Cmd
	out       *bufio.Reader
	stderr    *bytes.Buffer
	rawIndex  int
	done      bool
}

func (s *frameStream) Meta() port.VideoMeta {
	return s.meta
}

// Next returns the next decoded frame in timestamp order, io.EOF after the
// last one. A malformed payload or a broken pipe surfaces as entity.ErrDecode
// on the offending frame and poisons the stream.
func (s *frameStream) Next() (entity.DecodedFrame, error) {
	if s.done {
		return entity.DecodedFrame{}, io.EOF
	}

	data, err := readJPEG(s.out)
	if err == io.EOF {
		s.done = true
		if werr := s.cmd.Wait(); werr != nil {
			return entity.DecodedFrame{}, fmt.Errorf("%w: ffmpeg exited: %v: %s",
				entity.ErrDecode, werr, strings.TrimSpace(s.stderr.String()))
		}
		return entity.DecodedFrame{}, io.EOF
	}
	if err != nil {
		s.done = true
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
		return entity.DecodedFrame{}, fmt.Errorf("%w: frame %d: %v", entity.ErrDecode, s.rawIndex, err)
	}

	frame := entity.DecodedFrame{
		RawIndex:  s.rawIndex,
		Timestamp: float64(s.rawIndex) / s.frameRate,
		Data:      data,
	}
	s.rawIndex++
	return frame, nil
}

func (s *frameStream) Close() error {
	if !s.done {
		s.done = true
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	return nil
}

// readJPEG reads one complete JPEG image from the mjpeg byte stream. A clean
// io.EOF before the first byte means the stream ended between frames; EOF
// anywhere inside a frame is a truncation error. Scanning for the EOI marker
// is safe in entropy-coded data because JPEG escapes 0xFF bytes there.
func readJPEG(r *bufio.Reader) ([]byte, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return nil, io.EOF
	}
	b1, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("truncated frame header")
	}
	if b0 != 0xFF || b1 != 0xD8 {
		return nil, fmt.Errorf("bad SOI marker 0x%02X%02X", b0, b1)
	}

	buf := make([]byte, 0, 64*1024)
	buf = append(buf, 0xFF, 0xD8)
	prev := byte(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated frame payload: %v", err)
		}
		buf = append(buf, b)
		if prev == 0xFF && b == 0xD9 {
			return buf, nil
		}
		prev = b
	}
}
