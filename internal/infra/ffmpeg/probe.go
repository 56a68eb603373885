package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/domain/port"
)

// probe reads container-level metadata with ffprobe. A probe failure means
// the container is unreadable (corrupt header, unsupported codec, no video
// stream) and the whole video is skipped.
func probe(ctx context.Context, videoPath string) (port.VideoMeta, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return port.VideoMeta{}, fmt.Errorf("%w: ffprobe: %v: %s", entity.ErrUnreadableVideo, err, strings.TrimSpace(string(output)))
	}

	meta := port.VideoMeta{}
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "N/A" {
			continue
		}
		if strings.Contains(line, "/") {
			if rate, err := parseRational(line); err == nil {
				meta.FrameRate = rate
			}
			continue
		}
		if dur, err := strconv.ParseFloat(line, 64); err == nil {
			meta.Duration = dur
		}
	}

	if meta.FrameRate <= 0 && meta.Duration <= 0 {
		return port.VideoMeta{}, fmt.Errorf("%w: ffprobe reported no usable stream metadata", entity.ErrUnreadableVideo)
	}
	return meta, nil
}

// parseRational parses ffprobe's fractional rates ("30000/1001", "25/1").
func parseRational(s string) (float64, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse rational %q: %w", s, err)
	}
	den := 1.0
	if len(parts) == 2 {
		den, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("parse rational %q: %w", s, err)
		}
	}
	if den == 0 {
		return 0, fmt.Errorf("parse rational %q: zero denominator", s)
	}
	return num / den, nil
}
