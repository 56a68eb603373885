package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
	"github.com/framefleet/frame-extraction-worker/internal/domain/port"
)

// fakeStorage is an in-memory object store. Download materializes a dummy
// local file (the fake decoder never reads it), Upload copies the local file
// into the uploads map keyed by object key.
type fakeStorage struct {
	videos      []entity.VideoRef
	listErr     error
	downloadErr map[string]error

	uploads    map[string][]byte
	uploadErr  func(key string) error
	putCalls   int
	uploadKeys []string
}

func newFakeStorage(videos ...entity.VideoRef) *fakeStorage {
	return &fakeStorage{
		videos:      videos,
		downloadErr: map[string]error{},
		uploads:     map[string][]byte{},
	}
}

func (f *fakeStorage) ListVideos(ctx context.Context) ([]entity.VideoRef, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.videos, nil
}

func (f *fakeStorage) Download(ctx context.Context, objectKey string, destPath string) error {
	if err := f.downloadErr[objectKey]; err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("video-bytes:"+objectKey), 0o644)
}

func (f *fakeStorage) Upload(ctx context.Context, objectKey string, localPath string, contentType string) error {
	f.putCalls++
	if f.uploadErr != nil {
		if err := f.uploadErr(objectKey); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.uploads[objectKey] = data
	f.uploadKeys = append(f.uploadKeys, objectKey)
	return nil
}

func (f *fakeStorage) frameKeys() []string {
	var keys []string
	for k := range f.uploads {
		if strings.Contains(k, "frames/") {
			keys = append(keys, k)
		}
	}
	return keys
}

// fakeDecoder serves synthetic frame streams keyed by video ID (the
// downloaded file's base name is <videoID><ext>).
type fakeDecoder struct {
	streams map[string]fakeStreamSetup
}

type fakeStreamSetup struct {
	frames    []entity.DecodedFrame
	openErr   error
	failAfter int // -1 means never fail mid-stream
	meta      port.VideoMeta
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{streams: map[string]fakeStreamSetup{}}
}

// addVideo registers n frames at the given fps for the video, succeeding
// end to end.
func (d *fakeDecoder) addVideo(id string, n int, fps float64) {
	d.addVideoFailing(id, n, fps, -1)
}

// addVideoFailing registers a stream that returns a decode error instead of
// the frame at index failAfter.
func (d *fakeDecoder) addVideoFailing(id string, n int, fps float64, failAfter int) {
	frames := make([]entity.DecodedFrame, n)
	for i := range frames {
		frames[i] = entity.DecodedFrame{
			RawIndex:  i,
			Timestamp: float64(i) / fps,
			Data:      []byte(fmt.Sprintf("%s-frame-%d", id, i)),
		}
	}
	d.streams[id] = fakeStreamSetup{
		frames:    frames,
		failAfter: failAfter,
		meta:      port.VideoMeta{Duration: float64(n) / fps, FrameRate: fps},
	}
}

func (d *fakeDecoder) addUnreadable(id string) {
	d.streams[id] = fakeStreamSetup{
		openErr:   fmt.Errorf("%w: ffprobe: moov atom not found", entity.ErrUnreadableVideo),
		failAfter: -1,
	}
}

func (d *fakeDecoder) Open(ctx context.Context, path string) (port.FrameStream, error) {
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	setup, ok := d.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: no registered stream for %s", entity.ErrUnreadableVideo, id)
	}
	if setup.openErr != nil {
		return nil, setup.openErr
	}
	return &fakeStream{setup: setup}, nil
}

type fakeStream struct {
	setup fakeStreamSetup
	idx  int
}

func (s *fakeStream) Meta() port.VideoMeta { return s.setup.meta }

func (s *fakeStream) Next() (entity.DecodedFrame, error) {
	if s.setup.failAfter >= 0 && s.idx == s.setup.failAfter {
		return entity.DecodedFrame{}, fmt.Errorf("%w: frame %d: bad SOI marker", entity.ErrDecode, s.idx)
	}
	if s.idx >= len(s.setup.frames) {
		return entity.DecodedFrame{}, io.EOF
	}
	frame := s.setup.frames[s.idx]
	s.idx++
	return frame, nil
}

func (s *fakeStream) Close() error { return nil }

// fakeReportSink and fakeStatusPublisher record what the runner hands them.
type fakeReportSink struct {
	stored []*entity.RunReport
	err    error
}

func (f *fakeReportSink) Store(ctx context.Context, report *entity.RunReport) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, report)
	return nil
}

type fakeStatusPublisher struct {
	published [][]byte
}

func (f *fakeStatusPublisher) PublishRunStatus(ctx context.Context, msg []byte) error {
	f.published = append(f.published, msg)
	return nil
}
