package port

import (
	"context"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

// ObjectStorage is the shared blob store the fleet reads videos from and
// publishes frames to. Upload must be an idempotent overwrite: putting the
// same local file at the same key twice leaves storage in the same state.
type ObjectStorage interface {
	ListVideos(ctx context.Context) ([]entity.VideoRef, error)
	Download(ctx context.Context, objectKey string, destPath string) error
	Upload(ctx context.Context, objectKey string, localPath string, contentType string) error
}
