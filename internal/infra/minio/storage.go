package minio

import (
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

type Storage struct {
	client       *miniogo.Client
	inputBucket  string
	inputPrefix  string
	outputBucket string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	InputBucket  string
	InputPrefix  string
	OutputBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		inputBucket:  cfg.InputBucket,
		inputPrefix:  cfg.InputPrefix,
		outputBucket: cfg.OutputBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.inputBucket, s.outputBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// ListVideos lists every object under the input prefix. Every worker computes
// the same listing; shard assignment then decides which keys this worker
// actually downloads.
func (s *Storage) ListVideos(ctx context.Context) ([]entity.VideoRef, error) {
	var videos []entity.VideoRef
	for object := range s.client.ListObjects(ctx, s.inputBucket, miniogo.ListObjectsOptions{
		Prefix:    s.inputPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", s.inputBucket, object.Err)
		}
		videos = append(videos, entity.NewVideoRef(object.Key, object.Size))
	}
	return videos, nil
}

func (s *Storage) Download(ctx context.Context, objectKey string, destPath string) error {
	return s.client.FGetObject(ctx, s.inputBucket, objectKey, destPath, miniogo.GetObjectOptions{})
}

// Upload puts a local file at an output key. Plain overwrite-safe put:
// re-uploading the same file to the same key is idempotent, which is what
// makes publish retries and whole-shard re-runs safe.
func (s *Storage) Upload(ctx context.Context, objectKey string, localPath string, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.outputBucket, objectKey, localPath, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return nil
}
