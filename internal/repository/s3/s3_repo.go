package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/YashKapri/whisper-flow/pkg/client/s3"
	"github.com/minio/minio-go/v7"
)

type S3Repo struct {
	StorageS3 *s3.StorageS3
}

func NewS3Repo(storageS3 *s3.StorageS3) *S3Repo {
	return &S3Repo{StorageS3: storageS3}
}

func (s *S3Repo) Upload(ctx context.Context, key string, file []byte) error {
	if s.StorageS3 == nil || s.StorageS3.Client == nil {
		return fmt.Errorf("s3 client not initialized")
	}

	_, err := s.StorageS3.Client.PutObject(
		ctx,
		s.StorageS3.Bucket,
		key,
		bytes.NewReader(file),
		int64(len(file)),
		minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		},
	)
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}

	return nil
}

// Download fetches an object to a local path for the engine to read.
func (s *S3Repo) Download(ctx context.Context, key, localPath string) error {
	if s.StorageS3 == nil || s.StorageS3.Client == nil {
		return fmt.Errorf("s3 client not initialized")
	}

	if err := s.StorageS3.Client.FGetObject(ctx, s.StorageS3.Bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("s3 get object: %w", err)
	}
	return nil
}

func (s *S3Repo) Remove(ctx context.Context, key string) error {
	if s.StorageS3 == nil || s.StorageS3.Client == nil {
		return fmt.Errorf("s3 client not initialized")
	}

	if err := s.StorageS3.Client.RemoveObject(ctx, s.StorageS3.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3 remove object: %w", err)
	}
	return nil
}
