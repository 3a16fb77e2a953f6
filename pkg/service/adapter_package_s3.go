package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher retrieves package tarballs from S3, implementing PackageFetcher
// for PackageBackend configs that name an S3Bucket/S3Key instead of a local
// Tarball path.
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher wraps an existing s3.Client.
func NewS3Fetcher(client *s3.Client) *S3Fetcher {
	return &S3Fetcher{client: client}
}

func (f *S3Fetcher) Fetch(ctx context.Context, bucket, key, destPath string) error {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}

	return nil
}
