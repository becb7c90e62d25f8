package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/courtside/courtside/internal/errs"
)

// S3Store stores objects in a single S3 bucket. Uploads go through the
// multipart manager so large video binaries stream without buffering in memory.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Store constructs a store for one bucket.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}
}

// Put streams an object to the bucket.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w: %w", key, errs.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Delete removes an object. A missing key is treated as success.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NoSuchKey
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("delete %s: %w: %w", key, errs.ErrUpstreamUnavailable, err)
	}
	return nil
}

// S3Signer issues presigned GET URLs for bucket objects.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
}

// NewS3Signer constructs a signer for one bucket.
func NewS3Signer(client *s3.Client, bucket string) *S3Signer {
	return &S3Signer{presign: s3.NewPresignClient(client), bucket: bucket}
}

// Sign returns a presigned GET URL valid for ttl.
func (s *S3Signer) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w: %w", key, errs.ErrUpstreamUnavailable, err)
	}
	return req.URL, nil
}
