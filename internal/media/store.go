// Package media stores user-submitted media in S3 so queue payloads stay
// small. Workers receive an object key and fetch the bytes on their side.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store persists media uploads to S3. If bucket is empty, Put fails and
// Fetch is never reachable, so callers should treat an unconfigured store
// as "media analysis disabled".
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if the store is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

func contentTypeFor(kind analysis.Kind) string {
	switch kind {
	case analysis.KindImage:
		return "image/*"
	case analysis.KindAudio:
		return "audio/*"
	case analysis.KindVideo:
		return "video/*"
	default:
		return "application/octet-stream"
	}
}

// Put writes media bytes under a date-partitioned key and returns the key.
func (s *Store) Put(ctx context.Context, data []byte, kind analysis.Kind) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("media: store not configured")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("media: empty payload")
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("media/v1/by-date/%d/%02d/%02d/%s",
		now.Year(), now.Month(), now.Day(), uuid.NewString())

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(kind)),
	})
	if err != nil {
		return "", fmt.Errorf("media: s3 put %s: %w", key, err)
	}

	s.logger.Info("stored media upload", "s3_key", key, "kind", string(kind), "bytes", len(data))
	return key, nil
}

// Fetch resolves a key previously returned by Put back to its bytes.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("media: store not configured")
	}

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("media: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("media: read %s: %w", key, err)
	}
	return data, nil
}

var _ analysis.MediaFetcher = (*Store)(nil)
