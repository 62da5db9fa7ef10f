// Package archive repurposes the teacher's S3/GCS object repositories
// as an optional, best-effort cold-archive sink for successfully
// uploaded shard sets (SPEC_FULL.md [DOMAIN+] "Supplemental
// features"). This is strictly additional to the m-node quorum the
// spec's invariants govern: archived copies never participate in
// recover_and_decrypt, and a failed archive copy never fails an
// upload.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// Sink is a cold-archive destination for one shard's bytes.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
	Platform() string
}

// S3Sink archives shards to one S3 bucket. Grounded on
// internal/repository/objectstore/s3_object_repository.go's
// Upload method (manager.Uploader over an io.Reader), narrowed to the
// single Put operation this sink needs — archiving never reads back.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink builds an S3Sink bound to an already-configured client.
func NewS3Sink(client *s3.Client, bucket string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket}
}

func (s *S3Sink) Platform() string { return "s3" }

func (s *S3Sink) Put(ctx context.Context, key string, data []byte) error {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// GCSSink archives shards to one GCS bucket. Grounded on
// internal/repository/objectstore/gcs_object_repository.go's Upload
// method shape.
type GCSSink struct {
	client *storage.Client
	bucket string
}

// NewGCSSink builds a GCSSink bound to an already-configured client.
func NewGCSSink(client *storage.Client, bucket string) *GCSSink {
	return &GCSSink{client: client, bucket: bucket}
}

func (g *GCSSink) Platform() string { return "gcs" }

func (g *GCSSink) Put(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("archive: gcs put %s/%s: %w", g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: gcs put %s/%s: closing writer: %w", g.bucket, key, err)
	}
	return nil
}

// ParseBucketSpec parses "s3://bucket" or "gs://bucket" into a
// platform and bucket name, matching the URI half of
// objectstore.ParseBucketConfig (the colon-shorthand form is dropped
// here — this is CLI/config input, not a historical compatibility
// surface).
func ParseBucketSpec(spec string) (platform, bucket string, err error) {
	spec = strings.TrimSpace(spec)
	parts := strings.SplitN(spec, "://", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("archive: invalid bucket spec %q, want s3://bucket or gs://bucket", spec)
	}
	switch strings.ToLower(parts[0]) {
	case "s3":
		return "s3", parts[1], nil
	case "gs":
		return "gcs", parts[1], nil
	default:
		return "", "", fmt.Errorf("archive: unsupported scheme %q", parts[0])
	}
}

// PutAll archives every shard, one after another, logging (never returning)
// individual failures — archival is best-effort by design.
func PutAll(ctx context.Context, sink Sink, filename string, shards map[int][]byte) {
	for id, data := range shards {
		key := fmt.Sprintf("%s_shard_%d", filename, id)
		if err := sink.Put(ctx, key, data); err != nil {
			log.Warnf("archive: %s failed for %s: %v", sink.Platform(), key, err)
		}
	}
}
