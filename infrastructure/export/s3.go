package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// PutObjectAPI is the part of the S3 client the exporter uses
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads snapshots to an S3 compatible bucket
type S3Exporter struct {
	client      PutObjectAPI
	bucket      string
	keyTemplate string
	now         func() time.Time
}

// NewS3Client builds a client from an AWS config. A non-empty endpoint
// switches to path-style addressing for MinIO and similar servers.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(cfg, opts...)
}

// NewS3Exporter creates an exporter. keyTemplate may contain {timestamp}.
func NewS3Exporter(client PutObjectAPI, bucket, keyTemplate string) *S3Exporter {
	if keyTemplate == "" {
		keyTemplate = "snapshots/links-{timestamp}.jsonl"
	}
	return &S3Exporter{client: client, bucket: bucket, keyTemplate: keyTemplate, now: time.Now}
}

// Export uploads the links and returns the s3:// location
func (e *S3Exporter) Export(ctx context.Context, links []entities.ContentLink) (string, error) {
	data, err := encode(links)
	if err != nil {
		return "", err
	}
	key := expandKey(e.keyTemplate, e.now())

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", e.bucket, key), nil
}
