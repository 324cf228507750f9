// Package s3backup uploads wrapped-key snapshots to S3-compatible storage.
package s3backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/heartmarshall/keycustody-backend/internal/config"
	"github.com/heartmarshall/keycustody-backend/internal/domain"
	"github.com/heartmarshall/keycustody-backend/internal/service/keyring"
)

// objectPutter is the subset of *s3.Client the exporter needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter writes keyring snapshots as JSON objects.
type Exporter struct {
	client objectPutter
	bucket string
	prefix string
}

// NewExporter builds an S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewExporter(ctx context.Context, cfg config.BackupConfig) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("backup bucket not configured: %w", domain.ErrConfiguration)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newExporter(client, cfg.Bucket, cfg.Prefix), nil
}

func newExporter(client objectPutter, bucket, prefix string) *Exporter {
	return &Exporter{client: client, bucket: bucket, prefix: prefix}
}

// Export uploads snap and returns the object key it was stored under.
func (e *Exporter) Export(ctx context.Context, snap keyring.Snapshot) (string, error) {
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := ObjectKey(e.prefix, snap.TakenAt)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"master-key-fingerprint": snap.MasterKey,
			"records":                fmt.Sprint(len(snap.Records)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", e.bucket, key, err)
	}

	return key, nil
}

// ObjectKey is <prefix>/keyring-<UTC timestamp>.json.
func ObjectKey(prefix string, at time.Time) string {
	return path.Join(prefix, "keyring-"+at.UTC().Format("20060102T150405Z")+".json")
}
