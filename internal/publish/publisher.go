// Package publish uploads a finished dump to S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/harrison/planflat/internal/flatten"
)

// Config describes the upload target.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// objectStore is the subset of *minio.Client the publisher needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads dumps. The bucket is checked (and created) once per
// Publisher.
type Publisher struct {
	client   objectStore
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// Result summarizes one upload.
type Result struct {
	Bucket  string
	Prefix  string
	Objects int
	Bytes   int64
}

// Location returns the s3:// URL of the uploaded dump.
func (r *Result) Location() string {
	return fmt.Sprintf("s3://%s/%s/", r.Bucket, r.Prefix)
}

// New validates cfg and builds a minio-backed Publisher. No network
// traffic happens until the first Publish.
func New(cfg Config) (*Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return newPublisher(client, bucket, region, cfg.Prefix), nil
}

func newPublisher(client objectStore, bucket, region, prefix string) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = err
			return
		}
		if exists {
			return
		}
		p.initErr = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	})
	return p.initErr
}

// Publish uploads every mapped file from dir to
// <prefix>/<plan>/<runID>/<flat name>. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, plan, runID, dir string, files []flatten.Mapping) (*Result, error) {
	plan = strings.TrimSpace(plan)
	runID = strings.TrimSpace(runID)
	if plan == "" {
		return nil, fmt.Errorf("plan is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	result := &Result{Bucket: p.bucket, Prefix: runPrefix(p.prefix, plan, runID)}
	for _, m := range files {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("publish interrupted after %d of %d files: %w", result.Objects, len(files), err)
		}

		key := objectKey(p.prefix, plan, runID, m.FlatName)
		info, err := p.client.FPutObject(ctx, p.bucket, key, filepath.Join(dir, m.FlatName), minio.PutObjectOptions{
			ContentType: contentType(m.FlatName),
		})
		if err != nil {
			return result, fmt.Errorf("upload %s: %w", m.FlatName, err)
		}
		result.Objects++
		result.Bytes += info.Size
	}
	return result, nil
}

func runPrefix(prefix, plan, runID string) string {
	if prefix == "" {
		return path.Join(plan, runID)
	}
	return path.Join(prefix, plan, runID)
}

func objectKey(prefix, plan, runID, flatName string) string {
	return runPrefix(prefix, plan, runID) + "/" + strings.TrimLeft(flatName, "/")
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
