// Package s3 copies backup snapshots to an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

type Uploader struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewUploader(cfg Config) (*Uploader, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewUploaderWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

func NewUploaderWithClient(client s3iface.S3API, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix}
}

// UploadDir puts every regular file directly under dir at
// {prefix}/{base(dir)}/{name} and returns the keys written.
func (u *Uploader) UploadDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var keys []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		key := path.Join(u.prefix, filepath.Base(dir), e.Name())
		if err := u.uploadFile(ctx, filepath.Join(dir, e.Name()), key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	slog.Info("Backup uploaded", "bucket", u.bucket, "files", len(keys))
	return keys, nil
}

func (u *Uploader) uploadFile(ctx context.Context, src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(src)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	slog.Debug("Uploaded backup file", "key", key)
	return nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
