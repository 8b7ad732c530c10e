// Package s3 implements port.BlobStore on Amazon S3 and S3-compatible stores.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/port"
)

type blobStore struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewBlobStore returns a store bound to cfg.Bucket. A custom endpoint
// switches to path-style addressing for MinIO and LocalStack.
func NewBlobStore(ctx context.Context, cfg *config.S3Config) (port.BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3.NewBlobStore: bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3.NewBlobStore: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &blobStore{bucket: cfg.Bucket, client: client, uploader: manager.NewUploader(client)}, nil
}

func (b *blobStore) Put(ctx context.Context, obj port.BlobObject) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(obj.Key),
		Body:        bytes.NewReader(obj.Body),
		ContentType: aws.String(obj.ContentType),
		Metadata:    obj.Metadata,
	})
	if err != nil {
		return fmt.Errorf("s3.BlobStore.Put %s: %w", obj.Key, err)
	}
	return nil
}

func (b *blobStore) Get(ctx context.Context, key string) (*port.BlobObject, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("s3.BlobStore.Get %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3.BlobStore.Get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3.BlobStore.Get %s: read body: %w", key, err)
	}
	return &port.BlobObject{
		Key:         key,
		Body:        body,
		ContentType: aws.ToString(out.ContentType),
		Metadata:    out.Metadata,
	}, nil
}
