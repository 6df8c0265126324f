package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"github.com/solovoro/solovoro-api/pkg/retry"
	"go.uber.org/zap"
)

const defaultRegion = "us-east-1"

// maxObjectBytes caps how much of an object is read into memory.
const maxObjectBytes = 16 << 20

// Options configures an S3-compatible bucket. Endpoint is optional and
// switches the client to path-style addressing (MinIO, R2, etc.).
type Options struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Object is a downloaded object with the metadata needed for change detection.
type Object struct {
	Body         []byte
	ETag         string
	LastModified time.Time
}

// StorageClient reads objects from an S3-compatible bucket.
type StorageClient struct {
	s3Client    *s3.Client
	bucketName  string
	retryConfig retry.Config
}

// NewStorageClient creates a new S3 client. Static credentials are used
// when both keys are set, otherwise the SDK's anonymous access applies.
func NewStorageClient(opts Options) (*StorageClient, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	s3Opts := s3.Options{
		Region:  region,
		Retryer: aws.NopRetryer{},
	}
	if opts.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(opts.Endpoint)
		s3Opts.UsePathStyle = true
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		s3Opts.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
	} else {
		s3Opts.Credentials = aws.AnonymousCredentials{}
	}

	logger.Info("Object storage client initialized",
		zap.String("bucket", opts.Bucket),
		zap.String("endpoint", opts.Endpoint),
		zap.String("region", region),
	)

	return &StorageClient{
		s3Client:    s3.New(s3Opts),
		bucketName:  opts.Bucket,
		retryConfig: retry.ObjectStoreConfig(),
	}, nil
}

// GetObject downloads key. A missing key returns apperrors.ErrNotFound and
// is not retried.
func (s *StorageClient) GetObject(ctx context.Context, key string) (*Object, error) {
	start := time.Now()
	operation := "getObject"

	obj, err := retry.DoWithResult(ctx, s.retryConfig, "objectstore.GetObject", func() (*Object, error) {
		return s.getObject(ctx, key)
	})

	duration := metrics.MeasureDuration(start)
	if err != nil {
		metrics.StorageRequestDuration.WithLabelValues(operation, "error").Observe(duration)
		metrics.StorageRequestTotal.WithLabelValues(operation, "error").Inc()
		logger.LogAPICall(ctx, "object_storage", operation, "error", duration,
			zap.Error(err),
			zap.String("key", key),
		)
		return nil, err
	}

	metrics.StorageRequestDuration.WithLabelValues(operation, "success").Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(operation, "success").Inc()
	logger.LogAPICall(ctx, "object_storage", operation, "success", duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(obj.Body)),
	)

	return obj, nil
}

func (s *StorageClient) getObject(ctx context.Context, key string) (*Object, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, retry.Permanent(apperrors.NotFoundError("object " + key))
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if len(body) > maxObjectBytes {
		return nil, retry.Permanent(fmt.Errorf("object %s exceeds %d bytes", key, maxObjectBytes))
	}

	obj := &Object{
		Body: body,
		ETag: aws.ToString(out.ETag),
	}
	if out.LastModified != nil {
		obj.LastModified = out.LastModified.UTC()
	}
	return obj, nil
}
