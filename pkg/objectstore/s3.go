package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/verityux/verity/pkg/observability"
)

// DefaultPresignTTL is the lifetime of download URLs
const DefaultPresignTTL = time.Hour

// Store is the byte storage used for artifacts
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}

// Config holds S3 connection settings
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements Store on an S3 bucket
type S3Store struct {
	api     s3API
	presign presigner
	bucket  string
	metrics *observability.OTelMetrics
	tracer  trace.Tracer
}

// NewS3Client builds an S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3Store wraps client. metrics may be nil.
func NewS3Store(client *s3.Client, bucket string, metrics *observability.OTelMetrics) *S3Store {
	return &S3Store{
		api:     client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		metrics: metrics,
		tracer:  observability.Tracer(),
	}
}

// Open connects to the bucket described by cfg, creating it if missing
func Open(ctx context.Context, cfg Config, metrics *observability.OTelMetrics) (*S3Store, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := NewS3Store(client, cfg.Bucket, metrics)
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *S3Store) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "S3."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("s3.operation", op),
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", key),
		),
	)
}

func (s *S3Store) finish(ctx context.Context, span trace.Span, op string, start time.Time, size int64, err error) {
	s.metrics.RecordStorageOperation(ctx, op, time.Since(start), size, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Upload writes body under key. size may be -1 when unknown.
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (err error) {
	ctx, span := s.startSpan(ctx, "PutObject", key)
	start := time.Now()
	defer func() { s.finish(ctx, span, "PutObject", start, size, err) }()

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
		span.SetAttributes(attribute.Int64("content.size", size))
	}

	if _, err = s.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// PresignedGet returns a time-limited download URL for key
func (s *S3Store) PresignedGet(ctx context.Context, key string, ttl time.Duration) (url string, err error) {
	ctx, span := s.startSpan(ctx, "PresignGetObject", key)
	start := time.Now()
	defer func() { s.finish(ctx, span, "PresignGetObject", start, 0, err) }()

	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteObject", key)
	start := time.Now()
	defer func() { s.finish(ctx, span, "DeleteObject", start, 0, err) }()

	_, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	_, err = s.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && !isBucketAlreadyExists(err) {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	observability.FromContext(ctx).WithField("bucket", s.bucket).Info("Created object store bucket")
	return nil
}

func isBucketAlreadyExists(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	return errors.As(err, &owned) || errors.As(err, &exists)
}
