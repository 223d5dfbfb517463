package objectstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeS3 struct {
	objects      map[string][]byte
	contentTypes map[string]string
	bucketExists bool
	headErr      error
	putErr       error
	createErr    error
	created      int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}, bucketExists: true}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.contentTypes[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func newTestStore(api s3API) *S3Store {
	return &S3Store{api: api, bucket: "audio-recordings", tracer: noop.NewTracerProvider().Tracer("test")}
}

func TestUploadAndDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store := newTestStore(api)

	err := store.Upload(ctx, "interviews/1/audio/a.wav", strings.NewReader("RIFF"), 4, "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), api.objects["interviews/1/audio/a.wav"])
	assert.Equal(t, "audio/wav", api.contentTypes["interviews/1/audio/a.wav"])

	require.NoError(t, store.Delete(ctx, "interviews/1/audio/a.wav"))
	assert.Empty(t, api.objects)
}

func TestUploadError(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("connection reset")
	store := newTestStore(api)

	err := store.Upload(context.Background(), "k", strings.NewReader("x"), -1, "audio/wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload object k")
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		api := newFakeS3()
		require.NoError(t, newTestStore(api).EnsureBucket(ctx))
		assert.Zero(t, api.created)
	})

	t.Run("created when missing", func(t *testing.T) {
		api := newFakeS3()
		api.bucketExists = false
		require.NoError(t, newTestStore(api).EnsureBucket(ctx))
		assert.Equal(t, 1, api.created)
	})

	t.Run("lost creation race", func(t *testing.T) {
		api := newFakeS3()
		api.bucketExists = false
		api.createErr = &types.BucketAlreadyOwnedByYou{}
		require.NoError(t, newTestStore(api).EnsureBucket(ctx))
	})

	t.Run("head failure", func(t *testing.T) {
		api := newFakeS3()
		api.headErr = errors.New("forbidden")
		err := newTestStore(api).EnsureBucket(ctx)
		require.Error(t, err)
		assert.Zero(t, api.created)
	})
}

func TestHealthCheck(t *testing.T) {
	api := newFakeS3()
	store := newTestStore(api)
	assert.NoError(t, store.HealthCheck(context.Background()))

	api.headErr = errors.New("timeout")
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestPresignedGet(t *testing.T) {
	ctx := context.Background()
	client, err := NewS3Client(ctx, Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	store := NewS3Store(client, "audio-recordings", nil)

	raw, err := store.PresignedGet(ctx, "interviews/7/audio/recording.wav", 0)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/audio-recordings/interviews/7/audio/recording.wav", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	raw, err = store.PresignedGet(ctx, "k", 5*time.Minute)
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
}
