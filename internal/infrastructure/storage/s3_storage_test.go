package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/config"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	return &s3.HeadBucketOutput{}, args.Error(0)
}

func (m *mockObjectAPI) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	return &s3.CreateBucketOutput{}, args.Error(0)
}

func (m *mockObjectAPI) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, in)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectsOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var testStorageConfig = config.StorageConfig{
	Enabled:       true,
	Bucket:        "wms-documents",
	KeyPrefix:     "/transactions/",
	PresignExpiry: 10 * time.Minute,
}

func newTestStore(t *testing.T, objects objectAPI) *S3DocumentStore {
	t.Helper()
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	bc := DefaultBreakerConfig()
	bc.ConsecutiveFailures = 2
	bc.Timeout = time.Hour
	store := newS3DocumentStore(objects, s3.NewPresignClient(client), testStorageConfig, bc, zap.NewNop())
	store.now = func() time.Time { return time.Date(2024, 2, 9, 8, 0, 0, 0, time.UTC) }
	return store
}

func TestNewS3DocumentStore_RequiresBucket(t *testing.T) {
	_, err := NewS3DocumentStore(context.Background(), config.StorageConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestPresignUpload(t *testing.T) {
	store := newTestStore(t, new(mockObjectAPI))

	resp, err := store.PresignUpload(context.Background(), "Delivery Note #12.JPG", "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "transactions/2024/02/"), resp.Key)
	assert.True(t, strings.HasSuffix(resp.Key, "-delivery-note--12.jpg"), resp.Key)
	assert.Equal(t, http.MethodPut, resp.Method)
	assert.Contains(t, resp.UploadURL, "http://localhost:9000/wms-documents/"+resp.Key)
	assert.Contains(t, resp.UploadURL, "X-Amz-Signature=")
	assert.Contains(t, resp.UploadURL, "X-Amz-Expires=600")
	assert.Equal(t, time.Date(2024, 2, 9, 8, 10, 0, 0, time.UTC), resp.ExpiresAt)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("batches keys", func(t *testing.T) {
		objects := new(mockObjectAPI)
		keys := make([]string, 1001)
		for i := range keys {
			keys[i] = fmt.Sprintf("transactions/2024/02/doc-%d.jpg", i)
		}
		objects.On("DeleteObjects", ctx, mock.MatchedBy(func(in *s3.DeleteObjectsInput) bool {
			return len(in.Delete.Objects) == 1000
		})).Return(&s3.DeleteObjectsOutput{}, nil).Once()
		objects.On("DeleteObjects", ctx, mock.MatchedBy(func(in *s3.DeleteObjectsInput) bool {
			return len(in.Delete.Objects) == 1 && aws.ToString(in.Delete.Objects[0].Key) == keys[1000]
		})).Return(&s3.DeleteObjectsOutput{}, nil).Once()

		require.NoError(t, newTestStore(t, objects).Delete(ctx, keys))
		objects.AssertExpectations(t)
	})

	t.Run("reports per-key failures", func(t *testing.T) {
		objects := new(mockObjectAPI)
		objects.On("DeleteObjects", ctx, mock.Anything).Return(&s3.DeleteObjectsOutput{
			Errors: []types.Error{{Key: aws.String("a.jpg"), Message: aws.String("Access Denied")}},
		}, nil)

		err := newTestStore(t, objects).Delete(ctx, []string{"a.jpg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a.jpg")
	})

	t.Run("no keys is a no-op", func(t *testing.T) {
		objects := new(mockObjectAPI)
		require.NoError(t, newTestStore(t, objects).Delete(ctx, nil))
		objects.AssertNotCalled(t, "DeleteObjects", mock.Anything, mock.Anything)
	})
}

func TestDelete_BreakerOpens(t *testing.T) {
	ctx := context.Background()
	objects := new(mockObjectAPI)
	objects.On("DeleteObjects", ctx, mock.Anything).Return(nil, errors.New("connection reset"))
	store := newTestStore(t, objects)

	for i := 0; i < 2; i++ {
		err := store.Delete(ctx, []string{"a.jpg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	}
	assert.Equal(t, gobreaker.StateOpen, store.breaker.state())

	err := store.Delete(ctx, []string{"a.jpg"})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeStorageUnavailable, de.Code)
	assert.True(t, de.Retryable)
	objects.AssertNumberOfCalls(t, "DeleteObjects", 2)
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		objects := new(mockObjectAPI)
		objects.On("HeadBucket", ctx, mock.Anything).Return(nil)
		require.NoError(t, newTestStore(t, objects).EnsureBucket(ctx))
		objects.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
	})

	t.Run("creates missing bucket", func(t *testing.T) {
		objects := new(mockObjectAPI)
		objects.On("HeadBucket", ctx, mock.Anything).Return(&types.NotFound{})
		objects.On("CreateBucket", ctx, mock.MatchedBy(func(in *s3.CreateBucketInput) bool {
			return aws.ToString(in.Bucket) == "wms-documents"
		})).Return(nil)
		require.NoError(t, newTestStore(t, objects).EnsureBucket(ctx))
		objects.AssertExpectations(t)
	})

	t.Run("other errors surface", func(t *testing.T) {
		objects := new(mockObjectAPI)
		objects.On("HeadBucket", ctx, mock.Anything).Return(errors.New("forbidden"))
		assert.Error(t, newTestStore(t, objects).EnsureBucket(ctx))
	})
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"photo.PNG":              "photo.png",
		"../../etc/passwd":       "passwd",
		`C:\scans\receipt 1.jpg`: "receipt-1.jpg",
		"":                       "document",
		"???":                    "document",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFileName(in), in)
	}
}
