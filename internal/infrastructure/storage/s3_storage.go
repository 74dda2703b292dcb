// Package storage keeps delivery document images in S3-compatible object
// storage. Clients upload directly with presigned PUT URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appstock "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/infrastructure/config"
)

// S3 caps DeleteObjects at 1000 keys per call
const maxDeleteBatch = 1000

type objectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3DocumentStore implements appstock.DocumentStore on any S3-compatible
// backend (AWS S3, MinIO, RustFS).
type S3DocumentStore struct {
	objects   objectAPI
	presign   presigner
	bucket    string
	keyPrefix string
	expiry    time.Duration
	breaker   *breaker
	logger    *zap.Logger
	now       func() time.Time
}

// NewS3DocumentStore builds the S3 client from configuration. No request
// is sent until the first call.
func NewS3DocumentStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3DocumentStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newS3DocumentStore(client, s3.NewPresignClient(client), cfg, DefaultBreakerConfig(), logger), nil
}

func newS3DocumentStore(objects objectAPI, p presigner, cfg config.StorageConfig, bc BreakerConfig, logger *zap.Logger) *S3DocumentStore {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3DocumentStore{
		objects:   objects,
		presign:   p,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		expiry:    expiry,
		breaker:   newBreaker(bc, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.objects.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating document bucket", zap.String("bucket", s.bucket))
	_, err = s.objects.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var alreadyOwned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &alreadyOwned) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PresignUpload implements appstock.DocumentStore
func (s *S3DocumentStore) PresignUpload(ctx context.Context, fileName, contentType string) (*appstock.DocumentUploadResponse, error) {
	key := s.objectKey(fileName)
	out, err := s.breaker.run(func() (any, error) {
		return s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		}, s3.WithPresignExpires(s.expiry))
	})
	if err != nil {
		return nil, fmt.Errorf("presign upload for %s: %w", key, err)
	}
	req := out.(*v4.PresignedHTTPRequest)
	return &appstock.DocumentUploadResponse{
		Key:       key,
		UploadURL: req.URL,
		Method:    req.Method,
		ExpiresAt: s.now().Add(s.expiry),
	}, nil
}

// Delete implements appstock.DocumentStore. Missing keys are not an error.
func (s *S3DocumentStore) Delete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.breaker.run(func() (any, error) {
			return s.objects.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
		})
		if err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
		if res := out.(*s3.DeleteObjectsOutput); len(res.Errors) > 0 {
			first := res.Errors[0]
			return fmt.Errorf("delete documents: %d failed, first %s: %s",
				len(res.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// objectKey builds prefix/yyyy/mm/<uuid>-<name>
func (s *S3DocumentStore) objectKey(fileName string) string {
	now := s.now().UTC()
	name := uuid.NewString() + "-" + sanitizeFileName(fileName)
	return path.Join(s.keyPrefix, now.Format("2006"), now.Format("01"), name)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "document"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}

var _ appstock.DocumentStore = (*S3DocumentStore)(nil)
