package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/reelnest/backend/internal/config"
)

const (
	metaOwnerID      = "owner-id"
	metaOriginalName = "original-name"
	metaContentType  = "content-type"

	defaultPartSize = 5 * 1024 * 1024
)

// S3Storage implements BlobStore backed by an S3-compatible service.
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Storage configures a client and uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	partSize := cfg.PartSize
	if partSize < manager.MinUploadPartSize {
		partSize = defaultPartSize
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.LeavePartsOnError = false
	})

	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
	}, nil
}

// Put streams r into the bucket under id.
func (s *S3Storage) Put(ctx context.Context, id string, r io.Reader, meta Metadata) error {
	key, err := objectKey(id)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
		Metadata: map[string]string{
			metaOwnerID:      meta.OwnerID,
			metaOriginalName: meta.OriginalName,
			metaContentType:  meta.ContentType,
		},
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 storage upload %s: %w", key, err)
	}
	return nil
}

// Open returns a reader over the object stored under id. The caller closes it.
func (s *S3Storage) Open(ctx context.Context, id string) (io.ReadCloser, ObjectInfo, error) {
	key, err := objectKey(id)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("s3 storage get %s: %w", key, err)
	}

	info := ObjectInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		Metadata: Metadata{
			OwnerID:      out.Metadata[metaOwnerID],
			OriginalName: out.Metadata[metaOriginalName],
			ContentType:  out.Metadata[metaContentType],
		},
	}
	return out.Body, info, nil
}

// Delete removes the object stored under id. Deleting a missing object is not an error.
func (s *S3Storage) Delete(ctx context.Context, id string) error {
	key, err := objectKey(id)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", key, err)
	}
	return nil
}

func objectKey(id string) (string, error) {
	key := strings.TrimLeft(strings.TrimSpace(id), "/")
	if key == "" {
		return "", errors.New("s3 storage: empty key")
	}
	return "videos/" + key, nil
}

var _ BlobStore = (*S3Storage)(nil)
