package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const (
	MaxImageSize  = 10 << 20
	presignExpiry = 15 * time.Minute
	imageFolder   = "products"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrFileTooLarge    = errors.New("image exceeds maximum size")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageStorage stores image bytes and hands back the public URL that the
// catalog records.
type ImageStorage interface {
	Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*StoredObject, error)
	PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error)
}

type StoredObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	FileURL   string    `json:"file_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type putPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Storage struct {
	client    objectPutter
	presigner putPresigner
	bucket    string
	region    string
	baseURL   string
	now       func() time.Time
}

func NewS3Storage(ctx context.Context, region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	// Static keys when configured, otherwise the default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			logger.Warn("Failed to load default AWS config, using region only", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = aws.Config{Region: region}
		}
	}

	client := s3.NewFromConfig(cfg)
	return newS3Storage(client, s3.NewPresignClient(client), bucket, region, baseURL)
}

func newS3Storage(client objectPutter, presigner putPresigner, bucket, region, baseURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		region:    region,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}
}

func (s *S3Storage) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*StoredObject, error) {
	if err := ValidateImage(contentType, size); err != nil {
		return nil, err
	}
	key := s.newKey(filename, contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		logger.Error("Failed to upload image", err, map[string]interface{}{
			"key": key,
		})
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	logger.Info("Image uploaded", map[string]interface{}{
		"key":  key,
		"size": size,
	})
	return &StoredObject{Key: key, URL: s.publicURL(key)}, nil
}

// PresignUpload returns a PUT URL valid for presignExpiry so clients can
// upload directly to the bucket.
func (s *S3Storage) PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	if err := ValidateImage(contentType, 0); err != nil {
		return nil, err
	}
	key := s.newKey(filename, contentType)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		FileURL:   s.publicURL(key),
		Key:       key,
		ExpiresAt: s.now().Add(presignExpiry),
	}, nil
}

// ValidateImage checks the content type and, when size is positive, the size.
func ValidateImage(contentType string, size int64) error {
	if _, ok := allowedImageTypes[contentType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if size > MaxImageSize {
		return fmt.Errorf("%w of %d bytes", ErrFileTooLarge, MaxImageSize)
	}
	return nil
}

func (s *S3Storage) newKey(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = allowedImageTypes[contentType]
	}
	return fmt.Sprintf("%s/%s/%s%s", imageFolder, s.now().UTC().Format("2006/01"), uuid.NewString(), ext)
}

func (s *S3Storage) publicURL(key string) string {
	if s.baseURL != "" {
		// CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
