package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// Object is a downloaded S3 object.
type Object struct {
	Data        []byte
	ContentType string
}

// IS3Storage defines the S3 operations used for book cover images.
type IS3Storage interface {
	// GenerateCoverUploadURL returns a presigned PUT URL and the object key it writes to.
	GenerateCoverUploadURL(ctx context.Context, userID, bookID, filename, contentType string) (string, string, error)
	GetObject(ctx context.Context, key string) (*Object, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	// PublicURL is the address clients use to display the object.
	PublicURL(key string) string
	// OwnsKey reports whether key lies in the upload area of userID and bookID.
	OwnsKey(key, userID, bookID string) bool
}

type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AwsRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}, nil
}

func coverPrefix(userID, bookID string) string {
	return fmt.Sprintf("covers/%s/%s/", userID, bookID)
}

// sanitizeFilename keeps the extension and slugs the rest so keys stay URL-safe.
func sanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" {
		name = "cover"
	}
	return name + ext
}

func (s *s3Storage) GenerateCoverUploadURL(ctx context.Context, userID, bookID, filename, contentType string) (string, string, error) {
	objectKey := coverPrefix(userID, bookID) + uuid.NewString() + "_" + sanitizeFilename(filename)

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.cfg.ImageUploadURLTTL))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	log.Printf("Generated presigned upload URL for key %s", objectKey)
	return req.URL, objectKey, nil
}

func (s *s3Storage) GetObject(ctx context.Context, key string) (*Object, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return &Object{Data: data, ContentType: aws.ToString(out.ContentType)}, nil
}

func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) PublicURL(key string) string {
	return PublicURL(s.cfg.ImageBaseS3URL, key)
}

func (s *s3Storage) OwnsKey(key, userID, bookID string) bool {
	return OwnsKey(key, userID, bookID)
}

// PublicURL joins base and key with exactly one slash.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// OwnsKey reports whether key was issued for the given user and book.
func OwnsKey(key, userID, bookID string) bool {
	prefix := coverPrefix(userID, bookID)
	return strings.HasPrefix(key, prefix) && !strings.Contains(key[len(prefix):], "/") && !strings.Contains(key, "..")
}
