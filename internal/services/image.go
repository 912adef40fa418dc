package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	appconfig "greekmatch-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	imagePrefix   = "profileImages"
	uploadExpires = 5 * time.Minute
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ImageStorage stores profile pictures in an S3 bucket
type ImageStorage struct {
	putter    objectPutter
	presigner objectPresigner
	bucket    string
	baseURL   string
}

// UploadURLRequest asks for a presigned upload
type UploadURLRequest struct {
	ContentType string `json:"content_type"`
}

// UploadURLResponse tells the client where to PUT the image and where it
// will be readable afterwards
type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// NewS3Client builds an S3 client. Static keys and a custom endpoint are
// optional; path-style addressing is used with a custom endpoint.
func NewS3Client(ctx context.Context, cfg appconfig.AWSConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
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
			o.UsePathStyle = true
		}
	}), nil
}

// NewImageStorage creates image storage over client. Public URLs use
// cfg.PublicBaseURL when set.
func NewImageStorage(client *s3.Client, cfg appconfig.AWSConfig) *ImageStorage {
	return newImageStorage(client, s3.NewPresignClient(client), cfg)
}

func newImageStorage(putter objectPutter, presigner objectPresigner, cfg appconfig.AWSConfig) *ImageStorage {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
	}
	return &ImageStorage{
		putter:    putter,
		presigner: presigner,
		bucket:    cfg.S3Bucket,
		baseURL:   base,
	}
}

// PresignUpload returns a short-lived PUT URL for a new profile image
func (s *ImageStorage) PresignUpload(ctx context.Context, userID, contentType string) (*UploadURLResponse, error) {
	contentType, err := imageContentType(contentType)
	if err != nil {
		return nil, err
	}

	key := newImageKey()
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"user-id": userID},
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadExpires
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadURLResponse{
		UploadURL: req.URL,
		ImageURL:  s.publicURL(key),
		Key:       key,
		ExpiresIn: int(uploadExpires.Seconds()),
	}, nil
}

// Upload stores body as a new profile image and returns its URL. body
// should be seekable so the payload can be signed over plain HTTP.
func (s *ImageStorage) Upload(ctx context.Context, userID, contentType string, body io.Reader) (string, error) {
	contentType, err := imageContentType(contentType)
	if err != nil {
		return "", err
	}

	key := newImageKey()
	_, err = s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"user-id": userID},
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	url := s.publicURL(key)
	log.Info().Str("user_id", userID).Str("key", key).Msg("Profile image uploaded")
	return url, nil
}

func (s *ImageStorage) publicURL(key string) string {
	return s.baseURL + "/" + key
}

func newImageKey() string {
	return fmt.Sprintf("%s/%s.jpg", imagePrefix, uuid.New().String())
}

func imageContentType(ct string) (string, error) {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return "image/jpeg", nil
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", invalid("content_type", "must be an image type")
	}
	return ct, nil
}
