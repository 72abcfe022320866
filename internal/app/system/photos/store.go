package photos

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists validated photos and returns the values to save on the
// issue document.
type Store interface {
	Persist(ctx context.Context, kind Kind, photos []string) ([]string, error)
	// PublicBase is the URL prefix of remotely stored photos, or "" when
	// photos are kept inline.
	PublicBase() string
}

// Inline keeps data URLs on the document as-is.
type Inline struct{}

func (Inline) Persist(_ context.Context, _ Kind, photos []string) ([]string, error) {
	out := make([]string, len(photos))
	copy(out, photos)
	return out, nil
}

func (Inline) PublicBase() string { return "" }

// S3Config configures S3 (or any S3-compatible) photo storage.
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional, for S3-compatible providers
	AccessKey string
	SecretKey string
	PublicURL string // base URL objects are served from
	Prefix    string // key prefix, e.g. "photos/"
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads data URL photos to a bucket and stores their public URLs.
type S3 struct {
	client    objectPutter
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	publicURL string
	log       *zap.Logger
}

// NewS3 builds an S3 store from static credentials.
func NewS3(cfg S3Config, logger *zap.Logger) *S3 {
	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	return &S3{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		log:       logger,
	}
}

// newS3WithPutter is used by tests to swap the upload client.
func newS3WithPutter(p objectPutter, bucket, prefix, publicURL string) *S3 {
	return &S3{client: p, bucket: bucket, prefix: prefix, publicURL: strings.TrimRight(publicURL, "/"), log: zap.NewNop()}
}

func (s *S3) PublicBase() string { return s.publicURL }

// Persist uploads every data URL photo and passes already-uploaded URLs
// through unchanged.
func (s *S3) Persist(ctx context.Context, kind Kind, photos []string) ([]string, error) {
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		if !strings.HasPrefix(p, "data:") {
			out = append(out, p)
			continue
		}
		ct, data, err := ParseDataURL(p)
		if err != nil {
			return nil, err
		}
		key := s.objectKey(kind, ct)
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(ct),
		})
		if err != nil {
			return nil, fmt.Errorf("upload photo: %w", err)
		}
		s.log.Debug("photo uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
		out = append(out, s.publicURL+"/"+key)
	}
	return out, nil
}

// PresignedUpload is returned to clients that upload directly to storage.
type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presign returns a PUT URL valid for ttl for one photo of contentType.
func (s *S3) Presign(ctx context.Context, kind Kind, contentType string, ttl time.Duration) (PresignedUpload, error) {
	if _, ok := Extension(contentType); !ok {
		return PresignedUpload{}, invalid("unsupported image type %q", contentType)
	}
	if s.presigner == nil {
		return PresignedUpload{}, fmt.Errorf("presigning not configured")
	}
	key := s.objectKey(kind, contentType)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign upload: %w", err)
	}
	return PresignedUpload{
		UploadURL: req.URL,
		PublicURL: s.publicURL + "/" + key,
		Key:       key,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (s *S3) objectKey(kind Kind, contentType string) string {
	ext, _ := Extension(contentType)
	return fmt.Sprintf("%s%s/%s.%s", s.prefix, kind, uuid.NewString(), ext)
}
