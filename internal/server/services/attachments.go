package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophmail/internal/common"
	sc "github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/google/uuid"
)

const (
	uploadURLValidity   = 15 * time.Minute
	maxFilenameLength   = 128
	defaultUploadMethod = "PUT"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Presigner signs S3 PUT requests. *s3.PresignClient satisfies it.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// NewS3Presigner builds a presign client for the configured S3-compatible
// endpoint. Static credentials are used when an access key is configured,
// otherwise the default AWS credential chain applies.
func NewS3Presigner(ctx context.Context, cfg *sc.Config) (*s3.PresignClient, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return s3.NewPresignClient(client), nil
}

// UploadTarget tells the client where and how to upload an attachment.
type UploadTarget struct {
	Key       string            `json:"key"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// AttachmentService hands out presigned upload URLs for mail attachments.
type AttachmentService struct {
	presigner Presigner
	bucket    string
	now       func() time.Time
}

func NewAttachmentService(presigner Presigner, bucket string) *AttachmentService {
	return &AttachmentService{presigner: presigner, bucket: bucket, now: time.Now}
}

// UploadURL returns a presigned PUT valid for 15 minutes under
// attachments/<userID>/<yyyy>/<mm>/<dd>/<uuid>/<filename>.
func (s *AttachmentService) UploadURL(ctx context.Context, userID, filename, contentType string) (*UploadTarget, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	key := s.storageKey(userID, name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	contentType = strings.TrimSpace(contentType)
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presigner.PresignPutObject(ctx, in, s3.WithPresignExpires(uploadURLValidity))
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	method := req.Method
	if method == "" {
		method = defaultUploadMethod
	}

	target := &UploadTarget{
		Key:       key,
		URL:       req.URL,
		Method:    method,
		ExpiresAt: s.now().Add(uploadURLValidity),
	}
	if contentType != "" {
		target.Headers = map[string]string{"Content-Type": contentType}
	}
	return target, nil
}

func (s *AttachmentService) storageKey(userID, filename string) string {
	d := s.now().UTC()
	return fmt.Sprintf("attachments/%s/%04d/%02d/%02d/%s/%s", userID, d.Year(), int(d.Month()), d.Day(), uuid.New(), filename)
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so the result is safe as an object key segment.
func sanitizeFilename(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxFilenameLength {
		clean = clean[len(clean)-maxFilenameLength:]
	}
	if clean == "" || strings.Trim(clean, "_") == "" {
		return "", fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	return clean, nil
}
