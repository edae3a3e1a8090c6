package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophmail/internal/common"
	sc "github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	in      *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.in = in
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://s3.example/" + aws.ToString(in.Key) + "?X-Amz-Signature=abc", Method: "PUT"}, nil
}

func TestUploadURL(t *testing.T) {
	p := &fakePresigner{}
	s := NewAttachmentService(p, "attachments")
	s.now = func() time.Time { return time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) }

	target, err := s.UploadURL(context.Background(), "u1", "../../etc/My Report (final).pdf", "application/pdf")
	require.NoError(t, err)

	keyRe := regexp.MustCompile(`^attachments/u1/2026/03/07/[0-9a-f-]{36}/My_Report__final_.pdf$`)
	assert.Regexp(t, keyRe, target.Key)
	assert.Equal(t, "PUT", target.Method)
	assert.True(t, strings.HasPrefix(target.URL, "https://s3.example/attachments/u1/"))
	assert.Equal(t, map[string]string{"Content-Type": "application/pdf"}, target.Headers)
	assert.Equal(t, s.now().Add(15*time.Minute), target.ExpiresAt)

	assert.Equal(t, "attachments", aws.ToString(p.in.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(p.in.ContentType))
	assert.Equal(t, 15*time.Minute, p.expires)
}

func TestUploadURL_Errors(t *testing.T) {
	p := &fakePresigner{}
	s := NewAttachmentService(p, "b")

	for _, name := range []string{"", "  ", "/", "..", "???"} {
		_, err := s.UploadURL(context.Background(), "u1", name, "")
		assert.ErrorIs(t, err, common.ErrorValidation, name)
	}

	p.err = errors.New("no credentials")
	_, err := s.UploadURL(context.Background(), "u1", "a.txt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func Test_sanitizeFilename(t *testing.T) {
	got, err := sanitizeFilename(`C:\Users\bob\photo.jpg`)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", got)

	got, err = sanitizeFilename(".hidden")
	require.NoError(t, err)
	assert.Equal(t, "hidden", got)

	got, err = sanitizeFilename(strings.Repeat("a", 200) + ".txt")
	require.NoError(t, err)
	assert.Len(t, got, maxFilenameLength)
	assert.True(t, strings.HasSuffix(got, ".txt"))
}

func TestNewS3Presigner(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	cfg := &sc.Config{
		S3Region:       "eu-west-1",
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "eu-west-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatalf("static credentials not applied")
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(c aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(c, optFns...)
	}

	pc, err := NewS3Presigner(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, pc)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Presigner(context.Background(), cfg)
	assert.EqualError(t, err, "load-fail")
}
