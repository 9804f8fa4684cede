package upload

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// S3Config configures the S3-backed uploader. Endpoint and path-style
// addressing support MinIO and other S3-compatible stores in local setups.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	AccessKey    string `json:"accessKey,omitempty" yaml:"accessKey,omitempty"`
	SecretKey    string `json:"secretKey,omitempty" yaml:"secretKey,omitempty"`
	Endpoint     string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty" yaml:"usePathStyle,omitempty"`

	// PublicBaseURL overrides the URL prefix recorded in upload metadata
	// (e.g. a CDN domain). Defaults to the virtual-hosted S3 URL.
	PublicBaseURL string `json:"publicBaseUrl,omitempty" yaml:"publicBaseUrl,omitempty"`
}

// S3Uploader stores file parts in an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Uploader creates an uploader from the given configuration. Static
// credentials are used when provided; otherwise the default AWS credential
// chain applies.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, cfg: cfg}, nil
}

// Upload stores one file part and returns its metadata.
func (u *S3Uploader) Upload(ctx context.Context, in Input) (*mockapi.UploadedFile, error) {
	key := fmt.Sprintf("uploads/%s/%s", uuid.NewString(), in.Filename)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(in.Data),
		ContentType: aws.String(in.ContentType),
		Metadata: map[string]string{
			"field-name":    in.FieldName,
			"original-name": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %q to s3: %w", in.Filename, err)
	}

	url := u.publicURL(key)
	return &mockapi.UploadedFile{
		FieldName:    in.FieldName,
		FileType:     in.ContentType,
		FileName:     in.Filename,
		OriginalName: in.Filename,
		URL:          url,
		SecureURL:    url,
		PublicID:     key,
		Format:       formatOf(in.Filename),
		ResourceType: resourceTypeOf(in.FieldType),
		FileSize:     int64(len(in.Data)),
		UploadedAt:   time.Now().UTC(),
	}, nil
}

func (u *S3Uploader) publicURL(key string) string {
	if u.cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", u.cfg.PublicBaseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
}
