package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mcoot/ratinggame/internal/imagehost"
)

// Config holds S3 bucket and credential settings
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible services such as MinIO
	AccessKey string
	SecretKey string

	// PublicURL is the base URL objects are served from. When empty the URL is derived
	// from the endpoint or the AWS virtual-hosted bucket address.
	PublicURL    string
	UsePathStyle bool
}

// Host uploads images to an S3 bucket
type Host struct {
	client *s3.Client
	cfg    Config
}

// New creates an S3-backed host. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Host, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Host{client: client, cfg: cfg}, nil
}

// Ensure Host implements the interface
var _ imagehost.Host = (*Host)(nil)

func (h *Host) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return h.URL(key), nil
}

func (h *Host) Delete(ctx context.Context, key string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

// URL returns the public address of key
func (h *Host) URL(key string) string {
	switch {
	case h.cfg.PublicURL != "":
		return strings.TrimRight(h.cfg.PublicURL, "/") + "/" + key
	case h.cfg.Endpoint != "" && h.cfg.UsePathStyle:
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(h.cfg.Endpoint, "/"), h.cfg.Bucket, key)
	case h.cfg.Endpoint != "":
		endpoint := strings.TrimRight(h.cfg.Endpoint, "/")
		scheme, rest, found := strings.Cut(endpoint, "://")
		if !found {
			return fmt.Sprintf("%s.%s/%s", h.cfg.Bucket, endpoint, key)
		}
		return fmt.Sprintf("%s://%s.%s/%s", scheme, h.cfg.Bucket, rest, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.cfg.Bucket, h.cfg.Region, key)
	}
}
