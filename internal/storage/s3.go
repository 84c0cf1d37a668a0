package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/vcabral19/json-placeholder-elt/internal/config"
)

// Provider identifies the flavour of S3 behind the archive endpoint.
type Provider string

const (
	ProviderS3           Provider = "s3"
	ProviderR2           Provider = "r2"
	ProviderS3Compatible Provider = "s3compatible"
)

const defaultRegion = "us-east-1"

// S3Storage mirrors raw batches into one bucket.
type S3Storage struct {
	client   *s3.Client
	bucket   string
	region   string
	provider Provider
}

// NewStorage builds the archive mirror from cfg. An empty endpoint targets
// AWS in cfg.Region; any other endpoint is addressed path-style.
func NewStorage(ctx context.Context, cfg config.ArchiveConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	provider := Provider(cfg.Type)
	if provider == "" {
		provider = detectProvider(cfg.Endpoint)
	}
	region := cfg.Region
	switch {
	case region != "":
	case provider == ProviderR2:
		region = "auto"
	default:
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	base := endpointURL(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if base != "" {
			o.BaseEndpoint = aws.String(base)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{client: client, bucket: cfg.Bucket, region: region, provider: provider}, nil
}

func detectProvider(endpoint string) Provider {
	endpoint = strings.ToLower(endpoint)
	switch {
	case endpoint == "", strings.Contains(endpoint, "amazonaws.com"):
		return ProviderS3
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return ProviderR2
	default:
		return ProviderS3Compatible
	}
}

// endpointURL reduces endpoint to scheme://host. A bare host gets https
// when useSSL is set and http otherwise; an explicit scheme is kept.
func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// EnsureBucket creates the bucket when it is missing. R2 buckets must be
// created out of band.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if s.provider == ProviderR2 {
		return fmt.Errorf("bucket %s does not exist; create it in the R2 dashboard", s.bucket)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if s.provider == ProviderS3 && s.region != defaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload writes one object.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is already in the bucket.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
}

// isNotFound matches both typed S3 errors and bare 404 responses, which
// HEAD requests return without a body.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	var noKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noBucket) || errors.As(err, &noKey) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
