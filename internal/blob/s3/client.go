// Package s3blob is the archive store: monthly JSONL rollups of trades and
// signals land in one S3 bucket. The default deployment points at a local
// MinIO instance, so the client supports custom endpoints and path-style
// addressing alongside standard AWS S3.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// defaultRegion is used when the configuration leaves Region empty;
// MinIO and most S3-compatible stores accept it as-is.
const defaultRegion = "us-east-1"

// ClientConfig holds connection parameters for the archive bucket.
type ClientConfig struct {
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (e.g. "http://localhost:9000" for MinIO). Empty means AWS S3.
	Endpoint string

	// Region of the bucket. Defaults to us-east-1 when empty.
	Region string

	// Bucket receiving all archive objects.
	Bucket string

	// Static credentials.
	AccessKey string
	SecretKey string

	// UseSSL picks the scheme when Endpoint is given without one.
	UseSSL bool

	// ForcePathStyle puts the bucket in the path instead of the subdomain,
	// required by MinIO.
	ForcePathStyle bool
}

// Client wraps the SDK client together with the archive bucket name.
type Client struct {
	api    *s3.Client
	bucket string
}

// New connects to the configured object store. The connection is lazy;
// use Ping to verify the bucket is reachable.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := withScheme(cfg.Endpoint, cfg.UseSSL)
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		api:    s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Ping verifies the archive bucket exists and is accessible. It backs the
// "s3" entry of the health endpoint when archiving is enabled.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: bucket %s unreachable: %w", c.bucket, err)
	}
	return nil
}

// Close exists for symmetry with the other infrastructure clients; the SDK
// holds no resources needing teardown.
func (c *Client) Close() error {
	return nil
}

// S3 exposes the SDK client to the writer within this package.
func (c *Client) S3() *s3.Client {
	return c.api
}

// Bucket returns the archive bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// withScheme prepends http:// or https:// when the endpoint lacks a scheme.
func withScheme(endpoint string, useSSL bool) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
