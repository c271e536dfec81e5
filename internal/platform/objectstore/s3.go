package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"roster/internal/platform/config"
	"roster/internal/sentinel"
)

// S3Store talks to MinIO or any S3-compatible endpoint using path-style addressing.
type S3Store struct {
	client *s3.Client
	region string
}

var _ Store = (*S3Store)(nil)

// NewS3 builds a client for cfg.Endpoint. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg config.ObjectStore) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}

	endpoint := EndpointURL(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})
	return &S3Store{client: client, region: cfg.Region}, nil
}

// EndpointURL turns a host:port endpoint into a URL, keeping an explicit scheme if present.
func EndpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if u, err := url.Parse(endpoint); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func (s *S3Store) List(ctx context.Context, bucket, ext string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Delimiter: aws.String("/"),
	})
	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, translate(err, bucket, "")
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if HasExtension(key, ext) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate(err, bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	err = translate(err, bucket, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return translate(err, bucket, key)
	}
	return nil
}

func (s *S3Store) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(bucket + "/" + url.PathEscape(srcKey)),
	})
	if err != nil {
		return translate(err, bucket, srcKey)
	}
	return nil
}

// Delete checks for the object first because S3 reports success for absent keys.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	ok, err := s.Exists(ctx, bucket, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return translate(err, bucket, key)
	}
	return nil
}

func (s *S3Store) EnsureBucket(ctx context.Context, bucket string) (BucketStatus, error) {
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	_, err := s.client.CreateBucket(ctx, in)
	if err == nil {
		return BucketCreated, nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return BucketAlreadyExists, nil
	}
	return BucketCreated, translate(err, bucket, "")
}

func (s *S3Store) Ping(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return translate(err, bucket, "")
	}
	return nil
}

// translate maps S3 API errors onto sentinel errors.
func translate(err error, bucket, key string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
		case "SlowDown", "ServiceUnavailable", "RequestTimeout":
			return fmt.Errorf("object %s/%s: %s: %w", bucket, key, apiErr.ErrorCode(), sentinel.ErrUnavailable)
		}
	}
	return fmt.Errorf("object %s/%s: %w", bucket, key, err)
}
