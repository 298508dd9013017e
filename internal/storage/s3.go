package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/wallet"
)

const (
	defaultS3Concurrency = 4
	metaOriginalName     = "original-name"
	metaPayer            = "payer"
)

// S3Backend stores files in an S3 compatible bucket.
type S3Backend struct {
	client *s3.Client
	config *S3Config
	payer  wallet.Signer

	mu          sync.Mutex
	bucketReady bool
}

func newS3Backend(ctx context.Context, cfg *S3Config, payer wallet.Signer) (*S3Backend, error) {
	// a buildable client keeps AWS_CA_BUNDLE and ca_bundle working
	httpClient := awshttp.NewBuildableClient().
		WithTimeout(5 * time.Minute).
		WithTransportOptions(func(tr *http.Transport) {
			tr.Proxy = http.ProxyFromEnvironment
			tr.MaxIdleConns = 100
			tr.MaxIdleConnsPerHost = 32
			tr.IdleConnTimeout = 90 * time.Second
			tr.TLSHandshakeTimeout = 10 * time.Second
			tr.ExpectContinueTimeout = 1 * time.Second
			tr.ForceAttemptHTTP2 = true
		})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, &ConfigurationError{Backend: KindS3, Err: fmt.Errorf("load aws config: %w", err)}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UseAccelerate {
			o.UseAccelerate = true
		}
		// S3 compatible stores reject the newer default checksum trailers
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	slog.Debug("s3 backend", "bucket", cfg.BucketName, "region", cfg.Region, "endpoint", cfg.Endpoint, "accessKey", utils.MaskSecret(cfg.AccessKey))
	return &S3Backend{
		client: client,
		config: cfg,
		payer:  payer,
	}, nil
}

func (b *S3Backend) Kind() Kind { return KindS3 }

func (b *S3Backend) Upload(ctx context.Context, file *genericfile.File, opts *UploadOptions) (string, error) {
	if err := b.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := b.objectKey(file)
	metadata := map[string]string{
		metaOriginalName: url.PathEscape(file.Name()),
	}
	if b.payer != nil {
		metadata[metaPayer] = b.payer.Address()
	}

	opts.progress(0)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.config.BucketName),
		Key:           aws.String(key),
		Body:          file.Reader(),
		ContentLength: aws.Int64(file.Size()),
		ContentType:   aws.String(file.ContentType()),
		Metadata:      metadata,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	opts.progress(100)

	slog.Debug("s3 put object", "bucket", b.config.BucketName, "key", key, "size", file.Size())
	return b.objectURL(key), nil
}

func (b *S3Backend) UploadMany(ctx context.Context, files []*genericfile.File, opts *UploadOptions) ([]string, error) {
	limit := b.config.Concurrency
	if limit == 0 {
		limit = defaultS3Concurrency
	}
	return uploadAll(ctx, files, limit, opts, b.Upload)
}

func (b *S3Backend) UploadJSON(ctx context.Context, v any, opts *UploadOptions) (string, error) {
	return uploadJSON(ctx, b, v, opts)
}

// ensureBucket provisions the bucket once per backend. Without create_bucket the
// bucket is assumed to exist.
func (b *S3Backend) ensureBucket(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bucketReady || !b.config.CreateBucket {
		return nil
	}

	bucket := aws.String(b.config.BucketName)
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: bucket})
	if err == nil {
		b.bucketReady = true
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("head bucket %q: %w", b.config.BucketName, err)
	}

	input := &s3.CreateBucketInput{Bucket: bucket}
	if b.config.Region != "" && b.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket %q: %w", b.config.BucketName, err)
	}

	slog.Info("s3 bucket created", "bucket", b.config.BucketName, "region", b.config.Region)
	b.bucketReady = true
	return nil
}

func (b *S3Backend) objectKey(file *genericfile.File) string {
	if b.config.KeyPrefix == "" {
		return file.Key()
	}
	return path.Join(b.config.KeyPrefix, file.Key())
}

func (b *S3Backend) objectURL(key string) string {
	switch {
	case b.config.PublicURL != "":
		return utils.JoinURL(b.config.PublicURL, key)
	case b.config.Endpoint != "":
		return utils.JoinURL(b.config.Endpoint, b.config.BucketName, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.config.BucketName, b.config.Region, key)
	}
}

var _ Backend = (*S3Backend)(nil)
