package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 client.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the S3 endpoint, for MinIO or LocalStack.
	// Path style addressing is used when it is set.
	Endpoint string
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Store reads and publishes artifacts in an S3 bucket under a key prefix.
type S3Store struct {
	client      S3API
	bucket      string
	prefix      string
	concurrency int
	logger      *slog.Logger
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithUploadConcurrency bounds parallel uploads in Publish.
func WithUploadConcurrency(n int) S3Option {
	return func(s *S3Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithS3Logger sets the logger.
func WithS3Logger(logger *slog.Logger) S3Option {
	return func(s *S3Store) {
		s.logger = logger
	}
}

// NewS3Store creates a store for bucket. Keys are stored under prefix.
func NewS3Store(client S3API, bucket, prefix string, opts ...S3Option) *S3Store {
	s := &S3Store{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Fetch implements Fetcher.
func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(clean)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, fmt.Errorf("s3 get %s: %w", clean, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// PublishResult summarizes a Publish call.
type PublishResult struct {
	Files int
	Bytes int64
}

// Publish uploads every file under dir, keyed by its path relative to dir.
func (s *S3Store) Publish(ctx context.Context, dir string) (PublishResult, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return PublishResult{}, err
	}

	var (
		count atomic.Int64
		size  atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, file := range files {
		g.Go(func() error {
			key, err := KeyFor(dir, file)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			_, err = s.client.PutObject(gctx, &s3.PutObjectInput{
				Bucket:      aws.String(s.bucket),
				Key:         aws.String(s.objectKey(key)),
				Body:        bytes.NewReader(data),
				ContentType: aws.String(ContentType(key)),
			})
			if err != nil {
				return fmt.Errorf("s3 put %s: %w", key, err)
			}
			count.Add(1)
			size.Add(int64(len(data)))
			s.logger.Debug("published artifact", "key", key, "bytes", len(data))
			return nil
		})
	}

	err = g.Wait()
	return PublishResult{Files: int(count.Load()), Bytes: size.Load()}, err
}
