package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket chunk outputs are mirrored to.
type S3Config struct {
	Bucket string
	Region string
	// Prefix is prepended to every object key.
	Prefix string
	// Endpoint points at an S3-compatible service (MinIO, LocalStack) and
	// switches the client to path-style addressing.
	Endpoint string
	// Static credentials; both empty means the default AWS chain.
	AccessKeyID     string
	SecretAccessKey string
}

var contentTypes = map[string]string{
	".vtt":  "text/vtt",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// S3Storage writes chunks to a local tree like LocalStorage and mirrors
// them to a bucket on Publish. Existence checks only look at the local tree.
type S3Storage struct {
	*LocalStorage
	client   *s3.Client
	bucket   string
	region   string
	prefix   string
	endpoint string
}

// NewS3Storage returns an S3Storage rooted at root locally.
func NewS3Storage(root string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(root)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &S3Storage{
		LocalStorage: local,
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		prefix:       strings.Trim(cfg.Prefix, "/"),
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
	}, nil
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Publish uploads the local file stored at key and returns the object URL.
func (s *S3Storage) Publish(ctx context.Context, key string) (string, error) {
	src, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	f, err := os.Open(src) // #nosec G304 - resolved under the output root
	if err != nil {
		return "", fmt.Errorf("open %s: %w", key, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", key, err)
	}

	object := key
	if s.prefix != "" {
		object = path.Join(s.prefix, key)
	}
	ctype, ok := contentTypes[strings.ToLower(path.Ext(key))]
	if !ok {
		ctype = "application/octet-stream"
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(object),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ctype),
	}); err != nil {
		return "", fmt.Errorf("upload %s to s3://%s: %w", key, s.bucket, err)
	}
	return s.objectURL(object), nil
}

func (s *S3Storage) objectURL(object string) string {
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket + "/" + object
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, object)
}

var _ Storage = (*S3Storage)(nil)
