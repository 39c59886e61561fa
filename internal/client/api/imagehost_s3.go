package api

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3ImageHost stores post images in an S3 bucket and derives their public
// URLs from publicURL. Objects are keyed uploads/{uuid}{ext} so concurrent
// uploads never collide.
type S3ImageHost struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// S3Options configures the bucket-backed image host. AccessKey/SecretKey
// are optional; when empty the SDK's default credential chain applies.
type S3Options struct {
	Region    string
	Bucket    string
	PublicURL string
	AccessKey string
	SecretKey string
}

func NewS3ImageHost(ctx context.Context, opts S3Options) (*S3ImageHost, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3ImageHost{
		client:    s3.NewFromConfig(cfg),
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

func (h *S3ImageHost) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ext := filepath.Ext(path)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	return h.publicURL + "/" + key, nil
}
