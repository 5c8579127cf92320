// Package publish uploads the compressed email images to S3-compatible storage
// and points the built views at the uploaded copies.
package publish

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
)

var (
	ErrInvalidConfig = stdErrors.New("invalid publish configuration")
	ErrUploadFailed  = stdErrors.New("upload failed")
)

// S3Client is the subset of the S3 API the publisher uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Credentials are optional static keys; without them the default AWS chain is used.
type Credentials struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Publisher uploads files under one bucket prefix.
type Publisher struct {
	client  S3Client
	fs      afero.Fs
	bucket  string
	prefix  string
	baseURL string
}

// Option configures a Publisher.
type Option func(*options)

type options struct {
	client      S3Client
	credentials Credentials
}

// WithS3Client uses a pre-configured client.
func WithS3Client(c S3Client) Option { return func(o *options) { o.client = c } }

// WithCredentials uses static credentials.
func WithCredentials(c Credentials) Option { return func(o *options) { o.credentials = c } }

// New returns a publisher for cfg.
func New(ctx context.Context, cfg config.PublishConfig, fsys afero.Fs, opts ...Option) (*Publisher, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: publish.bucket and publish.region are required", ErrInvalidConfig)
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
		if o.credentials.AccessKeyID != "" && o.credentials.SecretAccessKey != "" {
			awsOptions = append(awsOptions, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(o.credentials.AccessKeyID, o.credentials.SecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: load AWS configuration: %v", ErrInvalidConfig, err)
		}
		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
				so.UsePathStyle = true
			}
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &Publisher{
		client:  client,
		fs:      fsys,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Key returns the object key of a file at rel below the uploaded directory.
func (p *Publisher) Key(rel string) string {
	return path.Join(p.prefix, filepath.ToSlash(rel))
}

// URL returns the public URL of the object holding rel.
func (p *Publisher) URL(rel string) string {
	return p.baseURL + "/" + p.Key(rel)
}

// Prefix is the public URL every uploaded file lives under.
func (p *Publisher) Prefix() string {
	if p.prefix == "" {
		return p.baseURL
	}
	return p.baseURL + "/" + p.prefix
}

// Upload puts every file below dir and returns the relative paths uploaded.
func (p *Publisher) Upload(ctx context.Context, dir string) ([]string, error) {
	var uploaded []string
	err := afero.Walk(p.fs, dir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(p.fs, name)
		if err != nil {
			return err
		}
		input := &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.Key(rel)),
			Body:   bytes.NewReader(data),
		}
		if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
			input.ContentType = aws.String(ct)
		}
		if _, err := p.client.PutObject(ctx, input); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUploadFailed, rel, err)
		}
		slog.Debug("Uploaded image", logfields.Path(rel), "key", p.Key(rel))
		uploaded = append(uploaded, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	return uploaded, nil
}
