package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Broker implements Broker using S3-compatible object storage.
type S3Broker struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       Config
}

// New creates an S3Broker with the given configuration.
func New(cfg Config) (*S3Broker, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	client := s3.New(s3.Options{}, opts...)
	return &S3Broker{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
	}, nil
}

// PresignUpload issues a PUT capability URL for one object key. The signature
// covers the declared content type and length, so the URL cannot be reused
// for a different payload shape.
func (b *S3Broker) PresignUpload(ctx context.Context, key string, opts ...UploadURLOption) (*SignedURL, error) {
	o := &uploadURLOptions{ttl: b.cfg.UploadURLTTL}
	for _, opt := range opts {
		opt(o)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	}
	if o.contentType != "" {
		input.ContentType = aws.String(o.contentType)
	}
	if o.contentLength > 0 {
		input.ContentLength = aws.Int64(o.contentLength)
	}

	now := time.Now()
	result, err := b.presigner.PresignPutObject(ctx, input, func(po *s3.PresignOptions) {
		po.Expires = o.ttl
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrPresignFailed)
	}

	return &SignedURL{
		URL:       result.URL,
		Method:    result.Method,
		ExpiresAt: now.Add(o.ttl),
	}, nil
}

// PresignDownload issues a GET capability URL for one object key.
func (b *S3Broker) PresignDownload(ctx context.Context, key string, opts ...DownloadURLOption) (*SignedURL, error) {
	o := &downloadURLOptions{ttl: b.cfg.DownloadURLTTL}
	for _, opt := range opts {
		opt(o)
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	}
	if o.downloadName != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", o.downloadName)
		input.ResponseContentDisposition = aws.String(disposition)
	}

	now := time.Now()
	result, err := b.presigner.PresignGetObject(ctx, input, func(po *s3.PresignOptions) {
		po.Expires = o.ttl
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrPresignFailed)
	}

	return &SignedURL{
		URL:       result.URL,
		Method:    result.Method,
		ExpiresAt: now.Add(o.ttl),
	}, nil
}

// Head returns object metadata without downloading the body.
func (b *S3Broker) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	output, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrObjectNotFound)
	}

	info := &ObjectInfo{Key: key}
	if output.ContentType != nil {
		info.ContentType = *output.ContentType
	}
	if output.ContentLength != nil {
		info.Size = *output.ContentLength
	}
	return info, nil
}

// Get opens the object body.
func (b *S3Broker) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrObjectNotFound)
	}
	return output.Body, nil
}

// Put writes an object directly.
func (b *S3Broker) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.cfg.Bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return wrapS3Error(err, ErrUploadFailed)
	}
	return nil
}

// Delete removes an object.
func (b *S3Broker) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrapS3Error(err, ErrDeleteFailed)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (b *S3Broker) Bucket() string {
	return b.cfg.Bucket
}

// Ensure S3Broker implements Broker.
var _ Broker = (*S3Broker)(nil)
