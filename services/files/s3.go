package filesvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

var (
	// mockable
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Storage struct {
	client    s3API
	bucket    string
	publicURL string
}

var _ core.FileStorage = (*s3Storage)(nil)

// NewS3Storage stores files in conf.S3.Bucket. A custom endpoint (e.g. MinIO) switches to path-style addressing.
func NewS3Storage(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(conf.S3.Region)}
	if conf.S3.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.S3.AccessKey, conf.S3.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if conf.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.S3.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Storage{
		client:    client,
		bucket:    conf.S3.Bucket,
		publicURL: s3PublicURL(conf.S3),
	}, nil
}

func s3PublicURL(conf core.S3Config) string {
	switch {
	case conf.PublicURL != "":
		return strings.TrimRight(conf.PublicURL, "/")
	case conf.Endpoint != "":
		return strings.TrimRight(conf.Endpoint, "/") + "/" + conf.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Bucket, conf.Region)
}

func (s *s3Storage) SaveFile(ctx context.Context, key string, up *core.Upload) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        up.Body,
		ContentType: aws.String(up.ContentType),
	}
	if up.Size > 0 {
		in.ContentLength = aws.Int64(up.Size)
	}
	if _, err = s.client.PutObject(ctx, in); err != nil {
		return "", errors.Wrap(err, "uploading to S3")
	}
	return s.publicURL + "/" + key, nil
}

func (s *s3Storage) KeyOf(url string) (string, bool) {
	return keyOf(s.publicURL, url)
}

func (s *s3Storage) DeleteFile(ctx context.Context, url string) error {
	key, ok := s.KeyOf(url)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrap(err, "deleting from S3")
	}
	return nil
}
