package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// S3 хранит файлы в бакете S3-совместимого хранилища.
type S3 struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3(cfg S3Config) (*S3, error) {
	cl, err := minio.New(strings.TrimPrefix(cfg.Endpoint, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media: s3 client: %w", err)
	}
	return &S3{cfg: cfg, client: cl}, nil
}

// EnsureBucket создаёт бакет, если его ещё нет.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("media: check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("media: make bucket: %w", err)
		}
	}
	return nil
}

func (s *S3) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

func (s *S3) Save(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := path.Join(Dir, cleanName(filename))
	for i := 0; i < maxNameAttempts; i++ {
		taken, err := s.exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("media: stat %s: %w", key, err)
		}
		if !taken {
			break
		}
		key = path.Join(Dir, altName(cleanName(filename)))
	}

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("media: put %s: %w", key, err)
	}
	return key, nil
}

// URL строит прямую ссылку на объект (path-style).
func (s *S3) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.client.EndpointURL().JoinPath(s.cfg.Bucket, key).String()
}

// Origin — схема и хост хранилища, например для CSP.
func (s *S3) Origin() string {
	u := s.client.EndpointURL()
	return u.Scheme + "://" + u.Host
}
