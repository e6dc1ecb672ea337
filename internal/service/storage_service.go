package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/maheshrc27/crosspost/configs"
)

const signedURLTTL = 5 * time.Minute

var ErrInvalidStorageKey = errors.New("invalid storage key")

// StorageService stores uploaded media and streams it back for publishing.
type StorageService interface {
	// Upload stores data under key and returns a URL when the backend can
	// produce one.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewStorageService picks the local directory backend when
// LOCAL_STORAGE_DIR is set and R2 otherwise.
func NewStorageService(ctx context.Context, cfg *config.Config) (StorageService, error) {
	if cfg.LocalStorageDir != "" {
		return NewLocalStorage(cfg.LocalStorageDir)
	}
	return NewR2Storage(ctx, cfg.R2)
}

type r2Storage struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

func NewR2Storage(ctx context.Context, r2 config.R2) (StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		awsconfig.WithRegion(r2.Region),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if r2.AccountID != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
		}
	})

	return &r2Storage{
		bucket:  r2.BucketName,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

func (r *r2Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	signed, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(signedURLTTL))
	if err != nil {
		// The object is stored; a missing preview URL is not fatal.
		slog.Warn("presign media url", "key", key, "error", err)
		return "", nil
	}
	return signed.URL, nil
}

func (r *r2Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return out.Body, nil
}

type localStorage struct {
	dir string
}

func NewLocalStorage(dir string) (StorageService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &localStorage{dir: dir}, nil
}

func (l *localStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidStorageKey, key)
	}
	return filepath.Join(l.dir, key), nil
}

func (l *localStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return "", nil
}

func (l *localStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}
