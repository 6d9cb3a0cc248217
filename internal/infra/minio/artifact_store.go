package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes the object storage bucket certificate documents go to.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	PresignExpiry   time.Duration
}

// ArtifactStore archives rendered certificates and presigns links to them on read.
type ArtifactStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewArtifactStore(ctx context.Context, cfg Config) (*ArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("created bucket %s", cfg.Bucket)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &ArtifactStore{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (s *ArtifactStore) Put(ctx context.Context, objectName string, data []byte, contentType string) error {
	if err := checkObjectName(objectName); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectName, err)
	}
	return nil
}

// URL presigns a GET for objectName. Links expire, so they are handed out
// per request and never stored.
func (s *ArtifactStore) URL(ctx context.Context, objectName string) (string, error) {
	if err := checkObjectName(objectName); err != nil {
		return "", err
	}
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectName, err)
	}
	return url.String(), nil
}

func checkObjectName(objectName string) error {
	if strings.Contains(objectName, "..") {
		return errors.New("invalid object name")
	}
	return nil
}
