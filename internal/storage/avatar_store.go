package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/stijnblommerde/restaurant-menu/internal/config"
)

// AvatarStore keeps profile avatars in object storage, one object per
// user id, overwritten on re-upload.
type AvatarStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewAvatarStore(cfg config.StorageConfig) (*AvatarStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &AvatarStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.BucketAvatars)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.BucketAvatars, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.BucketAvatars, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.BucketAvatars, err)
		}
	}
	return nil
}

// Put stores an avatar for userID and returns its object key.
func (s *AvatarStore) Put(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("avatars/%s", userID)

	_, err := s.client.PutObject(ctx, s.cfg.BucketAvatars, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put avatar: %w", err)
	}
	return key, nil
}

func (s *AvatarStore) Remove(ctx context.Context, userID string) error {
	key := fmt.Sprintf("avatars/%s", userID)
	return s.client.RemoveObject(ctx, s.cfg.BucketAvatars, key, minio.RemoveObjectOptions{})
}
