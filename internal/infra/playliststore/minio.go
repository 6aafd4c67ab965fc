package playliststore

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ringdeck/internal/domain/playlist"
)

// ObjectStorage defines the object storage operations needed by the minio store.
type ObjectStorage interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// MinioStoreConfig holds the settings of the minio store.
type MinioStoreConfig struct {
	Endpoint         string `yaml:"endpoint" mapstructure:"endpoint" validate:"required"`
	AccessKey        string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey        string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL           bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	Region           string `yaml:"region" mapstructure:"region" default:"us-east-1"`
	Bucket           string `yaml:"bucket" mapstructure:"bucket" validate:"required"`
	Object           string `yaml:"object" mapstructure:"object" default:"playlist.json"`
	PresignExpiryMin int    `yaml:"presign_expiry_min" mapstructure:"presign_expiry_min" default:"720" validate:"gte=1,lte=10080"`
}

// MinioStore loads a playlist document from a bucket. Relative track
// references are object keys next to the document and are served through
// presigned URLs.
type MinioStore struct {
	storage ObjectStorage
	config  *MinioStoreConfig
}

// NewMinioStore creates a new MinioStore backed by a minio client.
func NewMinioStore(settings map[string]any) (*MinioStore, error) {
	var config MinioStoreConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}

	storage, err := NewMinioStorage(config.Endpoint, config.AccessKey, config.SecretKey, config.Region, config.UseSSL)
	if err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("minio store config: endpoint=%s bucket=%s object=%s", config.Endpoint, config.Bucket, config.Object)
	return &MinioStore{storage: storage, config: &config}, nil
}

// NewMinioStoreWithStorage creates a MinioStore on top of any object storage.
func NewMinioStoreWithStorage(storage ObjectStorage, settings map[string]any) (*MinioStore, error) {
	var config MinioStoreConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	return &MinioStore{storage: storage, config: &config}, nil
}

// Name returns the store type.
func (s *MinioStore) Name() string {
	return "minio"
}

// Load downloads and parses the playlist document.
func (s *MinioStore) Load(ctx context.Context) (*playlist.Playlist, error) {
	obj, err := s.storage.GetObject(ctx, s.config.Bucket, s.config.Object)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist object")
	}
	doc, err := ParseDocument(s.config.Object, data)
	if err != nil {
		return nil, err
	}

	expiry := time.Duration(s.config.PresignExpiryMin) * time.Minute
	dir := path.Dir(s.config.Object)
	return doc.Playlist(func(ref string) (string, error) {
		if ref == "" || isAbsoluteURL(ref) {
			return ref, nil
		}
		key := strings.TrimPrefix(ref, "/")
		if !strings.HasPrefix(ref, "/") && dir != "." {
			key = path.Join(dir, ref)
		}
		return s.storage.PresignedGetURL(ctx, s.config.Bucket, key, expiry)
	})
}

// MinioStorage adapts a minio client to ObjectStorage.
type MinioStorage struct {
	client *minio.Client
}

// NewMinioStorage creates a minio client.
func NewMinioStorage(endpoint, accessKey, secretKey, region string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create minio client")
	}
	return &MinioStorage{client: client}, nil
}

// GetObject opens an object for reading.
func (m *MinioStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get object %s/%s", bucket, key)
	}
	return obj, nil
}

// PresignedGetURL returns a time limited download URL for an object.
func (m *MinioStorage) PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrapf(err, "failed to presign %s/%s", bucket, key)
	}
	return u.String(), nil
}
