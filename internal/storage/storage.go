package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the planner
// needs: pulling exported datasets and pushing reports.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// Config encapsulates the connection info for an S3-compatible bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// FromConfig copies the application storage settings.
func FromConfig(cfg config.StorageConfig) Config {
	return Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	}
}

// New builds the client of the configured provider.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "minio":
		return NewMinioClient(FromConfig(cfg))
	case "s3":
		return NewS3Client(FromConfig(cfg))
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func (c Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("storage endpoint must be provided")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage credentials must be provided")
	}
	if c.Bucket == "" {
		return fmt.Errorf("storage bucket must be provided")
	}
	return nil
}

// host strips any scheme from the endpoint.
func (c Config) host() string {
	h := strings.TrimPrefix(c.Endpoint, "https://")
	h = strings.TrimPrefix(h, "http://")
	return strings.TrimSuffix(strings.TrimPrefix(h, "//"), "/")
}

// endpointURL returns the endpoint with a scheme matching UseSSL when none
// was given.
func (c Config) endpointURL() string {
	if strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://") {
		return c.Endpoint
	}
	scheme := "https"
	if !c.UseSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, c.host())
}
