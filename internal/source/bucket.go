package source

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/storage"
)

// BucketSource pulls the latest exports from object storage into a scratch
// directory and reads them with a FileSource.
type BucketSource struct {
	store  storage.ObjectStorage
	prefix string
}

func NewBucketSource(store storage.ObjectStorage, prefix string) *BucketSource {
	return &BucketSource{store: store, prefix: strings.Trim(prefix, "/")}
}

func (s *BucketSource) Load(ctx context.Context) (*domain.Dataset, error) {
	objects, err := s.store.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	dir, err := os.MkdirTemp("", "ddmrp-exports-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	downloaded := 0
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !isExport(name) {
			continue
		}
		// Only files directly under the prefix are considered.
		if strings.Trim(path.Dir(obj.Key), "/.") != s.prefix {
			continue
		}
		if err := s.store.DownloadObject(ctx, obj.Key, filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", obj.Key, err)
		}
		downloaded++
	}
	log.Info().Str("prefix", s.prefix).Int("files", downloaded).Msg("Downloaded exports from bucket")

	return NewFileSource(dir).Load(ctx)
}

func isExport(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range fileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
