// Package archive uploads downloaded order documents to object storage.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// Naming schemes for archived objects.
const (
	// NamingBasename reuses the temp file name, which is already unique per download.
	NamingBasename = "basename"
	// NamingSHA256 names objects by content digest, so the same document
	// always lands on the same object.
	NamingSHA256 = "sha256"
)

// Config selects how objects are named and labeled.
type Config struct {
	Naming      string
	Prefix      string
	ContentType string
}

// Uploader implements crawler.Archiver with delete-then-upload semantics.
type Uploader struct {
	store  crawler.ObjectStore
	hasher crawler.Hasher
	cfg    Config
	logger *zap.Logger
}

// New validates cfg and builds an Uploader. hasher is only needed for
// NamingSHA256.
func New(store crawler.ObjectStore, hasher crawler.Hasher, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if cfg.Naming == "" {
		cfg.Naming = NamingBasename
	}
	switch cfg.Naming {
	case NamingBasename:
	case NamingSHA256:
		if hasher == nil {
			return nil, fmt.Errorf("sha256 naming requires a hasher")
		}
	default:
		return nil, fmt.Errorf("unknown archive naming %q", cfg.Naming)
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/pdf"
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{store: store, hasher: hasher, cfg: cfg, logger: logger}, nil
}

// Archive uploads localPath, replacing any object already stored under the
// same name, and returns its URL. It never removes localPath.
func (u *Uploader) Archive(ctx context.Context, localPath string) (string, error) {
	name, err := u.objectName(localPath)
	if err != nil {
		return "", err
	}

	exists, err := u.store.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check object %s: %w: %w", name, crawler.ErrStorage, err)
	}
	if exists {
		if err := u.store.Delete(ctx, name); err != nil {
			return "", fmt.Errorf("delete object %s: %w: %w", name, crawler.ErrStorage, err)
		}
		u.logger.Debug("replaced existing object", zap.String("object", name))
	}

	// #nosec G304 -- localPath comes from the document fetcher.
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w: %w", localPath, crawler.ErrStorage, err)
	}
	defer func() {
		_ = file.Close()
	}()

	url, err := u.store.Upload(ctx, name, u.cfg.ContentType, file)
	if err != nil {
		return "", fmt.Errorf("upload object %s: %w: %w", name, crawler.ErrStorage, err)
	}
	return url, nil
}

func (u *Uploader) objectName(localPath string) (string, error) {
	base := filepath.Base(localPath)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: no file name in %q", crawler.ErrStorage, localPath)
	}

	name := base
	if u.cfg.Naming == NamingSHA256 {
		// #nosec G304 -- localPath comes from the document fetcher.
		file, err := os.Open(localPath)
		if err != nil {
			return "", fmt.Errorf("open %s: %w: %w", localPath, crawler.ErrStorage, err)
		}
		digest, err := u.hasher.HashReader(file)
		_ = file.Close()
		if err != nil {
			return "", fmt.Errorf("hash %s: %w: %w", localPath, crawler.ErrStorage, err)
		}
		name = digest + filepath.Ext(base)
	}

	if u.cfg.Prefix != "" {
		name = path.Join(u.cfg.Prefix, name)
	}
	return name, nil
}
