package imagestore

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"aave_pnl/internal/app/port"

	"go.uber.org/zap"
)

// FileStore writes cards into a local directory that the API serves under publicPath.
type FileStore struct {
	dir        string
	publicPath string
	logger     *zap.Logger
}

// NewFileStore creates dir if needed.
func NewFileStore(dir, publicPath string, logger *zap.Logger) (port.ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %s: %w", dir, err)
	}
	if publicPath == "" {
		publicPath = "/"
	}
	return &FileStore{dir: dir, publicPath: publicPath, logger: logger.Named("ImageStore")}, nil
}

// Put writes data under name and returns its public URL path.
func (s *FileStore) Put(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}
	s.logger.Debug("Stored card", zap.String("path", target), zap.Int("bytes", len(data)))
	return path.Join(s.publicPath, name), nil
}
