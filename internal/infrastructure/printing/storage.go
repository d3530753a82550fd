package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// spoolExtensions are the print outputs the spool manages
var spoolExtensions = []string{".pdf", ".png"}

// StoreRequest contains the parameters for spooling a print output
type StoreRequest struct {
	// ID names the file, usually the letter request id
	ID uuid.UUID
	// Data is the raw file content
	Data []byte
	// Ext is the file extension including the dot (default ".pdf")
	Ext string
}

// StoreResult contains the result of spooling a print output
type StoreResult struct {
	// Path is the storage path (relative to base)
	Path string
	// URL is the accessible URL for the file
	URL  string
	Size int64
}

// FileSystemStorageConfig contains configuration for the print spool
type FileSystemStorageConfig struct {
	// BasePath is the root directory of the spool
	// Default: /data/prints
	BasePath string
	// BaseURL is the URL prefix the spool is served under
	// Example: https://akademik.example.ac.id/api/v1/prints
	BaseURL string
	// Logger for operations
	Logger *zap.Logger
}

// FileSystemStorage is the print spool on the local file system
type FileSystemStorage struct {
	config *FileSystemStorageConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewFileSystemStorage creates the spool directory if needed
func NewFileSystemStorage(config *FileSystemStorageConfig) (*FileSystemStorage, error) {
	cfg := FileSystemStorageConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/data/prints"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/api/v1/prints"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create spool directory: %s", cfg.BasePath), err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemStorage{config: &cfg, logger: logger, now: time.Now}, nil
}

// Store writes a print output.
// Path structure: {base}/{year}/{month}/{id}{ext}
func (s *FileSystemStorage) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	if req == nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "store request is nil", nil)
	}
	if req.ID == uuid.Nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "file ID is required", nil)
	}
	if len(req.Data) == 0 {
		return nil, NewRenderError(ErrCodeStorageFailed, "file data is empty", nil)
	}
	ext := req.Ext
	if ext == "" {
		ext = ".pdf"
	}
	if !slices.Contains(spoolExtensions, ext) {
		return nil, NewRenderError(ErrCodeStorageFailed, "unsupported spool extension: "+ext, nil)
	}

	now := s.now()
	relativePath := filepath.Join(
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		req.ID.String()+ext,
	)
	fullPath := filepath.Join(s.config.BasePath, relativePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create directory", err)
	}
	if err := os.WriteFile(fullPath, req.Data, 0o644); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write spool file", err)
	}

	url := s.GetURL(relativePath)
	s.logger.Info("print output spooled",
		zap.String("path", fullPath),
		zap.Int("size", len(req.Data)),
		zap.String("url", url))

	return &StoreResult{
		Path: relativePath,
		URL:  url,
		Size: int64(len(req.Data)),
	}, nil
}

// Get opens a spooled file by relative path or spool URL
func (s *FileSystemStorage) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewRenderError(ErrCodeStorageFailed, "spool file not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to open spool file", err)
	}
	return file, nil
}

// Exists reports whether a spooled file is present. It implements ArtifactChecker.
func (s *FileSystemStorage) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, NewRenderError(ErrCodeStorageFailed, "failed to stat spool file", err)
	}
	return !info.IsDir(), nil
}

// Delete removes a spooled file. Deleting a missing file is not an error.
func (s *FileSystemStorage) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return NewRenderError(ErrCodeStorageFailed, "failed to delete spool file", err)
	}
	s.logger.Info("spool file deleted", zap.String("path", fullPath))
	return nil
}

// CleanupOlderThan removes spooled files older than age
func (s *FileSystemStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	deleted := 0

	err := filepath.WalkDir(s.config.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !slices.Contains(spoolExtensions, filepath.Ext(path)) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deleted++
				s.logger.Debug("deleted old spool file", zap.String("path", path))
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return deleted, NewRenderError(ErrCodeStorageFailed, "cleanup walk failed", err)
	}

	s.logger.Info("spool cleanup completed", zap.Int("deleted", deleted), zap.Duration("age", age))
	return deleted, nil
}

// GetURL returns the URL a spooled file is served under
func (s *FileSystemStorage) GetURL(path string) string {
	return s.config.BaseURL + "/" + filepath.ToSlash(filepath.Clean(path))
}

// resolve maps a relative path or spool URL to a file under BasePath
func (s *FileSystemStorage) resolve(ref string) (string, error) {
	rel := strings.TrimPrefix(ref, s.config.BaseURL+"/")
	if rel == "" || filepath.IsAbs(rel) || containsDotDot(rel) {
		s.logger.Warn("blocked potentially malicious path", zap.String("path", ref))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	absBase, err := filepath.Abs(s.config.BasePath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve base path", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, filepath.Clean(rel)))
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve file path", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("path", ref),
			zap.String("absPath", absPath),
			zap.String("absBase", absBase))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}
	return absPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

var (
	_ SpoolWriter     = (*FileSystemStorage)(nil)
	_ ArtifactChecker = (*FileSystemStorage)(nil)
)
