package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesadeayuda/helpdesk/internal/config"
	apperrors "github.com/mesadeayuda/helpdesk/pkg/util"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// UploadStore keeps ticket images on the local filesystem under a configured
// directory, with collision-resistant generated names.
type UploadStore struct {
	dir string
	cfg config.UploadConfig
}

// NewUploadStore creates the upload directory if needed.
func NewUploadStore(cfg config.UploadConfig) (*UploadStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadStore{dir: cfg.Dir, cfg: cfg}, nil
}

// Save validates and stores an uploaded image, returning the generated
// filename to persist on the ticket row.
func (s *UploadStore) Save(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !s.cfg.AllowsExtension(ext) {
		return "", apperrors.NewValidationError("file type not allowed", map[string]any{"filename": file.Filename})
	}
	if s.cfg.MaxSizeBytes > 0 && file.Size > s.cfg.MaxSizeBytes {
		return "", apperrors.NewValidationError("file too large", map[string]any{"size": file.Size})
	}

	name := GenerateFilename(file.Filename, time.Now())
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return name, nil
}

// Delete removes a stored file. A missing file is not an error; the goal is
// that it no longer exists.
func (s *UploadStore) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	path, ok := s.resolve(filename)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path resolves a stored filename for serving, rejecting traversal attempts.
func (s *UploadStore) Path(filename string) (string, error) {
	path, ok := s.resolve(filename)
	if !ok {
		return "", apperrors.NewNotFound("file", map[string]any{"filename": filename})
	}
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.NewNotFound("file", map[string]any{"filename": filename})
	}
	return path, nil
}

func (s *UploadStore) resolve(filename string) (string, bool) {
	cleaned := filepath.Base(filepath.Clean(filename))
	if cleaned == "" || cleaned == "." || cleaned == ".." || cleaned != filename {
		return "", false
	}
	return filepath.Join(s.dir, cleaned), true
}

// GenerateFilename builds "<timestamp>_<random>_<sanitized original>".
func GenerateFilename(original string, now time.Time) string {
	base := filepath.Base(original)
	sanitized := unsafeChars.ReplaceAllString(base, "_")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", now.UTC().Format("20060102150405"), suffix, sanitized)
}
