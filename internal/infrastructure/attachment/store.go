package attachment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Store keeps attachment bytes on the local filesystem, one directory per
// requisition. Paths are validated against escaping the base directory.
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// NewStore creates a new attachment store rooted at baseDir
func NewStore(baseDir string, logger *zap.Logger) *Store {
	return &Store{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes the attachment bytes and returns the absolute path
func (s *Store) Save(requisitionID int64, fileName string, content []byte) (string, error) {
	path, err := s.resolve(requisitionID, fileName)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create attachment directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		s.logger.Error("Failed to write attachment",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("write attachment: %w", err)
	}

	s.logger.Debug("Attachment saved",
		zap.String("path", path),
		zap.Int("size", len(content)))
	return path, nil
}

// Read returns the attachment bytes
func (s *Store) Read(requisitionID int64, fileName string) ([]byte, error) {
	path, err := s.resolve(requisitionID, fileName)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return content, nil
}

// Remove deletes the attachment bytes. A missing file is not an error.
func (s *Store) Remove(requisitionID int64, fileName string) error {
	path, err := s.resolve(requisitionID, fileName)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// Path returns the absolute path without touching the filesystem
func (s *Store) Path(requisitionID int64, fileName string) (string, error) {
	return s.resolve(requisitionID, fileName)
}

func (s *Store) resolve(requisitionID int64, fileName string) (string, error) {
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base directory: %w", err)
	}

	clean := filepath.Base(filepath.Clean(fileName))
	if clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid attachment file name: %s", fileName)
	}

	path := filepath.Join(base, fmt.Sprintf("requisition-%d", requisitionID), clean)
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("attachment path escapes storage root: %s", fileName)
	}
	return path, nil
}
