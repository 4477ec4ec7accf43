// Package storage persists the portfolio as a JSON file.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"investment-monitor/models"
	"investment-monitor/observability"
	"investment-monitor/portfolio"
)

// DefaultFileName is the data file used when none is configured.
const DefaultFileName = "dados_salvos.json"

const fileFormatVersion = 1

// document is the on-disk layout.
type document struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Holdings  []models.Holding `json:"holdings"`
}

// FileStore keeps the portfolio in a single JSON file. It also reads the
// record list written by the legacy spreadsheet tool.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileStore creates a store for path, creating its directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultFileName
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &FileStore{filePath: path}, nil
}

// Path returns the data file location.
func (s *FileStore) Path() string {
	return s.filePath
}

// Backend names the store in metrics.
func (s *FileStore) Backend() string {
	return "file"
}

// Load reads the portfolio. A missing file is an empty portfolio.
func (s *FileStore) Load(ctx context.Context) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		observability.Warn("data file not found, starting with an empty portfolio", "path", s.filePath)
		return models.Portfolio{Holdings: []models.Holding{}}, nil
	}
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to read data file: %w", err)
	}

	return Decode(data)
}

// Decode parses either the current document layout or a legacy record list.
func Decode(data []byte) (models.Portfolio, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.Portfolio{Holdings: []models.Holding{}}, nil
	}
	if trimmed[0] == '[' {
		return DecodeLegacy(trimmed)
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to unmarshal portfolio: %w", err)
	}
	if doc.Version > fileFormatVersion {
		return models.Portfolio{}, fmt.Errorf("unsupported data file version %d", doc.Version)
	}
	if doc.Holdings == nil {
		doc.Holdings = []models.Holding{}
	}
	return models.Portfolio{Holdings: doc.Holdings, UpdatedAt: doc.UpdatedAt}, nil
}

// Save writes p atomically: the file is either the old or the new content.
func (s *FileStore) Save(ctx context.Context, p models.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := document{Version: fileFormatVersion, UpdatedAt: p.UpdatedAt, Holdings: p.Holdings}
	if doc.Holdings == nil {
		doc.Holdings = []models.Holding{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close data file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}

	observability.Debug("portfolio saved", "path", s.filePath, "holdings", len(doc.Holdings))
	return nil
}

var _ portfolio.Store = (*FileStore)(nil)
