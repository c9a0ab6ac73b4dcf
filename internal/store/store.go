// Package store persists the agent's on-disk artifacts: audit records of
// every model exchange, screenshot PNGs, and the click-marker file. All
// writes go through an afero filesystem so tests can run against memory.
package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/config"
)

// AuditRecord captures a single request/response exchange with the model.
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Request   string         `json:"request"`
	Response  string         `json:"response"`
	Metadata  map[string]any `json:"metadata"`
}

// Marker is a user-confirmed pixel position for a grid coordinate,
// persisted across runs in the markers file.
type Marker struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Store writes artifacts under a workspace root. It is write-only except
// for the markers file, which is reloaded at startup.
type Store struct {
	fs   afero.Fs
	root string
	cfg  config.StoreConfig
	log  *zap.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a store rooted at dir, creating the artifact directories if
// they do not exist yet.
func New(fs afero.Fs, dir string, cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	s := &Store{
		fs:      fs,
		root:    dir,
		cfg:     cfg,
		log:     logger.Named("store"),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	for _, sub := range []string{cfg.ResponsesDir, cfg.ScreenshotsDir} {
		if err := fs.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory %q: %w", sub, err)
		}
	}
	return s, nil
}

// NewID returns a monotonic ULID for naming artifacts.
func (s *Store) NewID() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
}

// SaveAudit writes an exchange record to responses/<type>_<ulid>.json and
// returns the path. Audit failures must never abort the task that produced
// them; callers log and continue.
func (s *Store) SaveAudit(recordType, request, response string, metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	rec := AuditRecord{
		Timestamp: time.Now().UTC(),
		Type:      recordType,
		Request:   request,
		Response:  response,
		Metadata:  metadata,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit record: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", recordType, s.NewID())
	path := filepath.Join(s.root, s.cfg.ResponsesDir, name)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit record: %w", err)
	}

	s.log.Debug("Audit record saved", zap.String("type", recordType), zap.String("path", path))
	return path, nil
}

// SaveScreenshot writes a PNG under screenshots/<kind>_<ulid>.png and
// returns the path.
func (s *Store) SaveScreenshot(kind string, png []byte) (string, error) {
	name := fmt.Sprintf("%s_%s.png", kind, s.NewID())
	path := filepath.Join(s.root, s.cfg.ScreenshotsDir, name)
	if err := afero.WriteFile(s.fs, path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// SaveMarkers persists the marker map to the markers file.
func (s *Store) SaveMarkers(markers map[string]Marker) error {
	data, err := json.MarshalIndent(markers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal markers: %w", err)
	}
	path := filepath.Join(s.root, s.cfg.MarkersFile)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write markers file: %w", err)
	}
	s.log.Debug("Markers saved", zap.Int("count", len(markers)), zap.String("path", path))
	return nil
}

// LoadMarkers reads the markers file. A missing file is not an error and
// yields an empty map.
func (s *Store) LoadMarkers() (map[string]Marker, error) {
	path := filepath.Join(s.root, s.cfg.MarkersFile)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Marker{}, nil
		}
		return nil, fmt.Errorf("failed to read markers file: %w", err)
	}

	markers := map[string]Marker{}
	if err := json.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("failed to parse markers file: %w", err)
	}
	return markers, nil
}
