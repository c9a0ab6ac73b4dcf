package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/config"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	cfg := config.NewDefaultConfig().Store
	s, err := New(fs, "/workspace", cfg, zap.NewNop())
	require.NoError(t, err)
	return s, fs
}

func TestNewCreatesArtifactDirs(t *testing.T) {
	_, fs := newTestStore(t)

	for _, dir := range []string{"/workspace/responses", "/workspace/screenshots"} {
		ok, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to exist", dir)
	}
}

func TestSaveAudit(t *testing.T) {
	s, fs := newTestStore(t)

	path, err := s.SaveAudit("planning", "open terminal", "HOTKEY:spotlight", map[string]any{"step": 1})
	require.NoError(t, err)
	assert.Equal(t, "/workspace/responses", filepath.Dir(path))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	var rec AuditRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "planning", rec.Type)
	assert.Equal(t, "open terminal", rec.Request)
	assert.Equal(t, "HOTKEY:spotlight", rec.Response)
	assert.EqualValues(t, 1, rec.Metadata["step"])
	assert.False(t, rec.Timestamp.IsZero())
}

func TestSaveAuditNilMetadata(t *testing.T) {
	s, fs := newTestStore(t)

	path, err := s.SaveAudit("verification", "did it work", "SUCCESS", nil)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	var rec AuditRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.NotNil(t, rec.Metadata)
}

func TestSaveScreenshot(t *testing.T) {
	s, fs := newTestStore(t)

	png := []byte{0x89, 0x50, 0x4e, 0x47}
	path, err := s.SaveScreenshot("before_click", png)
	require.NoError(t, err)
	assert.Equal(t, "/workspace/screenshots", filepath.Dir(path))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestMarkersRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	// Missing file yields an empty map, not an error.
	markers, err := s.LoadMarkers()
	require.NoError(t, err)
	assert.Empty(t, markers)

	want := map[string]Marker{
		"aa01": {X: 24, Y: 13},
		"bn40": {X: 1896, Y: 1066},
	}
	require.NoError(t, s.SaveMarkers(want))

	got, err := s.LoadMarkers()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMarkersCorrupt(t *testing.T) {
	s, fs := newTestStore(t)

	require.NoError(t, afero.WriteFile(fs, "/workspace/markers.json", []byte("{not json"), 0o644))
	_, err := s.LoadMarkers()
	require.Error(t, err)
}

func TestNewIDMonotonic(t *testing.T) {
	s, _ := newTestStore(t)

	a := s.NewID()
	b := s.NewID()
	assert.Equal(t, -1, a.Compare(b))
}
