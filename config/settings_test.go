package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := NewManagerWithFs(fsys, "/data/settings.json")

	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	exists, err := afero.Exists(fsys, "/data/settings.json")
	require.NoError(t, err)
	assert.True(t, exists)

	again, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "settings.json", []byte(`{
		"debrid": {"apiKey": "abc"},
		"resolution": {"concurrency": 3, "maxStreams": -1},
		"filtering": {"minQuality": "720p"}
	}`), 0o644))

	s, err := NewManagerWithFs(fsys, "settings.json").Load()
	require.NoError(t, err)

	assert.Equal(t, "realdebrid", s.Debrid.Provider)
	assert.Equal(t, "abc", s.Debrid.APIKey)
	assert.Equal(t, 3, s.Resolution.Concurrency)
	assert.Equal(t, 12, s.Resolution.MaxResolve)
	assert.Equal(t, 20, s.Resolution.MaxStreams, "invalid value is backfilled")
	assert.True(t, s.Filtering.ExcludeBadSources)
	assert.Equal(t, "720p", s.Filtering.MinQuality)
	assert.Equal(t, DefaultSettings().TorrentScrapers, s.TorrentScrapers)
	assert.False(t, s.Search.SyntheticFallback)
}

func TestLoadExplicitScraperList(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "settings.json", []byte(`{
		"torrentScrapers": [{"name": "BitSearch", "type": "bitsearch", "enabled": true}]
	}`), 0o644))

	s, err := NewManagerWithFs(fsys, "settings.json").Load()
	require.NoError(t, err)
	require.Len(t, s.TorrentScrapers, 1)
	assert.Equal(t, "bitsearch", s.TorrentScrapers[0].Type)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "settings.json", []byte(`{"server":`), 0o644))

	_, err := NewManagerWithFs(fsys, "settings.json").Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := NewManagerWithFs(fsys, "/etc/souhail/settings.json")

	s := DefaultSettings()
	s.Debrid.Provider = "alldebrid"
	s.Search.SyntheticFallback = true
	require.NoError(t, m.Save(s))

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	exists, _ := afero.Exists(fsys, "/etc/souhail/settings.json.tmp")
	assert.False(t, exists)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("REAL_DEBRID_API", " legacy-key ")
	t.Setenv("PORT", "9000")
	t.Setenv("SOUHAIL_CONCURRENCY", "4")
	t.Setenv("SOUHAIL_SYNTHETIC_FALLBACK", "true")

	s := DefaultSettings()
	ApplyEnv(&s)
	assert.Equal(t, "legacy-key", s.Debrid.APIKey)
	assert.Equal(t, 9000, s.Server.Port)
	assert.Equal(t, 4, s.Resolution.Concurrency)
	assert.True(t, s.Search.SyntheticFallback)
}

func TestApplyEnvPrefixedWins(t *testing.T) {
	t.Setenv("SOUHAIL_DEBRID_API_KEY", "prefixed")
	t.Setenv("REAL_DEBRID_API", "legacy")
	t.Setenv("SOUHAIL_PORT", "7000")
	t.Setenv("PORT", "9000")

	s := DefaultSettings()
	ApplyEnv(&s)
	assert.Equal(t, "prefixed", s.Debrid.APIKey)
	assert.Equal(t, 7000, s.Server.Port)
}
