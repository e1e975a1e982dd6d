package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server          ServerSettings         `json:"server"`
	Debrid          DebridSettings         `json:"debrid"`
	TorrentScrapers []TorrentScraperConfig `json:"torrentScrapers"`
	Search          SearchSettings         `json:"search"`
	Resolution      ResolutionSettings     `json:"resolution"`
	Filtering       FilterSettings         `json:"filtering"`
	Metadata        MetadataSettings       `json:"metadata"`
	Addon           AddonSettings          `json:"addon"`
	Log             LogConfig              `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DebridSettings struct {
	Provider string `json:"provider"` // "realdebrid" or "alldebrid"
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

type TorrentScraperConfig struct {
	Name    string `json:"name"`
	Type    string `json:"type"`    // "torrentio", "torrentapi", "bitsearch", "jackett", "zilean"
	URL     string `json:"url"`     // base URL; empty uses the scraper default
	APIKey  string `json:"apiKey"`  // Jackett only
	Options string `json:"options"` // Torrentio URL path options
	Enabled bool   `json:"enabled"`
}

type SearchSettings struct {
	MaxCandidates     int  `json:"maxCandidates"`
	LowWaterMark      int  `json:"lowWaterMark"`
	MaxQueryAttempts  int  `json:"maxQueryAttempts"`
	LookupTimeoutSec  int  `json:"lookupTimeoutSec"`
	CacheTTLMinutes   int  `json:"cacheTtlMinutes"`
	SyntheticFallback bool `json:"syntheticFallback"`
}

type ResolutionSettings struct {
	MaxResolve      int `json:"maxResolve"`
	Concurrency     int `json:"concurrency"`
	CallTimeoutSec  int `json:"callTimeoutSec"`
	PollIntervalMs  int `json:"pollIntervalMs"`
	PollAttempts    int `json:"pollAttempts"`
	PhaseTimeoutSec int `json:"phaseTimeoutSec"`
	MaxStreams      int `json:"maxStreams"`
}

type FilterSettings struct {
	ExcludeBadSources bool     `json:"excludeBadSources"`
	MinQuality        string   `json:"minQuality"` // "", "480p", "720p", "1080p", "2160p", "4K"
	MaxSizeGB         float64  `json:"maxSizeGb"`  // 0 means no limit
	FilterOutTerms    []string `json:"filterOutTerms"`
}

type MetadataSettings struct {
	CinemetaURL   string `json:"cinemetaUrl"`
	CacheTTLHours int    `json:"cacheTtlHours"`
}

type AddonSettings struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StreamName  string `json:"streamName"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 8080},
		Debrid: DebridSettings{Provider: "realdebrid"},
		TorrentScrapers: []TorrentScraperConfig{
			{Name: "Torrentio", Type: "torrentio", Enabled: true, Options: "sort=qualitysize|qualityfilter=480p,scr,cam"},
			{Name: "RARBG", Type: "torrentapi", Enabled: true},
			{Name: "BitSearch", Type: "bitsearch", Enabled: false},
			{Name: "Jackett", Type: "jackett", URL: "http://localhost:9117", Enabled: false},
			{Name: "Zilean", Type: "zilean", URL: "http://localhost:8181", Enabled: false},
		},
		Search: SearchSettings{
			MaxCandidates:    25,
			LowWaterMark:     15,
			MaxQueryAttempts: 3,
			LookupTimeoutSec: 10,
			CacheTTLMinutes:  10,
		},
		Resolution: ResolutionSettings{
			MaxResolve:      12,
			Concurrency:     6,
			CallTimeoutSec:  8,
			PollIntervalMs:  2500,
			PollAttempts:    3,
			PhaseTimeoutSec: 25,
			MaxStreams:      20,
		},
		Filtering: FilterSettings{
			ExcludeBadSources: true,
			FilterOutTerms:    []string{},
		},
		Metadata: MetadataSettings{
			CinemetaURL:   "https://v3-cinemeta.strem.io",
			CacheTTLHours: 24,
		},
		Addon: AddonSettings{
			ID:          "com.souhail.stremio",
			Name:        "♻️🟢Souhail Premium🟢♻️",
			StreamName:  "💥🟢SOUHAIL/RD🟢💥",
			Version:     "1.0.0",
			Description: "Real-Debrid Streams (Clean & Technical)",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    50, // MB per file
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	fs   afero.Fs
	path string
}

func NewManager(configPath string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), configPath)
}

func NewManagerWithFs(fsys afero.Fs, configPath string) *Manager {
	return &Manager{fs: fsys, path: configPath}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return m.fs.MkdirAll(dir, 0o755)
}

// Load reads the settings file or creates it with defaults if missing.
// Keys absent from the file keep their default values.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := m.fs.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	// An explicit scraper list replaces the default one.
	s.TorrentScrapers = nil
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", m.path, err)
	}
	if s.TorrentScrapers == nil {
		s.TorrentScrapers = DefaultSettings().TorrentScrapers
	}
	s.backfill()
	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, append(data, '\n'), 0o644); err != nil {
		_ = m.fs.Remove(tmp)
		return err
	}
	return m.fs.Rename(tmp, m.path)
}

// backfill replaces out-of-range values with defaults.
func (s *Settings) backfill() {
	def := DefaultSettings()
	if s.Server.Port <= 0 {
		s.Server.Port = def.Server.Port
	}
	if strings.TrimSpace(s.Debrid.Provider) == "" {
		s.Debrid.Provider = def.Debrid.Provider
	}
	if s.Search.MaxCandidates <= 0 {
		s.Search.MaxCandidates = def.Search.MaxCandidates
	}
	if s.Search.LowWaterMark < 0 {
		s.Search.LowWaterMark = def.Search.LowWaterMark
	}
	if s.Search.MaxQueryAttempts <= 0 {
		s.Search.MaxQueryAttempts = def.Search.MaxQueryAttempts
	}
	if s.Search.LookupTimeoutSec <= 0 {
		s.Search.LookupTimeoutSec = def.Search.LookupTimeoutSec
	}
	if s.Search.CacheTTLMinutes <= 0 {
		s.Search.CacheTTLMinutes = def.Search.CacheTTLMinutes
	}
	if s.Resolution.MaxResolve < 0 {
		s.Resolution.MaxResolve = def.Resolution.MaxResolve
	}
	if s.Resolution.Concurrency <= 0 {
		s.Resolution.Concurrency = def.Resolution.Concurrency
	}
	if s.Resolution.CallTimeoutSec <= 0 {
		s.Resolution.CallTimeoutSec = def.Resolution.CallTimeoutSec
	}
	if s.Resolution.PollIntervalMs <= 0 {
		s.Resolution.PollIntervalMs = def.Resolution.PollIntervalMs
	}
	if s.Resolution.PollAttempts <= 0 {
		s.Resolution.PollAttempts = def.Resolution.PollAttempts
	}
	if s.Resolution.PhaseTimeoutSec <= 0 {
		s.Resolution.PhaseTimeoutSec = def.Resolution.PhaseTimeoutSec
	}
	if s.Resolution.MaxStreams <= 0 {
		s.Resolution.MaxStreams = def.Resolution.MaxStreams
	}
	if s.Filtering.FilterOutTerms == nil {
		s.Filtering.FilterOutTerms = []string{}
	}
	if strings.TrimSpace(s.Metadata.CinemetaURL) == "" {
		s.Metadata.CinemetaURL = def.Metadata.CinemetaURL
	}
	if s.Metadata.CacheTTLHours <= 0 {
		s.Metadata.CacheTTLHours = def.Metadata.CacheTTLHours
	}
	if strings.TrimSpace(s.Addon.ID) == "" {
		s.Addon = def.Addon
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = def.Log.Level
	}
}

const envPrefix = "SOUHAIL_"

// ApplyEnv overrides settings from environment variables. Only the
// variables listed here are read; REAL_DEBRID_API and PORT are accepted
// for compatibility with older deployments.
func ApplyEnv(s *Settings) {
	v := viper.New()
	_ = v.BindEnv("server.host", envPrefix+"HOST")
	_ = v.BindEnv("server.port", envPrefix+"PORT", "PORT")
	_ = v.BindEnv("debrid.provider", envPrefix+"DEBRID_PROVIDER")
	_ = v.BindEnv("debrid.apiKey", envPrefix+"DEBRID_API_KEY", "REAL_DEBRID_API")
	_ = v.BindEnv("search.syntheticFallback", envPrefix+"SYNTHETIC_FALLBACK")
	_ = v.BindEnv("resolution.maxResolve", envPrefix+"MAX_RESOLVE")
	_ = v.BindEnv("resolution.concurrency", envPrefix+"CONCURRENCY")
	_ = v.BindEnv("resolution.phaseTimeoutSec", envPrefix+"PHASE_TIMEOUT_SEC")
	_ = v.BindEnv("log.level", envPrefix+"LOG_LEVEL")
	_ = v.BindEnv("log.file", envPrefix+"LOG_FILE")

	if v.IsSet("server.host") {
		s.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		if port := v.GetInt("server.port"); port > 0 {
			s.Server.Port = port
		}
	}
	if v.IsSet("debrid.provider") {
		s.Debrid.Provider = strings.ToLower(strings.TrimSpace(v.GetString("debrid.provider")))
	}
	if v.IsSet("debrid.apiKey") {
		s.Debrid.APIKey = strings.TrimSpace(v.GetString("debrid.apiKey"))
	}
	if v.IsSet("search.syntheticFallback") {
		s.Search.SyntheticFallback = v.GetBool("search.syntheticFallback")
	}
	if v.IsSet("resolution.maxResolve") {
		s.Resolution.MaxResolve = v.GetInt("resolution.maxResolve")
	}
	if v.IsSet("resolution.concurrency") {
		s.Resolution.Concurrency = v.GetInt("resolution.concurrency")
	}
	if v.IsSet("resolution.phaseTimeoutSec") {
		s.Resolution.PhaseTimeoutSec = v.GetInt("resolution.phaseTimeoutSec")
	}
	if v.IsSet("log.level") {
		s.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.file") {
		s.Log.File = v.GetString("log.file")
	}
	s.backfill()
}
