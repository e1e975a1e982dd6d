package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brahimtod123-lgtm/Souhail-torrent/config"
	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

func TestBuildScrapers(t *testing.T) {
	configs := []config.TorrentScraperConfig{
		{Name: "Torrentio", Type: "torrentio", Enabled: true},
		{Name: "Off", Type: "bitsearch", Enabled: false},
		{Name: "RARBG", Type: "TorrentAPI", Enabled: true},
		{Name: "Jackett", Type: "jackett", Enabled: true},
		{Name: "Mine", Type: "jackett", URL: "http://jackett:9117", APIKey: "key", Enabled: true},
		{Name: "Weird", Type: "prowlarr", Enabled: true},
		{Name: "BitSearch", Type: "bitsearch", Enabled: true},
		{Name: "DMM", Type: "zilean", Enabled: true},
		{Name: "", Type: "zilean", URL: "http://zilean:8181", Enabled: true},
	}

	scrapers := BuildScrapers(configs, http.DefaultClient, zerolog.Nop())
	names := make([]string, 0, len(scrapers))
	for _, s := range scrapers {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"Torrentio", "RARBG", "Mine", "BitSearch", "Zilean"}, names)
}

func TestBuildResolver(t *testing.T) {
	settings := config.DefaultSettings()
	assert.False(t, BuildResolver(settings, zerolog.Nop()).Enabled(), "no key configured")

	settings.Debrid.APIKey = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
	r := BuildResolver(settings, zerolog.Nop())
	assert.True(t, r.Enabled())
	assert.Equal(t, "realdebrid", r.ProviderName())

	settings.Debrid.Provider = "alldebrid"
	assert.Equal(t, "alldebrid", BuildResolver(settings, zerolog.Nop()).ProviderName())

	settings.Debrid.Provider = "premiumize"
	assert.False(t, BuildResolver(settings, zerolog.Nop()).Enabled())
}

func TestNewWithoutCredentialServesTorrentOnly(t *testing.T) {
	var debridHits atomic.Int32
	debridSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		debridHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer debridSrv.Close()

	torrentio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"streams":[{"name":"Torrentio\n1080p","title":"Inception.2010.1080p.BluRay.x264\n👤 120 💾 2.1 GB ⚙️ ThePirateBay","infoHash":"0123456789abcdef0123456789abcdef01234567"}]}`))
	}))
	defer torrentio.Close()

	settings := config.DefaultSettings()
	settings.Debrid.BaseURL = debridSrv.URL
	settings.TorrentScrapers = []config.TorrentScraperConfig{
		{Name: "Torrentio", Type: "torrentio", URL: torrentio.URL, Enabled: true},
	}

	a := New(settings, prometheus.NewRegistry(), zerolog.Nop())
	require.False(t, a.Resolver.Enabled())

	list := a.Streams.BuildStreams(context.Background(), models.StreamQuery{
		IMDBID:    "tt1375666",
		MediaType: "movie",
		Title:     "Inception",
		Year:      2010,
	})
	require.Len(t, list, 1)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", list[0].InfoHash)
	assert.Empty(t, list[0].PlayableURL)
	assert.Equal(t, models.StateTorrentOnly, list[0].Result.State)
	assert.Zero(t, debridHits.Load())
}
