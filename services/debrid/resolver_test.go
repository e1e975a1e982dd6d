package debrid_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/debrid"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/debrid/mocks"
)

const (
	testAPIKey   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
	testInfoHash = "0123456789abcdef0123456789abcdef01234567"
)

func testResolverConfig() debrid.ResolverConfig {
	return debrid.ResolverConfig{
		CallTimeout:    time.Second,
		PollInterval:   5 * time.Millisecond,
		PollAttempts:   3,
		CleanupTimeout: time.Second,
	}
}

func newMockProvider(t *testing.T) *mocks.MockProvider {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("mock").AnyTimes()
	return provider
}

func testCandidate() models.Candidate {
	return models.Candidate{
		Title:    "Inception 2010 1080p BluRay x264",
		InfoHash: testInfoHash,
		Source:   "test",
	}
}

func readyInfo() *debrid.TorrentInfo {
	return &debrid.TorrentInfo{ID: "T1", Status: debrid.StatusDownloaded, Links: []string{"https://host/abc"}}
}

func TestResolveCachedInstant(t *testing.T) {
	provider := newMockProvider(t)
	gomock.InOrder(
		provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil),
		provider.EXPECT().SelectFiles(gomock.Any(), "T1", "all").Return(nil),
		provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(readyInfo(), nil).Times(1),
		provider.EXPECT().UnrestrictLink(gomock.Any(), "https://host/abc").Return(&debrid.UnrestrictResult{
			Filename:    "Inception.mkv",
			Filesize:    2 << 30,
			DownloadURL: "https://cdn/Inception.mkv",
		}, nil),
		provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil).Times(1),
	)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateCachedInstant, result.State)
	assert.Equal(t, "https://cdn/Inception.mkv", result.StreamURL)
	assert.Equal(t, "Inception.mkv", result.Filename)
	assert.Equal(t, uint64(2<<30), result.SizeBytes)
	assert.Empty(t, result.ErrorKind)
}

func TestResolveCachedAfterWait(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), "T1", "all").Return(nil)
	gomock.InOrder(
		provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(&debrid.TorrentInfo{ID: "T1", Status: debrid.StatusDownloading}, nil),
		provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(readyInfo(), nil),
	)
	provider.EXPECT().UnrestrictLink(gomock.Any(), gomock.Any()).Return(&debrid.UnrestrictResult{DownloadURL: "https://cdn/file"}, nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateCachedAfterWait, result.State)
	assert.Equal(t, "https://cdn/file", result.StreamURL)
}

func seasonPackInfo() *debrid.TorrentInfo {
	return &debrid.TorrentInfo{
		ID:     "T1",
		Status: debrid.StatusDownloaded,
		Files: []debrid.File{
			{ID: 1, Path: "/Dark.S01/Dark.S01E01.1080p.mkv", Bytes: 2 << 30, Selected: 1},
			{ID: 2, Path: "/Dark.S01/Dark.S01E02.1080p.mkv", Bytes: 2 << 30, Selected: 1},
			{ID: 3, Path: "/Dark.S01/Dark.S01E03.1080p.mkv", Bytes: 2 << 30, Selected: 1},
		},
		Links: []string{"https://host/e1", "https://host/e2", "https://host/e3"},
	}
}

func TestResolveSeasonPackPicksEpisode(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), "T1", "all").Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(seasonPackInfo(), nil)
	provider.EXPECT().UnrestrictLink(gomock.Any(), "https://host/e2").
		Return(&debrid.UnrestrictResult{Filename: "Dark.S01E02.1080p.mkv", DownloadURL: "https://cdn/e2"}, nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil)

	candidate := models.Candidate{Title: "Dark S01 1080p", InfoHash: testInfoHash, FileIndex: -1, Season: 1, Episode: 2}
	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), candidate)

	assert.Equal(t, models.StateCachedInstant, result.State)
	assert.Equal(t, "https://cdn/e2", result.StreamURL)
}

func TestResolveSeasonPackWithoutEpisodeIsTorrentOnly(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), "T1", "all").Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(seasonPackInfo(), nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil)

	candidate := models.Candidate{Title: "Dark S01 1080p", InfoHash: testInfoHash, FileIndex: -1, Season: 1, Episode: 9}
	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), candidate)

	assert.Equal(t, models.StateTorrentOnly, result.State)
	assert.Equal(t, models.ErrorKindNotCached, result.ErrorKind)
	assert.Empty(t, result.StreamURL)
}

func TestResolveNeverReadyIsTorrentOnly(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").
		Return(&debrid.TorrentInfo{ID: "T1", Status: debrid.StatusQueued}, nil).
		Times(3)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateTorrentOnly, result.State)
	assert.Equal(t, models.ErrorKindNotCached, result.ErrorKind)
	assert.Empty(t, result.StreamURL)
}

func TestResolveDeadTorrentStopsPolling(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").
		Return(&debrid.TorrentInfo{ID: "T1", Status: debrid.StatusMagnetError}, nil).
		Times(1)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateTorrentOnly, result.State)
}

func TestResolveUnrestrictFailureIsTorrentOnly(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(readyInfo(), nil)
	provider.EXPECT().UnrestrictLink(gomock.Any(), gomock.Any()).
		Return(nil, &debrid.Error{Kind: models.ErrorKindRemoteUnavailable, Op: "unrestrict", StatusCode: 503})
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateTorrentOnly, result.State)
	assert.Equal(t, models.ErrorKindRemoteUnavailable, result.ErrorKind)
}

func TestResolveSubmitFailureIsFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"remote", &debrid.Error{Kind: models.ErrorKindRemoteUnavailable, StatusCode: 500}, models.ErrorKindRemoteUnavailable},
		{"malformed", &debrid.Error{Kind: models.ErrorKindMalformedResponse}, models.ErrorKindMalformedResponse},
		{"untyped", errors.New("boom"), models.ErrorKindRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newMockProvider(t)
			provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
			result := r.Resolve(context.Background(), testCandidate())

			assert.Equal(t, models.StateFailed, result.State)
			assert.Equal(t, tt.want, result.ErrorKind)
		})
	}
}

func TestResolveSelectFilesFailureContinues(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("already selected"))
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(readyInfo(), nil)
	provider.EXPECT().UnrestrictLink(gomock.Any(), gomock.Any()).Return(&debrid.UnrestrictResult{DownloadURL: "https://cdn/file"}, nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateCachedInstant, result.State)
}

func TestResolveCleanupFailureKeepsResult(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(readyInfo(), nil)
	provider.EXPECT().UnrestrictLink(gomock.Any(), gomock.Any()).Return(&debrid.UnrestrictResult{DownloadURL: "https://cdn/file"}, nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(errors.New("delete failed")).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateCachedInstant, result.State)
	assert.Equal(t, "https://cdn/file", result.StreamURL)
}

func TestResolveCleanupRunsAfterDeadline(t *testing.T) {
	provider := newMockProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string) error {
			cancel()
			return nil
		})
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(nil, context.Canceled).AnyTimes()
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").DoAndReturn(
		func(cleanupCtx context.Context, _ string) error {
			assert.NoError(t, cleanupCtx.Err())
			return nil
		}).Times(1)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	result := r.Resolve(ctx, testCandidate())

	assert.Equal(t, models.StateTorrentOnly, result.State)
}

func TestResolveMissingCredentialMakesNoCalls(t *testing.T) {
	keys := []string{"", "   ", "short-key", "ABCDEFGHIJ KLMNOPQRSTUVWXYZ"}
	for _, key := range keys {
		provider := newMockProvider(t)
		r := debrid.NewResolver(provider, key, testResolverConfig(), zerolog.Nop())

		assert.False(t, r.Enabled())
		result := r.Resolve(context.Background(), testCandidate())
		assert.Equal(t, models.StateFailed, result.State, "key %q", key)
		assert.Equal(t, models.ErrorKindMissingCredential, result.ErrorKind, "key %q", key)
	}
}

func TestResolveMissingCredentialNoHTTPTraffic(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := debrid.NewRealDebridClient("", debrid.WithBaseURL(server.URL))
	r := debrid.NewResolver(client, "", testResolverConfig(), zerolog.Nop())
	result := r.Resolve(context.Background(), testCandidate())

	assert.Equal(t, models.StateFailed, result.State)
	assert.Equal(t, models.ErrorKindMissingCredential, result.ErrorKind)
	assert.Zero(t, hits.Load())
}

func TestResolveNilProvider(t *testing.T) {
	r := debrid.NewResolver(nil, testAPIKey, testResolverConfig(), zerolog.Nop())
	assert.False(t, r.Enabled())
	assert.Equal(t, models.Failed(models.ErrorKindMissingCredential), r.Resolve(context.Background(), testCandidate()))
}

func TestResolveSyntheticNeverContactsProvider(t *testing.T) {
	provider := newMockProvider(t)
	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())

	candidate := testCandidate()
	candidate.Synthetic = true
	result := r.Resolve(context.Background(), candidate)

	assert.Equal(t, models.StateTorrentOnly, result.State)
}

func TestResolveWithoutMagnetOrHash(t *testing.T) {
	provider := newMockProvider(t)
	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())

	result := r.Resolve(context.Background(), models.Candidate{Title: "nothing"})
	assert.Equal(t, models.StateFailed, result.State)
}

func TestValidateCredential(t *testing.T) {
	require.NoError(t, debrid.ValidateCredential(testAPIKey))
	require.NoError(t, debrid.ValidateCredential("  "+testAPIKey+"\n"))

	err := debrid.ValidateCredential("abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, debrid.ErrMissingCredential))
	assert.Equal(t, models.ErrorKindMissingCredential, debrid.KindOf(err))
}

func TestCheckHealthSkipsLeadingSample(t *testing.T) {
	info := &debrid.TorrentInfo{
		ID:     "T1",
		Status: debrid.StatusDownloaded,
		Files: []debrid.File{
			{ID: 1, Path: "/Movie.2019/Sample/movie.sample.mkv", Bytes: 40 << 20, Selected: 1},
			{ID: 2, Path: "/Movie.2019/Movie.2019.1080p.mkv", Bytes: 8 << 30, Selected: 1},
		},
		Links: []string{"https://host/sample", "https://host/main"},
	}

	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), "T1", "all").Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(info, nil)
	provider.EXPECT().UnrestrictLink(gomock.Any(), "https://host/main").
		Return(&debrid.UnrestrictResult{Filename: "Movie.2019.1080p.mkv", DownloadURL: "https://cdn/main"}, nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	check, err := r.CheckHealth(context.Background(), testInfoHash)
	require.NoError(t, err)
	assert.True(t, check.Healthy)
	assert.Equal(t, "https://cdn/main", check.StreamURL)
}

func TestCheckHealth(t *testing.T) {
	provider := newMockProvider(t)
	provider.EXPECT().AddMagnet(gomock.Any(), gomock.Any()).Return(&debrid.AddMagnetResult{ID: "T1"}, nil)
	provider.EXPECT().SelectFiles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	provider.EXPECT().GetTorrentInfo(gomock.Any(), "T1").Return(readyInfo(), nil)
	provider.EXPECT().UnrestrictLink(gomock.Any(), gomock.Any()).Return(&debrid.UnrestrictResult{DownloadURL: "https://cdn/file", Filename: "f.mkv"}, nil)
	provider.EXPECT().DeleteTorrent(gomock.Any(), "T1").Return(nil)

	r := debrid.NewResolver(provider, testAPIKey, testResolverConfig(), zerolog.Nop())
	check, err := r.CheckHealth(context.Background(), "magnet:?xt=urn:btih:"+testInfoHash)
	require.NoError(t, err)
	assert.True(t, check.Healthy)
	assert.True(t, check.Cached)
	assert.Equal(t, "mock", check.Provider)
	assert.Equal(t, testInfoHash, check.InfoHash)
	assert.Equal(t, "f.mkv", check.Filename)

	_, err = r.CheckHealth(context.Background(), "not-a-hash")
	assert.Error(t, err)
}
