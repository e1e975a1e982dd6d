package debrid

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider-agnostic torrent states. Clients map their native codes onto these.
const (
	StatusDownloaded     = "downloaded"
	StatusQueued         = "queued"
	StatusDownloading    = "downloading"
	StatusWaitingFiles   = "waiting_files_selection"
	StatusMagnetConvert  = "magnet_conversion"
	StatusMagnetError    = "magnet_error"
	StatusError          = "error"
	StatusVirus          = "virus"
	StatusDead           = "dead"
	StatusUnknown        = "unknown"
	selectAllFiles       = "all"
	defaultClientTimeout = 30 * time.Second
)

//go:generate mockgen -destination=mocks/provider_mock.go -package=mocks . Provider

// Provider is the remote debrid service contract used by the resolver.
type Provider interface {
	Name() string
	AddMagnet(ctx context.Context, magnetURL string) (*AddMagnetResult, error)
	SelectFiles(ctx context.Context, torrentID string, fileIDs string) error
	GetTorrentInfo(ctx context.Context, torrentID string) (*TorrentInfo, error)
	UnrestrictLink(ctx context.Context, link string) (*UnrestrictResult, error)
	DeleteTorrent(ctx context.Context, torrentID string) error
}

// AddMagnetResult is the remote registration created by AddMagnet.
type AddMagnetResult struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// TorrentInfo is the polled status of a registered torrent.
type TorrentInfo struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Hash     string   `json:"hash"`
	Bytes    int64    `json:"bytes"`
	Progress float64  `json:"progress"`
	Status   string   `json:"status"`
	Files    []File   `json:"files"`
	Links    []string `json:"links"`
}

// Ready reports whether the torrent is fully fetched and has a link to unrestrict.
func (t *TorrentInfo) Ready() bool {
	return t != nil && t.Status == StatusDownloaded && len(t.Links) > 0
}

// Dead reports whether the remote gave up on the torrent.
func (t *TorrentInfo) Dead() bool {
	if t == nil {
		return false
	}
	switch t.Status {
	case StatusMagnetError, StatusError, StatusVirus, StatusDead:
		return true
	}
	return false
}

// File is one entry of a registered torrent.
type File struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Selected int    `json:"selected"`
}

// UnrestrictResult is a directly playable link.
type UnrestrictResult struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Filesize    int64  `json:"filesize"`
	DownloadURL string `json:"download"`
}

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// ClientOption customises a provider client.
type ClientOption func(*clientOptions)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

func buildClientOptions(defaultBaseURL string, opts []ClientOption) clientOptions {
	o := clientOptions{
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		baseURL:    defaultBaseURL,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProviderFactory builds a provider for one credential.
type ProviderFactory func(apiKey string, opts ...ClientOption) Provider

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

// RegisterProvider makes a provider available by name. Clients register
// themselves from init.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(strings.TrimSpace(name))] = factory
}

// GetProvider builds the named provider, or returns false when unknown.
func GetProvider(name, apiKey string, opts ...ClientOption) (Provider, bool) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(apiKey, opts...), true
}

// ProviderNames lists the registered provider names, sorted.
func ProviderNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
