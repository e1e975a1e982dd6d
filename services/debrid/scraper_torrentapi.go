package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	torrentAPIDefaultBaseURL = "https://torrentapi.org/pubapi_v2.php"
	torrentAPIAppID          = "stremio_souhail"
	torrentAPIUserAgent      = "stremio-addon-souhail/1.0"
	torrentAPIMaxResults     = 25
	torrentAPIDefaultSeeders = 50
	torrentAPITokenTTL       = 14 * time.Minute
)

// torrentapi error codes that ask for a fresh token.
const (
	torrentAPIErrNoToken      = 2
	torrentAPIErrInvalidToken = 4
	torrentAPIErrNoResults    = 20
)

// TorrentAPIScraper searches the torrentapi JSON index by free text.
type TorrentAPIScraper struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu        sync.Mutex
	token     string
	tokenTime time.Time
}

func NewTorrentAPIScraper(baseURL string, client *http.Client, logger zerolog.Logger) *TorrentAPIScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = torrentAPIDefaultBaseURL
	}
	return &TorrentAPIScraper{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: client,
		log:        logger.With().Str("scraper", "torrentapi").Logger(),
	}
}

func (s *TorrentAPIScraper) Name() string { return "RARBG" }

type torrentAPIResponse struct {
	Token     string `json:"token"`
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error"`
	Results   []struct {
		Title    string `json:"title"`
		InfoHash string `json:"info_hash"`
		Download string `json:"download"`
		Size     int64  `json:"size"`
		Seeders  int    `json:"seeders"`
		Category string `json:"category"`
	} `json:"torrent_results"`
}

func (s *TorrentAPIScraper) Search(ctx context.Context, req SearchRequest) ([]ScrapeResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, nil
	}

	payload, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if payload.ErrorCode == torrentAPIErrNoToken || payload.ErrorCode == torrentAPIErrInvalidToken {
		s.resetToken()
		if payload, err = s.search(ctx, query); err != nil {
			return nil, err
		}
	}
	switch payload.ErrorCode {
	case 0:
	case torrentAPIErrNoResults:
		return nil, nil
	default:
		return nil, fmt.Errorf("torrentapi error %d: %s", payload.ErrorCode, payload.Error)
	}

	limit := torrentAPIMaxResults
	if req.MaxResults > 0 && req.MaxResults < limit {
		limit = req.MaxResults
	}

	results := make([]ScrapeResult, 0, min(limit, len(payload.Results)))
	for _, item := range payload.Results {
		if len(results) >= limit {
			break
		}
		infoHash := NormalizeInfoHash(item.InfoHash)
		if infoHash == "" && strings.HasPrefix(item.Download, "magnet:") {
			infoHash, _ = InfoHashFromMagnet(item.Download)
		}
		if infoHash == "" {
			continue
		}
		magnet := item.Download
		if !strings.HasPrefix(magnet, "magnet:") {
			magnet = BuildMagnet(infoHash, item.Title, nil)
		}
		seeders := item.Seeders
		if seeders <= 0 {
			seeders = torrentAPIDefaultSeeders
		}
		results = append(results, ScrapeResult{
			Title:      item.Title,
			Indexer:    s.Name(),
			Magnet:     magnet,
			InfoHash:   infoHash,
			FileIndex:  -1,
			SizeBytes:  item.Size,
			Seeders:    seeders,
			Provider:   s.Name(),
			Resolution: extractResolution(item.Title),
		})
	}
	s.log.Debug().Str("query", query).Int("results", len(results)).Msg("search complete")
	return results, nil
}

func (s *TorrentAPIScraper) search(ctx context.Context, query string) (*torrentAPIResponse, error) {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("app_id", torrentAPIAppID)
	params.Set("mode", "search")
	params.Set("search_string", query)
	params.Set("format", "json_extended")
	params.Set("sort", "seeders")
	params.Set("token", token)
	return s.get(ctx, params)
}

func (s *TorrentAPIScraper) ensureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Since(s.tokenTime) < torrentAPITokenTTL {
		return s.token, nil
	}
	params := url.Values{}
	params.Set("get_token", "get_token")
	params.Set("app_id", torrentAPIAppID)
	payload, err := s.get(ctx, params)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("fetch token: empty token")
	}
	s.token = payload.Token
	s.tokenTime = time.Now()
	return s.token, nil
}

func (s *TorrentAPIScraper) resetToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *TorrentAPIScraper) get(ctx context.Context, params url.Values) (*torrentAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", torrentAPIUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("torrentapi request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torrentapi returned status %d", resp.StatusCode)
	}
	var payload torrentAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode torrentapi response: %w", err)
	}
	return &payload, nil
}
