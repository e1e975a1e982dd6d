package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const torrentioDefaultBaseURL = "https://torrentio.strem.fun"

// TorrentioScraper asks a torrentio instance for the streams of an IMDB
// title. It ignores free-text queries.
type TorrentioScraper struct {
	name       string
	baseURL    string
	options    string // path options, e.g. "sort=qualitysize|qualityfilter=480p,scr,cam"
	httpClient *http.Client
	log        zerolog.Logger
}

// NewTorrentioScraper constructs a scraper. An empty baseURL selects the
// public instance; an empty name falls back to "torrentio".
func NewTorrentioScraper(client *http.Client, baseURL, options, name string, logger zerolog.Logger) *TorrentioScraper {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = torrentioDefaultBaseURL
	}
	t := &TorrentioScraper{
		name:       strings.TrimSpace(name),
		baseURL:    baseURL,
		options:    strings.Trim(strings.TrimSpace(options), "/"),
		httpClient: client,
	}
	t.log = logger.With().Str("scraper", t.Name()).Logger()
	return t
}

func (t *TorrentioScraper) Name() string {
	if t.name != "" {
		return t.name
	}
	return "torrentio"
}

// CacheKey identifies a lookup by title and episode only.
func (t *TorrentioScraper) CacheKey(req SearchRequest) string {
	return fmt.Sprintf("%s|%s", strings.ToLower(strings.TrimSpace(req.IMDBID)), streamIDSuffix(req))
}

func (t *TorrentioScraper) Search(ctx context.Context, req SearchRequest) ([]ScrapeResult, error) {
	imdbID := strings.TrimSpace(req.IMDBID)
	if imdbID == "" {
		return nil, nil
	}

	mediaType := "movie"
	streamID := imdbID
	if req.MediaType == "series" {
		mediaType = "series"
		streamID = imdbID + streamIDSuffix(req)
	}

	payload, err := t.fetch(ctx, mediaType, streamID)
	if err != nil {
		return nil, err
	}

	results := make([]ScrapeResult, 0, len(payload.Streams))
	seen := make(map[string]struct{}, len(payload.Streams))
	for _, stream := range payload.Streams {
		result, ok := t.toResult(stream)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%s:%d", result.InfoHash, result.FileIndex)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, result)
		if req.MaxResults > 0 && len(results) >= req.MaxResults {
			break
		}
	}
	t.log.Debug().Str("streamId", streamID).Int("results", len(results)).Msg("search complete")
	return results, nil
}

func streamIDSuffix(req SearchRequest) string {
	if req.MediaType != "series" || req.Season <= 0 || req.Episode <= 0 {
		return ""
	}
	return fmt.Sprintf(":%d:%d", req.Season, req.Episode)
}

type torrentioStream struct {
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	InfoHash      string         `json:"infoHash"`
	FileIdx       *int           `json:"fileIdx"`
	Size          flexibleInt64  `json:"size"`
	Seeders       *flexibleInt64 `json:"seeders"`
	BehaviorHints struct {
		OpenTrackers []string `json:"openTrackers"`
		Filename     string   `json:"filename"`
	} `json:"behaviorHints"`
}

type torrentioResponse struct {
	Streams []torrentioStream `json:"streams"`
}

// The description block looks like
// "Release.Name\n👤 42 💾 1.2 GB ⚙️ ThePirateBay".
var (
	torrentioSizePattern    = regexp.MustCompile(`💾\s*([\d.,]+)\s*([KMGTP]?B)`)
	torrentioSeedersPattern = regexp.MustCompile(`👤\s*(\d+)`)
	torrentioSitePattern    = regexp.MustCompile(`⚙️?\s*([^\n]+)`)
)

func (t *TorrentioScraper) fetch(ctx context.Context, mediaType, id string) (*torrentioResponse, error) {
	endpoint := t.baseURL
	if t.options != "" {
		endpoint += "/" + t.options
	}
	endpoint += fmt.Sprintf("/stream/%s/%s.json", mediaType, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	addBrowserHeaders(req)
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("torrentio request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("torrentio %s returned %d: %s", id, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload torrentioResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode torrentio response: %w", err)
	}
	return &payload, nil
}

func (t *TorrentioScraper) toResult(stream torrentioStream) (ScrapeResult, bool) {
	infoHash := NormalizeInfoHash(stream.InfoHash)
	if infoHash == "" {
		return ScrapeResult{}, false
	}

	label := strings.TrimSpace(stream.Name)
	description := strings.TrimSpace(stream.Title)
	releaseName, _, _ := strings.Cut(description, "\n")
	releaseName = strings.TrimSpace(releaseName)

	fileIdx := -1
	if stream.FileIdx != nil {
		fileIdx = *stream.FileIdx
	}

	size := int64(stream.Size)
	if m := torrentioSizePattern.FindStringSubmatch(description); m != nil {
		size = parseBinarySize(m[1], m[2])
	}

	seeders := 0
	if stream.Seeders != nil {
		seeders = int(*stream.Seeders)
	} else if m := torrentioSeedersPattern.FindStringSubmatch(description); m != nil {
		seeders, _ = strconv.Atoi(m[1])
	}

	site := ""
	if m := torrentioSitePattern.FindStringSubmatch(description); m != nil {
		site = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), "Multi Audio"))
	}

	trackers := make([]string, 0, len(stream.BehaviorHints.OpenTrackers))
	for _, tr := range stream.BehaviorHints.OpenTrackers {
		if tr = strings.TrimSpace(tr); tr != "" {
			trackers = append(trackers, tr)
		}
	}

	return ScrapeResult{
		Title:      description,
		Indexer:    t.Name(),
		Magnet:     BuildMagnet(infoHash, releaseName, trackers),
		InfoHash:   infoHash,
		FileIndex:  fileIdx,
		SizeBytes:  size,
		Seeders:    seeders,
		Provider:   site,
		Resolution: extractResolution(label + " " + description),
	}, true
}

// deriveTitle returns the first line of a multi-line stream description.
func deriveTitle(raw string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	return strings.TrimSpace(first)
}
