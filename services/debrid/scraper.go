package debrid

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
)

// SearchRequest provides normalized inputs to scraper implementations.
type SearchRequest struct {
	Query      string
	IMDBID     string // optional, e.g. "tt1375666"
	MediaType  string // "movie" or "series"
	Season     int
	Episode    int
	MaxResults int
}

// Scraper describes a pluggable source capable of returning torrent releases.
type Scraper interface {
	Name() string
	Search(ctx context.Context, req SearchRequest) ([]ScrapeResult, error)
}

// cacheKeyer lets a scraper declare which request fields change its answer.
// Scrapers keyed by IMDB ID ignore the free-text query, so every query
// variant of one request shares a single lookup.
type cacheKeyer interface {
	CacheKey(req SearchRequest) string
}

func scraperCacheKey(s Scraper, req SearchRequest) string {
	if k, ok := s.(cacheKeyer); ok {
		return s.Name() + "|" + k.CacheKey(req)
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d", s.Name(), strings.ToLower(strings.TrimSpace(req.Query)), req.IMDBID, req.Season, req.Episode)
}

// ScrapeResult represents the scraper-specific payload prior to normalization.
type ScrapeResult struct {
	Title      string
	Indexer    string
	Magnet     string
	InfoHash   string
	FileIndex  int
	SizeBytes  int64
	Seeders    int
	Provider   string // tracker or site the release came from
	Resolution string
}

func addBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json,text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
}

// parseBinarySize reads sizes like "1.2 GB" as binary multiples, which is
// what torrent sites mean by GB.
func parseBinarySize(value, unit string) int64 {
	unit = strings.ToUpper(strings.TrimSpace(unit))
	if len(unit) == 2 && unit[1] == 'B' {
		unit = unit[:1] + "iB"
	}
	parsed, err := humanize.ParseBytes(strings.ReplaceAll(value, ",", "") + " " + unit)
	if err != nil {
		return 0
	}
	return int64(parsed)
}
