package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	zileanTimeout    = 10 * time.Second
	zileanMaxResults = 50
)

// ZileanScraper queries Zilean's DMM filtered API for hashes scraped from
// public debrid share lists.
type ZileanScraper struct {
	name       string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewZileanScraper constructs a Zilean scraper. An empty name falls back
// to "Zilean".
func NewZileanScraper(baseURL, name string, client *http.Client, logger zerolog.Logger) *ZileanScraper {
	if client == nil {
		client = &http.Client{Timeout: zileanTimeout}
	}
	z := &ZileanScraper{
		name:       strings.TrimSpace(name),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: client,
	}
	z.log = logger.With().Str("scraper", z.Name()).Logger()
	return z
}

func (z *ZileanScraper) Name() string {
	if z.name != "" {
		return z.name
	}
	return "Zilean"
}

// flexibleInt64 accepts both JSON numbers and numeric strings.
type flexibleInt64 int64

// Anything else decodes to zero rather than failing the whole payload.
func (fi *flexibleInt64) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			n = int64(f)
		}
	}
	*fi = flexibleInt64(n)
	return nil
}

type zileanItem struct {
	RawTitle   string        `json:"raw_title"`
	Size       flexibleInt64 `json:"size"`
	InfoHash   string        `json:"info_hash"`
	Resolution string        `json:"resolution"`
	Languages  []string      `json:"languages"`
	Year       int           `json:"year"`
	Season     int           `json:"season"`
	Episode    int           `json:"episode"`
	IMDBID     string        `json:"imdb_id"`
}

var (
	zileanEpisodeSuffix = regexp.MustCompile(`(?i)\s+s\d{1,2}(?:e\d{1,3})?$`)
	zileanQualitySuffix = regexp.MustCompile(`(?i)\s+(?:2160p|1080p|720p|480p|4k)$`)
	zileanYearSuffix    = regexp.MustCompile(`\s+((?:19|20)\d{2})$`)
)

// zileanQuery strips the episode, quality and year decorations the query
// variants add, since Zilean takes those as separate filters.
func zileanQuery(term string) (string, int) {
	q := strings.TrimSpace(term)
	q = zileanEpisodeSuffix.ReplaceAllString(q, "")
	q = zileanQualitySuffix.ReplaceAllString(q, "")
	year := 0
	if m := zileanYearSuffix.FindStringSubmatch(q); m != nil {
		year, _ = strconv.Atoi(m[1])
		q = strings.TrimSpace(q[:len(q)-len(m[0])])
	}
	return q, year
}

// CacheKey collapses query variants that map onto the same filtered lookup.
func (z *ZileanScraper) CacheKey(req SearchRequest) string {
	q, _ := zileanQuery(req.Query)
	if req.MediaType == "series" {
		return fmt.Sprintf("%s|%d|%d", strings.ToLower(q), req.Season, req.Episode)
	}
	return strings.ToLower(q)
}

func (z *ZileanScraper) Search(ctx context.Context, req SearchRequest) ([]ScrapeResult, error) {
	title, year := zileanQuery(req.Query)
	if title == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("Query", title)
	switch {
	case req.MediaType == "series" && req.Season > 0:
		params.Set("Season", strconv.Itoa(req.Season))
		if req.Episode > 0 {
			params.Set("Episode", strconv.Itoa(req.Episode))
		}
	case year > 0:
		params.Set("Year", strconv.Itoa(year))
	}
	if req.IMDBID != "" {
		params.Set("ImdbId", req.IMDBID)
	}

	items, err := z.get(ctx, params)
	if err != nil {
		return nil, err
	}
	results := z.toResults(items)

	limit := req.MaxResults
	if limit <= 0 {
		limit = zileanMaxResults
	}
	if len(results) > limit {
		results = results[:limit]
	}
	z.log.Debug().Str("query", title).Int("items", len(items)).Int("results", len(results)).Msg("search complete")
	return results, nil
}

func (z *ZileanScraper) get(ctx context.Context, params url.Values) ([]zileanItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, z.baseURL+"/dmm/filtered?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zilean request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("zilean returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var items []zileanItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode zilean response: %w", err)
	}
	return items, nil
}

// toResults drops hashless and repeated entries. DMM lists carry no seeder
// counts, so larger files go first.
func (z *ZileanScraper) toResults(items []zileanItem) []ScrapeResult {
	results := make([]ScrapeResult, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		hash := NormalizeInfoHash(item.InfoHash)
		if hash == "" {
			continue
		}
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		results = append(results, item.result(z.Name(), hash))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SizeBytes > results[j].SizeBytes
	})
	return results
}

func (item zileanItem) result(indexer, hash string) ScrapeResult {
	resolution := extractResolution(item.Resolution)
	if resolution == "" {
		resolution = extractResolution(item.RawTitle)
	}

	return ScrapeResult{
		Title:      item.RawTitle,
		Indexer:    indexer,
		Magnet:     BuildMagnet(hash, item.RawTitle, nil),
		InfoHash:   hash,
		FileIndex:  -1,
		SizeBytes:  int64(item.Size),
		Provider:   "DMM",
		Resolution: resolution,
	}
}
