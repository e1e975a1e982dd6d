package debrid

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	jackettTimeout    = 30 * time.Second
	jackettMaxResults = 50
	jackettMaxBody    = 8 << 20
)

// JackettScraper searches every indexer configured in a Jackett instance
// through its aggregate Torznab endpoint.
type JackettScraper struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewJackettScraper constructs a Jackett scraper. An empty name falls back
// to "Jackett".
func NewJackettScraper(baseURL, apiKey, name string, client *http.Client, logger zerolog.Logger) *JackettScraper {
	if client == nil {
		client = &http.Client{Timeout: jackettTimeout}
	}
	j := &JackettScraper{
		name:       strings.TrimSpace(name),
		endpoint:   strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/v2.0/indexers/all/results/torznab/api",
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: client,
	}
	j.log = logger.With().Str("scraper", j.Name()).Logger()
	return j
}

func (j *JackettScraper) Name() string {
	if j.name != "" {
		return j.name
	}
	return "Jackett"
}

// torznabFeed is either an RSS channel or a Torznab <error> document.
type torznabFeed struct {
	XMLName xml.Name
	Code    string `xml:"code,attr"`
	Message string `xml:"description,attr"`
	Items   []struct {
		Title     string `xml:"title"`
		GUID      string `xml:"guid"`
		Link      string `xml:"link"`
		Size      int64  `xml:"size"`
		Enclosure struct {
			URL    string `xml:"url,attr"`
			Length int64  `xml:"length,attr"`
		} `xml:"enclosure"`
		Attrs []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:"value,attr"`
		} `xml:"attr"`
	} `xml:"channel>item"`
}

// searchMode picks the Torznab function. Episode lookups use tvsearch so
// indexers can match on season/ep instead of the free-text code.
func searchMode(req SearchRequest) url.Values {
	params := url.Values{}
	switch {
	case req.MediaType == "series" && req.Season > 0 && req.Episode > 0:
		params.Set("t", "tvsearch")
		params.Set("season", strconv.Itoa(req.Season))
		params.Set("ep", strconv.Itoa(req.Episode))
	case req.MediaType == "movie":
		params.Set("t", "movie")
		if id := strings.TrimPrefix(strings.TrimSpace(req.IMDBID), "tt"); id != "" {
			params.Set("imdbid", "tt"+id)
		}
	default:
		params.Set("t", "search")
	}
	return params
}

func (j *JackettScraper) Search(ctx context.Context, req SearchRequest) ([]ScrapeResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, nil
	}

	params := searchMode(req)
	params.Set("apikey", j.apiKey)
	params.Set("q", query)

	feed, err := j.get(ctx, params)
	if err != nil {
		return nil, err
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = jackettMaxResults
	}
	results := make([]ScrapeResult, 0, min(len(feed.Items), limit))
	seen := make(map[string]struct{}, len(feed.Items))
	skipped := 0
	for _, item := range feed.Items {
		if len(results) == limit {
			break
		}
		attrs := make(map[string]string, len(item.Attrs))
		for _, a := range item.Attrs {
			attrs[a.Name] = a.Value
		}

		var magnet string
		for _, link := range []string{item.Link, item.GUID, item.Enclosure.URL} {
			if strings.HasPrefix(link, "magnet:") {
				magnet = link
				break
			}
		}
		infoHash := NormalizeInfoHash(attrs["infohash"])
		if infoHash == "" && magnet != "" {
			infoHash, _ = InfoHashFromMagnet(magnet)
		}
		if infoHash == "" {
			// A bare .torrent URL cannot be handed to the debrid service.
			skipped++
			continue
		}
		if _, dup := seen[infoHash]; dup {
			continue
		}
		seen[infoHash] = struct{}{}
		if magnet == "" {
			magnet = BuildMagnet(infoHash, item.Title, nil)
		}

		size := item.Size
		for _, alt := range []int64{item.Enclosure.Length, parseInt64(attrs["size"])} {
			if size > 0 {
				break
			}
			size = alt
		}

		site := j.Name()
		for _, key := range []string{"tracker", "jackettindexer"} {
			if v := strings.TrimSpace(attrs[key]); v != "" {
				site = v
				break
			}
		}

		seeders, _ := strconv.Atoi(attrs["seeders"])
		results = append(results, ScrapeResult{
			Title:      item.Title,
			Indexer:    j.Name(),
			Magnet:     magnet,
			InfoHash:   infoHash,
			FileIndex:  -1,
			SizeBytes:  size,
			Seeders:    seeders,
			Provider:   site,
			Resolution: extractResolution(item.Title),
		})
	}

	j.log.Debug().
		Str("query", query).
		Str("mode", params.Get("t")).
		Int("results", len(results)).
		Int("withoutHash", skipped).
		Msg("search complete")
	return results, nil
}

func (j *JackettScraper) get(ctx context.Context, params url.Values) (*torznabFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jackett request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, jackettMaxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jackett returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var feed torznabFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse torznab feed: %w", err)
	}
	if feed.XMLName.Local == "error" {
		return nil, fmt.Errorf("jackett error %s: %s", feed.Code, feed.Message)
	}
	return &feed, nil
}

// extractResolution maps a release title onto the resolution labels the
// scrapers report.
func extractResolution(title string) string {
	title = strings.ToLower(title)
	switch {
	case strings.Contains(title, "2160p"), strings.Contains(title, "4k"), strings.Contains(title, "uhd"):
		return "4K"
	case strings.Contains(title, "1080p"), strings.Contains(title, "1080i"):
		return "1080p"
	case strings.Contains(title, "720p"):
		return "720p"
	case strings.Contains(title, "480p"):
		return "480p"
	}
	return ""
}

func parseInt64(value string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return n
}

func truncateBody(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
