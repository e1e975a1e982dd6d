package debrid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const (
	bitSearchDefaultBaseURL = "https://bitsearch.to"
	bitSearchMaxResults     = 20
	bitSearchDefaultSeeders = 100
)

var bitSearchSizePattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(GB|MB)`)

// BitSearchScraper scrapes the bitsearch HTML result list.
type BitSearchScraper struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewBitSearchScraper(baseURL string, client *http.Client, logger zerolog.Logger) *BitSearchScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = bitSearchDefaultBaseURL
	}
	return &BitSearchScraper{
		baseURL:    baseURL,
		httpClient: client,
		log:        logger.With().Str("scraper", "bitsearch").Logger(),
	}
}

func (b *BitSearchScraper) Name() string { return "BitSearch" }

func (b *BitSearchScraper) Search(ctx context.Context, req SearchRequest) ([]ScrapeResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&sort=seeders", b.baseURL, url.QueryEscape(query))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	addBrowserHeaders(httpReq)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bitsearch request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitsearch returned status %d", resp.StatusCode)
	}

	limit := bitSearchMaxResults
	if req.MaxResults > 0 && req.MaxResults < limit {
		limit = req.MaxResults
	}
	results, err := b.parse(io.LimitReader(resp.Body, 4<<20), limit)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("query", query).Int("results", len(results)).Msg("search complete")
	return results, nil
}

func (b *BitSearchScraper) parse(body io.Reader, limit int) ([]ScrapeResult, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var results []ScrapeResult
	doc.Find("li.search-result").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		title := strings.TrimSpace(row.Find("h5").First().Text())
		magnet, _ := row.Find(`a[href^="magnet:"]`).First().Attr("href")
		if title == "" || magnet == "" {
			return true
		}
		infoHash, err := InfoHashFromMagnet(magnet)
		if err != nil {
			return true
		}

		var size int64
		if match := bitSearchSizePattern.FindStringSubmatch(row.Text()); match != nil {
			size = parseBinarySize(match[1], match[2])
		}

		results = append(results, ScrapeResult{
			Title:      title,
			Indexer:    b.Name(),
			Magnet:     magnet,
			InfoHash:   infoHash,
			FileIndex:  -1,
			SizeBytes:  size,
			Seeders:    bitSearchDefaultSeeders,
			Provider:   b.Name(),
			Resolution: extractResolution(title),
		})
		return len(results) < limit
	})
	return results, nil
}
