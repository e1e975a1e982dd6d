package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

const DefaultCinemetaURL = "https://v3-cinemeta.strem.io"

var errNotFound = errors.New("title not found")

// Title is the subset of Cinemeta metadata the stream pipeline needs.
type Title struct {
	Name string
	Year int
}

// CinemetaClient resolves IMDB ids to names through the public Cinemeta addon.
type CinemetaClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *ttlcache.Cache[string, Title]
	log        zerolog.Logger

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

type cinemetaResponse struct {
	Meta *struct {
		Name        string          `json:"name"`
		Year        json.RawMessage `json:"year"`
		ReleaseInfo string          `json:"releaseInfo"`
	} `json:"meta"`
}

func NewCinemetaClient(baseURL string, client *http.Client, cacheTTL time.Duration, logger zerolog.Logger) *CinemetaClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultCinemetaURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &CinemetaClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  client,
		cache:       ttlcache.New(ttlcache.Options[string, Title]{}.SetDefaultTTL(cacheTTL)),
		log:         logger.With().Str("component", "cinemeta").Logger(),
		minInterval: 100 * time.Millisecond,
	}
}

// Lookup returns the display name and first release year of a title.
// Series ids may carry a ":season:episode" suffix, which is ignored.
func (c *CinemetaClient) Lookup(ctx context.Context, mediaType, imdbID string) (string, int, error) {
	title, err := c.Title(ctx, mediaType, imdbID)
	if err != nil {
		return "", 0, err
	}
	return title.Name, title.Year, nil
}

func (c *CinemetaClient) Title(ctx context.Context, mediaType, imdbID string) (Title, error) {
	imdbID = strings.TrimSpace(imdbID)
	if i := strings.IndexByte(imdbID, ':'); i >= 0 {
		imdbID = imdbID[:i]
	}
	if imdbID == "" {
		return Title{}, fmt.Errorf("cinemeta: empty id")
	}
	if !strings.HasPrefix(imdbID, "tt") {
		imdbID = "tt" + imdbID
	}
	if mediaType != "series" {
		mediaType = "movie"
	}

	cacheKey := mediaType + ":" + imdbID
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, mediaType, imdbID)
	var payload cinemetaResponse
	err := retry.Do(
		func() error {
			return c.fetch(ctx, url, &payload)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, errNotFound) && !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Uint("attempt", n+1).Err(err).Str("id", imdbID).Msg("retrying meta lookup")
		}),
	)
	if err != nil {
		return Title{}, fmt.Errorf("cinemeta %s %s: %w", mediaType, imdbID, err)
	}
	if payload.Meta == nil || strings.TrimSpace(payload.Meta.Name) == "" {
		return Title{}, fmt.Errorf("cinemeta %s %s: %w", mediaType, imdbID, errNotFound)
	}

	title := Title{
		Name: strings.TrimSpace(payload.Meta.Name),
		Year: parseYear(payload.Meta.Year, payload.Meta.ReleaseInfo),
	}
	c.cache.Set(cacheKey, title, ttlcache.DefaultTTL)
	c.log.Debug().Str("id", imdbID).Str("name", title.Name).Int("year", title.Year).Msg("resolved title")
	return title, nil
}

func (c *CinemetaClient) fetch(ctx context.Context, url string, out *cinemetaResponse) error {
	c.throttleMu.Lock()
	if since := time.Since(c.lastRequest); since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
	c.throttleMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return retry.Unrecoverable(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// parseYear accepts "2010", 2010 or ranges like "2008–2013".
func parseYear(raw json.RawMessage, releaseInfo string) int {
	candidates := []string{strings.Trim(string(raw), `"`), releaseInfo}
	for _, s := range candidates {
		s = strings.TrimSpace(s)
		if len(s) < 4 {
			continue
		}
		if year, err := strconv.Atoi(s[:4]); err == nil && year > 1800 {
			return year
		}
	}
	return 0
}
