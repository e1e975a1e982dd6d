package debrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// SearchConfig bounds candidate discovery.
type SearchConfig struct {
	MaxCandidates     int
	LowWaterMark      int
	MaxQueryAttempts  int
	LookupTimeout     time.Duration
	CacheTTL          time.Duration
	SyntheticFallback bool
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxCandidates:    25,
		LowWaterMark:     15,
		MaxQueryAttempts: 3,
		LookupTimeout:    10 * time.Second,
		CacheTTL:         10 * time.Minute,
	}
}

func (c SearchConfig) withDefaults() SearchConfig {
	def := DefaultSearchConfig()
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = def.MaxCandidates
	}
	if c.LowWaterMark < 0 {
		c.LowWaterMark = 0
	}
	if c.MaxQueryAttempts <= 0 {
		c.MaxQueryAttempts = def.MaxQueryAttempts
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = def.LookupTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	return c
}

// CandidateQuery describes what to look for. Terms are tried in order.
type CandidateQuery struct {
	Terms     []string
	IMDBID    string
	MediaType string
	Season    int
	Episode   int
}

// SearchService turns query variants into a deduplicated candidate list.
type SearchService struct {
	scrapers []Scraper
	cfg      SearchConfig
	cache    *ttlcache.Cache[string, []ScrapeResult]
	group    singleflight.Group
	log      zerolog.Logger
}

// NewSearchService constructs a candidate source over the given scrapers.
func NewSearchService(scrapers []Scraper, cfg SearchConfig, logger zerolog.Logger) *SearchService {
	cfg = cfg.withDefaults()
	active := make([]Scraper, 0, len(scrapers))
	for _, s := range scrapers {
		if s != nil {
			active = append(active, s)
		}
	}
	return &SearchService{
		scrapers: active,
		cfg:      cfg,
		cache:    ttlcache.New(ttlcache.Options[string, []ScrapeResult]{}.SetDefaultTTL(cfg.CacheTTL)),
		log:      logger.With().Str("component", "search").Logger(),
	}
}

// Scrapers returns the configured scraper names in query order.
func (s *SearchService) Scrapers() []string {
	names := make([]string, 0, len(s.scrapers))
	for _, sc := range s.scrapers {
		names = append(names, sc.Name())
	}
	return names
}

// FetchCandidates runs up to MaxQueryAttempts query variants against every
// scraper and returns at most maxResults candidates, unique by info-hash.
// A failing lookup is logged and skipped. The error is non-nil only when
// nothing was found and at least one lookup failed.
func (s *SearchService) FetchCandidates(ctx context.Context, q CandidateQuery, maxResults int) ([]models.Candidate, error) {
	if maxResults <= 0 {
		maxResults = s.cfg.MaxCandidates
	}

	terms := uniqueTerms(q.Terms)
	if len(terms) > s.cfg.MaxQueryAttempts {
		terms = terms[:s.cfg.MaxQueryAttempts]
	}

	var (
		candidates = make([]models.Candidate, 0, maxResults)
		seen       = make(map[string]struct{}, maxResults)
		errs       []error
	)

	for attempt, term := range terms {
		if ctx.Err() != nil {
			break
		}
		req := SearchRequest{
			Query:      term,
			IMDBID:     q.IMDBID,
			MediaType:  q.MediaType,
			Season:     q.Season,
			Episode:    q.Episode,
			MaxResults: maxResults,
		}
		batches := s.lookupAll(ctx, req)
		for _, batch := range batches {
			if batch.err != nil {
				s.log.Warn().Err(batch.err).Str("scraper", batch.scraper).Str("query", term).Msg("lookup failed")
				errs = append(errs, fmt.Errorf("%s %q: %w", batch.scraper, term, batch.err))
				continue
			}
			for _, res := range batch.results {
				if len(candidates) >= maxResults {
					break
				}
				c, ok := toCandidate(res, batch.scraper)
				if !ok {
					continue
				}
				if _, dup := seen[c.InfoHash]; dup {
					continue
				}
				seen[c.InfoHash] = struct{}{}
				candidates = append(candidates, c)
			}
		}
		s.log.Debug().Int("attempt", attempt+1).Str("query", term).Int("unique", len(candidates)).Msg("query variant done")
		if len(candidates) >= maxResults {
			break
		}
	}

	if s.cfg.SyntheticFallback && len(candidates) < s.cfg.LowWaterMark {
		title := ""
		if len(terms) > 0 {
			title = terms[len(terms)-1]
		}
		for _, c := range SyntheticCandidates(title) {
			if len(candidates) >= maxResults {
				break
			}
			if _, dup := seen[c.InfoHash]; dup {
				continue
			}
			seen[c.InfoHash] = struct{}{}
			candidates = append(candidates, c)
		}
		s.log.Info().Str("title", title).Int("total", len(candidates)).Msg("supplemented with synthetic candidates")
	}

	if len(candidates) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return candidates, nil
}

type lookupBatch struct {
	scraper string
	results []ScrapeResult
	err     error
}

// lookupAll queries every scraper concurrently. Batches come back in
// scraper order so the candidate list does not depend on network timing.
func (s *SearchService) lookupAll(ctx context.Context, req SearchRequest) []lookupBatch {
	batches := make([]lookupBatch, len(s.scrapers))
	p := pool.New().WithMaxGoroutines(max(1, len(s.scrapers)))
	for i, sc := range s.scrapers {
		p.Go(func() {
			results, err := s.lookup(ctx, sc, req)
			batches[i] = lookupBatch{scraper: sc.Name(), results: results, err: err}
		})
	}
	p.Wait()
	return batches
}

func (s *SearchService) lookup(ctx context.Context, sc Scraper, req SearchRequest) ([]ScrapeResult, error) {
	key := scraperCacheKey(sc, req)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()
		start := time.Now()
		results, err := sc.Search(lookupCtx, req)
		if err != nil {
			return nil, err
		}
		s.log.Debug().Str("scraper", sc.Name()).Int("results", len(results)).Dur("elapsed", time.Since(start)).Msg("lookup")
		s.cache.Set(key, results, ttlcache.DefaultTTL)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ScrapeResult), nil
}

// toCandidate normalizes one scrape result. Results carrying neither a
// magnet nor a hash get a synthesized identity from their title.
func toCandidate(res ScrapeResult, scraper string) (models.Candidate, bool) {
	title := strings.TrimSpace(res.Title)
	magnet := strings.TrimSpace(res.Magnet)
	hash := NormalizeInfoHash(res.InfoHash)
	if hash == "" && magnet != "" {
		hash, _ = InfoHashFromMagnet(magnet)
	}
	if hash == "" {
		if title == "" {
			return models.Candidate{}, false
		}
		hash = SyntheticInfoHash(title)
	}
	if magnet == "" {
		magnet = BuildMagnet(hash, deriveTitle(title), nil)
	}

	source := strings.TrimSpace(res.Provider)
	if source == "" {
		source = scraper
	}
	seeders := max(res.Seeders, 0)
	var size uint64
	if res.SizeBytes > 0 {
		size = uint64(res.SizeBytes)
	}
	return models.Candidate{
		Title:           title,
		Magnet:          magnet,
		InfoHash:        hash,
		Source:          source,
		Seeders:         seeders,
		FileIndex:       res.FileIndex,
		DeclaredSize:    size,
		DeclaredQuality: res.Resolution,
	}, true
}

func uniqueTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.Join(strings.Fields(t), " ")
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
