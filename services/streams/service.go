package streams

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/debrid"
	"github.com/brahimtod123-lgtm/Souhail-torrent/utils/filter"
	"github.com/brahimtod123-lgtm/Souhail-torrent/utils/parsett"
)

// CandidateSource produces deduplicated candidates for a set of query terms.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, q debrid.CandidateQuery, maxResults int) ([]models.Candidate, error)
}

// Resolver checks a single candidate against the debrid cache.
type Resolver interface {
	Resolve(ctx context.Context, candidate models.Candidate) models.ResolutionResult
	ProviderName() string
	Enabled() bool
}

// TitleLookup maps an IMDB id to a display name and release year.
type TitleLookup interface {
	Lookup(ctx context.Context, mediaType, imdbID string) (name string, year int, err error)
}

// Config bounds one BuildStreams call.
type Config struct {
	MaxCandidates int
	MaxResolve    int
	Concurrency   int
	PhaseTimeout  time.Duration
	MaxStreams    int
	AddonName     string

	// Preference part of the candidate filter. Expected title and year
	// are filled per request.
	Filter filter.Options
}

func DefaultConfig() Config {
	return Config{
		MaxCandidates: 25,
		MaxResolve:    12,
		Concurrency:   6,
		PhaseTimeout:  25 * time.Second,
		MaxStreams:    20,
		AddonName:     "💥🟢SOUHAIL/RD🟢💥",
		Filter:        filter.Options{ExcludeBadSources: true},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = def.MaxCandidates
	}
	if c.MaxResolve < 0 {
		c.MaxResolve = 0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PhaseTimeout <= 0 {
		c.PhaseTimeout = def.PhaseTimeout
	}
	if c.MaxStreams <= 0 {
		c.MaxStreams = def.MaxStreams
	}
	if strings.TrimSpace(c.AddonName) == "" {
		c.AddonName = def.AddonName
	}
	return c
}

// Dependencies are the collaborators of a Service. Titles, Parser and
// Metrics are optional.
type Dependencies struct {
	Source   CandidateSource
	Resolver Resolver
	Titles   TitleLookup
	Parser   *parsett.Parser
	Metrics  *Metrics
}

// Service turns a stream request into a ranked list of descriptors.
type Service struct {
	cfg      Config
	source   CandidateSource
	resolver Resolver
	titles   TitleLookup
	parser   *parsett.Parser
	metrics  *Metrics
	log      zerolog.Logger
}

func NewService(cfg Config, deps Dependencies, logger zerolog.Logger) *Service {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	parser := deps.Parser
	if parser == nil {
		parser = parsett.NewParser(30 * time.Minute)
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		source:   deps.Source,
		resolver: deps.Resolver,
		titles:   deps.Titles,
		parser:   parser,
		metrics:  metrics,
		log:      logger.With().Str("component", "streams").Logger(),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

type resolved struct {
	idx    int
	result models.ResolutionResult
}

// BuildStreams runs the full pipeline for one request. It never fails:
// problems degrade individual entries or yield an empty list.
func (s *Service) BuildStreams(ctx context.Context, query models.StreamQuery) []models.StreamDescriptor {
	requestID := uuid.NewString()
	log := s.log.With().
		Str("request_id", requestID).
		Str("imdb_id", query.IMDBID).
		Str("type", query.MediaType).
		Logger()
	s.metrics.RequestsTotal.Inc()

	title, year := s.resolveTitle(ctx, query, log)

	candidates := s.fetch(ctx, query, title, year, log)
	s.metrics.CandidatesFound.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		log.Info().Str("title", title).Msg("no candidates found, returning empty stream list")
		s.metrics.StreamsReturned.Observe(0)
		return []models.StreamDescriptor{}
	}

	annotated := s.annotate(candidates)
	opts := s.cfg.Filter
	opts.ExpectedTitle = title
	opts.ExpectedYear = year
	opts.IsMovie = query.MediaType != "series"
	annotated = filter.Results(annotated, opts, log)
	annotated = dedupe(annotated)
	if len(annotated) == 0 {
		log.Info().Int("candidates", len(candidates)).Msg("all candidates filtered out, returning empty stream list")
		s.metrics.StreamsReturned.Observe(0)
		return []models.StreamDescriptor{}
	}

	if query.MediaType == "series" {
		for i := range annotated {
			annotated[i].Candidate.Season = query.Season
			annotated[i].Candidate.Episode = query.Episode
		}
	}
	results := s.resolveAll(ctx, annotated, log)

	provider := ""
	if s.resolver != nil {
		provider = s.resolver.ProviderName()
	}
	descriptors := make([]models.StreamDescriptor, 0, len(annotated))
	for i, item := range annotated {
		descriptors = append(descriptors, s.describe(item, results[i], provider))
	}

	ranked := RankAndCap(descriptors, s.cfg.MaxStreams)
	s.metrics.StreamsReturned.Observe(float64(len(ranked)))
	log.Info().
		Int("candidates", len(candidates)).
		Int("kept", len(annotated)).
		Int("streams", len(ranked)).
		Int("cached", countCached(ranked)).
		Msg("streams built")
	return ranked
}

func (s *Service) resolveTitle(ctx context.Context, query models.StreamQuery, log zerolog.Logger) (string, int) {
	title := strings.TrimSpace(query.Title)
	year := query.Year
	if title != "" || s.titles == nil || query.IMDBID == "" {
		return title, year
	}
	name, metaYear, err := s.titles.Lookup(ctx, query.MediaType, query.IMDBID)
	if err != nil {
		log.Warn().Err(err).Msg("title lookup failed, searching by id only")
		return "", year
	}
	if year == 0 {
		year = metaYear
	}
	return strings.TrimSpace(name), year
}

func (s *Service) fetch(ctx context.Context, query models.StreamQuery, title string, year int, log zerolog.Logger) []models.Candidate {
	if s.source == nil {
		log.Warn().Msg("no candidate source configured")
		return nil
	}
	q := debrid.CandidateQuery{
		Terms:     QueryVariants(query, title, year),
		IMDBID:    query.IMDBID,
		MediaType: query.MediaType,
		Season:    query.Season,
		Episode:   query.Episode,
	}
	candidates, err := s.source.FetchCandidates(ctx, q, s.cfg.MaxCandidates)
	if err != nil {
		s.metrics.CandidateFetchErrs.Inc()
		log.Warn().Err(err).Strs("terms", q.Terms).Msg("candidate lookup failed")
	}
	return candidates
}

// QueryVariants returns the search terms tried for a request, most specific
// first.
func QueryVariants(query models.StreamQuery, title string, year int) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		if query.IMDBID == "" {
			return nil
		}
		return []string{query.IMDBID}
	}
	if query.MediaType == "series" && query.Season > 0 {
		variants := make([]string, 0, 3)
		if query.Episode > 0 {
			variants = append(variants, fmt.Sprintf("%s S%02dE%02d", title, query.Season, query.Episode))
		}
		return append(variants, fmt.Sprintf("%s S%02d", title, query.Season), title)
	}
	variants := make([]string, 0, 3)
	if year > 0 {
		variants = append(variants, fmt.Sprintf("%s %d", title, year))
	}
	return append(variants, title+" 1080p", title)
}

func (s *Service) annotate(candidates []models.Candidate) []models.AnnotatedCandidate {
	out := make([]models.AnnotatedCandidate, 0, len(candidates))
	for _, c := range candidates {
		info := s.parser.Normalize(c.Title)
		// Counts reported by the source beat whatever the title text says.
		if c.DeclaredSize > 0 {
			info.SizeBytes = c.DeclaredSize
		}
		if c.Seeders > 0 {
			info.Seeders = uint(c.Seeders)
		}
		if info.Quality == models.QualityUnknown && c.DeclaredQuality != "" {
			info.Quality = models.ParseQuality(c.DeclaredQuality)
		}
		out = append(out, models.AnnotatedCandidate{Candidate: c, Info: info})
	}
	return out
}

// dedupe drops repeated info-hashes, keeping the first occurrence.
func dedupe(items []models.AnnotatedCandidate) []models.AnnotatedCandidate {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Candidate.InfoHash))
		if key == "" {
			key = "title:" + strings.ToLower(item.Candidate.Title)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// resolveAll resolves up to MaxResolve real candidates under the phase
// deadline. Every other entry comes back TorrentOnly.
func (s *Service) resolveAll(ctx context.Context, items []models.AnnotatedCandidate, log zerolog.Logger) []models.ResolutionResult {
	results := make([]models.ResolutionResult, len(items))
	for i := range results {
		results[i] = models.TorrentOnly(models.ErrorKindNotCached)
	}

	if s.resolver == nil || !s.resolver.Enabled() {
		log.Warn().Msg("debrid credential missing, serving torrent-only streams")
		for i := range results {
			results[i] = models.TorrentOnly(models.ErrorKindMissingCredential)
		}
		return results
	}

	targets := make([]int, 0, s.cfg.MaxResolve)
	for i, item := range items {
		if len(targets) == s.cfg.MaxResolve {
			break
		}
		if item.Candidate.Synthetic {
			continue
		}
		targets = append(targets, i)
	}
	if len(targets) == 0 {
		return results
	}

	phaseCtx, cancel := context.WithTimeout(ctx, s.cfg.PhaseTimeout)
	defer cancel()
	started := time.Now()

	// Buffered so late workers never block once the collector gives up.
	out := make(chan resolved, len(targets))
	go func() {
		p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
		for _, idx := range targets {
			candidate := items[idx].Candidate
			p.Go(func() {
				if phaseCtx.Err() != nil {
					return
				}
				begin := time.Now()
				res := s.resolver.Resolve(phaseCtx, candidate)
				s.metrics.ResolveDuration.Observe(time.Since(begin).Seconds())
				out <- resolved{idx: idx, result: res}
			})
		}
		p.Wait()
		close(out)
	}()

	done := make(map[int]bool, len(targets))
	accept := func(r resolved) {
		res := r.result
		if phaseCtx.Err() != nil && !res.State.Cached() {
			res = models.TorrentOnly(models.ErrorKindRemoteUnavailable)
		}
		results[r.idx] = res
		done[r.idx] = true
	}

collect:
	for len(done) < len(targets) {
		select {
		case r, ok := <-out:
			if !ok {
				break collect
			}
			accept(r)
		case <-phaseCtx.Done():
			break collect
		}
	}
drain:
	for {
		select {
		case r, ok := <-out:
			if !ok {
				break drain
			}
			accept(r)
		default:
			break drain
		}
	}

	abandoned := 0
	for _, idx := range targets {
		if !done[idx] {
			results[idx] = models.TorrentOnly(models.ErrorKindRemoteUnavailable)
			abandoned++
		}
		s.metrics.observeResult(results[idx])
	}
	s.metrics.PhaseDuration.Observe(time.Since(started).Seconds())
	if abandoned > 0 {
		s.metrics.DeadlineAbandoned.Add(float64(abandoned))
		log.Warn().
			Int("abandoned", abandoned).
			Dur("deadline", s.cfg.PhaseTimeout).
			Msg("resolution phase deadline reached")
	}
	log.Debug().
		Int("resolved", len(targets)).
		Int("remainder", len(items)-len(targets)).
		Dur("elapsed", time.Since(started)).
		Msg("resolution phase finished")
	return results
}

func (s *Service) describe(item models.AnnotatedCandidate, result models.ResolutionResult, provider string) models.StreamDescriptor {
	info := item.Info
	if result.State.Cached() && info.SizeBytes == 0 {
		info.SizeBytes = result.SizeBytes
	}
	d := models.StreamDescriptor{
		Name:         FormatName(s.cfg.AddonName, info, result, provider),
		DisplayTitle: FormatTitle(item.Candidate, info, result, provider),
		SortKey:      SortKeyFor(info, result),
		Candidate:    item.Candidate,
		Info:         info,
		Result:       result,
	}
	if result.State.Cached() {
		d.PlayableURL = result.StreamURL
		return d
	}
	d.InfoHash = item.Candidate.InfoHash
	if item.Candidate.FileIndex >= 0 {
		d.FileIndex = item.Candidate.FileIndex
	}
	return d
}

func countCached(ds []models.StreamDescriptor) int {
	n := 0
	for _, d := range ds {
		if d.SortKey.Cached {
			n++
		}
	}
	return n
}
