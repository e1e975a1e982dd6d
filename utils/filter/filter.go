package filter

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
	"github.com/brahimtod123-lgtm/Souhail-torrent/utils/similarity"
)

// MaxYearDifference is the maximum difference in years allowed for movies.
const MaxYearDifference = 1

// badSources are screen recordings and pre-release copies nobody wants to stream.
var badSources = map[string]struct{}{
	"CAM": {},
	"TS":  {},
	"TC":  {},
	"SCR": {},
}

// Options contains the expected metadata and user preferences for filtering.
type Options struct {
	ExpectedTitle     string
	AlternateTitles   []string
	ExpectedYear      int
	IsMovie           bool
	ExcludeBadSources bool
	MinQuality        models.Quality // unknown or empty = no floor
	MaxSizeGB         float64        // 0 = no limit
	FilterOutTerms    []string       // case-insensitive substring match on the raw title
}

// IsBadSource reports whether the release is a cam, telesync, telecine or screener.
func IsBadSource(info models.NormalizedInfo) bool {
	_, bad := badSources[strings.ToUpper(info.Source)]
	return bad
}

// Results drops candidates that do not match the request or the configured
// preferences. Input order is preserved.
func Results(items []models.AnnotatedCandidate, opts Options, log zerolog.Logger) []models.AnnotatedCandidate {
	if len(items) == 0 {
		return items
	}

	titles := expectedTitles(opts.ExpectedTitle, opts.AlternateTitles)
	minRank := opts.MinQuality.Rank()
	maxBytes := uint64(opts.MaxSizeGB * 1073741824)

	kept := make([]models.AnnotatedCandidate, 0, len(items))
	for _, item := range items {
		if reason := rejectReason(item, opts, titles, minRank, maxBytes); reason != "" {
			log.Debug().Str("title", item.Candidate.Title).Str("reason", reason).Msg("rejecting candidate")
			continue
		}
		kept = append(kept, item)
	}

	log.Debug().Int("input", len(items)).Int("kept", len(kept)).Str("expected", opts.ExpectedTitle).Msg("filtered candidates")
	return kept
}

func rejectReason(item models.AnnotatedCandidate, opts Options, titles []string, minRank int, maxBytes uint64) string {
	if opts.ExcludeBadSources && IsBadSource(item.Info) {
		return "bad source " + item.Info.Source
	}

	if minRank > 0 && item.Info.Quality.Rank() < minRank {
		return "below minimum quality"
	}

	if maxBytes > 0 && item.Info.SizeBytes > maxBytes {
		return "exceeds size limit"
	}

	titleLower := strings.ToLower(item.Candidate.Title)
	for _, term := range opts.FilterOutTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(titleLower, term) {
			return "contains filtered term " + term
		}
	}

	// Synthetic entries are built from the query itself.
	if item.Candidate.Synthetic {
		return ""
	}

	if len(titles) > 0 && !matchesAny(titles, item.Candidate.Title) {
		return "title mismatch"
	}

	if opts.IsMovie && opts.ExpectedYear > 0 && item.Info.Year > 0 {
		if abs(item.Info.Year-opts.ExpectedYear) > MaxYearDifference {
			return "year mismatch"
		}
	}
	return ""
}

func expectedTitles(primary string, alternates []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, title := range append([]string{primary}, alternates...) {
		title = strings.TrimSpace(title)
		key := strings.ToLower(title)
		if title == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title)
	}
	return out
}

func matchesAny(titles []string, release string) bool {
	for _, title := range titles {
		if similarity.Relevant(title, release) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
