package models

import "strings"

// Quality is the resolution tier detected in a release title.
type Quality string

const (
	Quality4K      Quality = "4K"
	Quality2160p   Quality = "2160p"
	Quality1080p   Quality = "1080p"
	Quality720p    Quality = "720p"
	Quality480p    Quality = "480p"
	QualityUnknown Quality = "unknown"
)

var qualityRanks = map[Quality]int{
	Quality4K:    5,
	Quality2160p: 4,
	Quality1080p: 3,
	Quality720p:  2,
	Quality480p:  1,
}

// Rank returns the position of q on the fixed quality ladder (unknown = 0).
func (q Quality) Rank() int {
	return qualityRanks[q]
}

// ParseQuality maps a loose label (e.g. "1080P", "uhd") onto the ladder.
func ParseQuality(label string) Quality {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "4k", "uhd":
		return Quality4K
	case "2160p":
		return Quality2160p
	case "1080p", "fhd":
		return Quality1080p
	case "720p", "hd":
		return Quality720p
	case "480p", "sd":
		return Quality480p
	default:
		return QualityUnknown
	}
}

// Candidate is a raw torrent reference produced by a search provider or the
// synthetic fallback generator. Candidates are never mutated once emitted.
type Candidate struct {
	Title           string `json:"title"`
	Magnet          string `json:"magnet,omitempty"`
	InfoHash        string `json:"infoHash"` // 40 lowercase hex chars
	Source          string `json:"source"`   // originating provider label
	Seeders         int    `json:"seeders"`
	FileIndex       int    `json:"fileIndex,omitempty"`
	DeclaredSize    uint64 `json:"declaredSize,omitempty"`
	DeclaredQuality string `json:"declaredQuality,omitempty"`
	Synthetic       bool   `json:"synthetic,omitempty"`

	// Requested episode, set for series so a season pack resolves to the
	// right file.
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`
}

// NormalizedInfo is the structured projection of a candidate title.
type NormalizedInfo struct {
	Quality    Quality `json:"quality"`
	SizeBytes  uint64  `json:"sizeBytes"`
	Codec      string  `json:"codec"`
	Audio      string  `json:"audio"`
	Channels   string  `json:"channels,omitempty"`
	Language   string  `json:"language"`
	Subtitle   string  `json:"subtitle"`
	Source     string  `json:"source"`
	VideoRange string  `json:"videoRange"`
	Site       string  `json:"site,omitempty"`
	Group      string  `json:"group,omitempty"`
	Seeders    uint    `json:"seeders"`
	Year       int     `json:"year,omitempty"`
	CleanTitle string  `json:"cleanTitle"`
}

// ResolutionState is the terminal state of a candidate after cache resolution.
type ResolutionState string

const (
	StateCachedInstant   ResolutionState = "cached_instant"
	StateCachedAfterWait ResolutionState = "cached_after_wait"
	StateTorrentOnly     ResolutionState = "torrent_only"
	StateFailed          ResolutionState = "failed"
)

// Cached reports whether the state carries a playable URL.
func (s ResolutionState) Cached() bool {
	return s == StateCachedInstant || s == StateCachedAfterWait
}

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindMissingCredential ErrorKind = "missing_credential"
	ErrorKindRemoteUnavailable ErrorKind = "remote_unavailable"
	ErrorKindNotCached         ErrorKind = "not_cached"
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
)

// ResolutionResult is the outcome of running one candidate through the resolver.
// StreamURL, Filename and SizeBytes are set only for cached states; ErrorKind
// is set for Failed and, as a diagnostic, for TorrentOnly.
type ResolutionResult struct {
	State     ResolutionState `json:"state"`
	StreamURL string          `json:"streamUrl,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	SizeBytes uint64          `json:"sizeBytes,omitempty"`
	ErrorKind ErrorKind       `json:"errorKind,omitempty"`
}

func TorrentOnly(kind ErrorKind) ResolutionResult {
	return ResolutionResult{State: StateTorrentOnly, ErrorKind: kind}
}

func Failed(kind ErrorKind) ResolutionResult {
	return ResolutionResult{State: StateFailed, ErrorKind: kind}
}

// SortKey is the tuple the ranker orders descriptors by.
type SortKey struct {
	Cached      bool   `json:"cached"`
	QualityRank int    `json:"qualityRank"`
	SizeBytes   uint64 `json:"sizeBytes"`
	Seeders     uint   `json:"seeders"`
}

// StreamDescriptor is the externally visible stream entry.
type StreamDescriptor struct {
	Name         string           `json:"name"`
	DisplayTitle string           `json:"title"`
	PlayableURL  string           `json:"url,omitempty"`
	InfoHash     string           `json:"infoHash,omitempty"`
	FileIndex    int              `json:"fileIdx,omitempty"`
	SortKey      SortKey          `json:"-"`
	Candidate    Candidate        `json:"-"`
	Info         NormalizedInfo   `json:"-"`
	Result       ResolutionResult `json:"-"`
}

// StreamQuery describes one stream listing request.
type StreamQuery struct {
	IMDBID    string
	MediaType string // movie or series
	Title     string
	Year      int
	Season    int
	Episode   int
}

// AnnotatedCandidate pairs a candidate with its normalized title attributes.
type AnnotatedCandidate struct {
	Candidate Candidate
	Info      NormalizedInfo
}
