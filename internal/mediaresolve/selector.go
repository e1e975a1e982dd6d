package mediaresolve

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// File is one entry of a multi-file torrent as reported by the debrid service.
type File struct {
	ID    int // provider file id, 1-based on Real-Debrid
	Label string
	Bytes int64
}

// SelectionHints narrows down which file of a torrent should be played.
type SelectionHints struct {
	ReleaseTitle  string
	FileIndex     int // 0-based index reported by the scraper, -1 when unknown
	TargetSeason  int
	TargetEpisode int
}

// EpisodeCode captures a parsed SXXEXX code.
type EpisodeCode struct {
	Season  int
	Episode int
}

var (
	videoExtensions = map[string]struct{}{
		".mkv":  {},
		".mp4":  {},
		".m4v":  {},
		".avi":  {},
		".mov":  {},
		".mpg":  {},
		".mpeg": {},
		".ts":   {},
		".m2ts": {},
		".mts":  {},
		".wmv":  {},
		".webm": {},
	}
	episodeCodePattern   = regexp.MustCompile(`(?i)s(\d{1,2})\s*e(\d{1,3})`)
	episodeCrossPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,3})\b`)
	episodeAltPattern    = regexp.MustCompile(`(?i)ep(?:isode)?\.?\s*(\d{1,3})`)
	episodeNumberPattern = regexp.MustCompile(`[-_\s](\d{1,3})[-_\s\[\.]`)
	samplePattern        = regexp.MustCompile(`(?i)(^|[\W_])(sample|trailer|extras?)([\W_]|$)`)
)

// SelectFile picks the file to stream out of a torrent's file list. It
// returns the position in files (or -1) and a short reason for the choice.
//
// A scraper-reported file index wins when it points at a video (and, for
// series, at the requested episode). With a target episode, only files
// carrying that episode are considered; a pack that lacks the episode
// yields -1. Otherwise the largest non-sample video is chosen.
func SelectFile(files []File, hints SelectionHints) (int, string) {
	if len(files) == 0 {
		return -1, ""
	}

	target, hasEpisode := EpisodeCode{Season: hints.TargetSeason, Episode: hints.TargetEpisode}, hints.TargetSeason > 0 && hints.TargetEpisode > 0

	if hints.FileIndex >= 0 {
		for i, f := range files {
			if f.ID != hints.FileIndex+1 || !IsVideo(f.Label) {
				continue
			}
			if !hasEpisode || FileMatchesEpisode(f.Label, target) {
				return i, fmt.Sprintf("scraper file index %d", hints.FileIndex)
			}
		}
	}

	videos := make([]int, 0, len(files))
	for i, f := range files {
		if IsVideo(f.Label) {
			videos = append(videos, i)
		}
	}
	if len(videos) == 0 {
		// Nothing recognisable; let the caller fall back to the first link.
		return -1, "no video files"
	}

	if hasEpisode {
		var matching []int
		for _, idx := range videos {
			if FileMatchesEpisode(files[idx].Label, target) {
				matching = append(matching, idx)
			}
		}
		switch len(matching) {
		case 0:
			if _, single := ExtractEpisodeCode(hints.ReleaseTitle); single && len(videos) == 1 {
				return videos[0], "single-episode release"
			}
			return -1, fmt.Sprintf("no file matches target episode S%02dE%02d", target.Season, target.Episode)
		case 1:
			return matching[0], fmt.Sprintf("matched episode code S%02dE%02d", target.Season, target.Episode)
		default:
			return largest(files, matching), fmt.Sprintf("episode match S%02dE%02d, largest of %d", target.Season, target.Episode, len(matching))
		}
	}

	primary := make([]int, 0, len(videos))
	for _, idx := range videos {
		if !samplePattern.MatchString(NormalizeReleasePart(files[idx].Label)) {
			primary = append(primary, idx)
		}
	}
	if len(primary) == 0 {
		primary = videos
	}
	return largest(files, primary), "largest video file"
}

func largest(files []File, indices []int) int {
	best := -1
	for _, idx := range indices {
		if best == -1 || files[idx].Bytes > files[best].Bytes {
			best = idx
		}
	}
	return best
}

// IsVideo reports whether the path has a playable video extension.
func IsVideo(label string) bool {
	_, ok := videoExtensions[strings.ToLower(path.Ext(strings.TrimSpace(label)))]
	return ok
}

// NormalizeReleasePart reduces a path to its base name without extension.
func NormalizeReleasePart(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	normalized := strings.ReplaceAll(trimmed, "\\", "/")
	base := path.Base(normalized)
	if base == "." || base == "/" || base == "" {
		base = trimmed
	}
	if ext := path.Ext(base); ext != "" && IsVideo(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ExtractEpisodeCode tries to find an SXXEXX (or NxNN) code across multiple strings.
func ExtractEpisodeCode(parts ...string) (EpisodeCode, bool) {
	for _, part := range parts {
		if season, episode, ok := parseEpisodeFromString(part); ok {
			return EpisodeCode{Season: season, Episode: episode}, true
		}
	}
	return EpisodeCode{}, false
}

// FileMatchesEpisode checks whether a file path carries the target episode.
func FileMatchesEpisode(label string, target EpisodeCode) bool {
	name := NormalizeReleasePart(label)
	season, episode, ok := parseEpisodeFromString(name)
	if ok {
		return season == target.Season && episode == target.Episode
	}

	// Bare episode numbers are only trusted for season 1; in multi-season
	// packs "- 01" is ambiguous.
	if target.Season == 1 {
		if episode, ok := parseEpisodeNumber(name); ok {
			return episode == target.Episode
		}
	}
	return false
}

func parseEpisodeFromString(value string) (int, int, bool) {
	if strings.TrimSpace(value) == "" {
		return 0, 0, false
	}
	matches := episodeCodePattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		matches = episodeCrossPattern.FindStringSubmatch(value)
	}
	if len(matches) != 3 {
		return 0, 0, false
	}

	season, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, false
	}
	episode, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, false
	}
	return season, episode, true
}

// parseEpisodeNumber extracts a lone episode number from "Ep. 01",
// "Episode 01" or " - 01 - " style names.
func parseEpisodeNumber(value string) (int, bool) {
	if matches := episodeAltPattern.FindStringSubmatch(value); len(matches) == 2 {
		if episode, err := strconv.Atoi(matches[1]); err == nil && episode > 0 {
			return episode, true
		}
	}
	if matches := episodeNumberPattern.FindStringSubmatch(value); len(matches) == 2 {
		if episode, err := strconv.Atoi(matches[1]); err == nil && episode > 0 {
			return episode, true
		}
	}
	return 0, false
}
