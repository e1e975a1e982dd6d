package streams

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// Line markers, in display order.
const (
	glyphTitle    = "🎬"
	glyphSize     = "💾"
	glyphQuality  = "📽️"
	glyphSeeders  = "👤"
	glyphCodec    = "🎞️"
	glyphAudio    = "🔊"
	glyphLanguage = "🌍"
	glyphSubtitle = "💬"
	glyphSource   = "🧲"
	glyphCached   = "⚡"
	glyphTorrent  = "⏳"
	glyphFailed   = "⚠️"
)

// FormatTitle renders the multi-line display string of a stream. The line
// order is fixed: title, size, quality, seeders, codec, audio, language,
// subtitle, source, cache state.
func FormatTitle(c models.Candidate, info models.NormalizedInfo, result models.ResolutionResult, provider string) string {
	title := info.CleanTitle
	if info.Year > 0 && !strings.Contains(title, strconv.Itoa(info.Year)) {
		title = fmt.Sprintf("%s (%d)", title, info.Year)
	}

	size := "Unknown size"
	if info.SizeBytes > 0 {
		size = humanize.IBytes(info.SizeBytes)
	}

	quality := string(info.Quality)
	if info.Quality == models.QualityUnknown || quality == "" {
		quality = "Unknown quality"
	}
	if info.VideoRange != "" {
		quality = fmt.Sprintf("%s • %s", quality, info.VideoRange)
	}

	audio := info.Audio
	if info.Channels != "" {
		audio = fmt.Sprintf("%s %s", audio, info.Channels)
	}

	source := info.Source
	origin := c.Source
	if info.Site != "" {
		origin = info.Site
	}
	if origin != "" && !strings.EqualFold(origin, source) {
		source = fmt.Sprintf("%s • %s", source, origin)
	}

	lines := []string{
		glyphTitle + " " + title,
		glyphSize + " " + size,
		glyphQuality + " " + quality,
		glyphSeeders + " " + strconv.FormatUint(uint64(info.Seeders), 10),
		glyphCodec + " " + info.Codec,
		glyphAudio + " " + audio,
		glyphLanguage + " " + info.Language,
		glyphSubtitle + " " + info.Subtitle,
		glyphSource + " " + source,
		cacheLine(c, result, provider),
	}
	return strings.Join(lines, "\n")
}

func cacheLine(c models.Candidate, result models.ResolutionResult, provider string) string {
	label := strings.ToUpper(shortProvider(provider))
	switch {
	case c.Synthetic:
		return glyphTorrent + " Torrent (synthetic estimate)"
	case result.State.Cached():
		if label == "" {
			return glyphCached + " Cached"
		}
		return glyphCached + " " + label + " Cached"
	case result.State == models.StateFailed:
		return glyphFailed + " Torrent (" + strings.ReplaceAll(string(result.ErrorKind), "_", " ") + ")"
	default:
		return glyphTorrent + " Torrent"
	}
}

// FormatName renders the short left-hand label of a stream.
func FormatName(addonName string, info models.NormalizedInfo, result models.ResolutionResult, provider string) string {
	name := strings.TrimSpace(addonName)
	if name == "" {
		name = "Souhail"
	}
	tag := "TORRENT"
	if result.State.Cached() {
		tag = strings.ToUpper(shortProvider(provider))
		if tag == "" {
			tag = "CACHED"
		}
		tag = glyphCached + tag
	}
	quality := string(info.Quality)
	if info.Quality == models.QualityUnknown {
		quality = "?"
	}
	return fmt.Sprintf("%s [%s]\n%s", name, tag, quality)
}

func shortProvider(provider string) string {
	switch strings.ToLower(provider) {
	case "realdebrid":
		return "RD"
	case "alldebrid":
		return "AD"
	default:
		return provider
	}
}
