package parsett

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/moistari/rls"
	"golang.org/x/text/unicode/norm"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// Fallback values for attributes a title does not mention.
const (
	DefaultCodec      = "H.264"
	DefaultAudio      = "AC3"
	DefaultLanguage   = "English"
	DefaultSubtitle   = "EN"
	DefaultSource     = "WEB-DL"
	DefaultVideoRange = "SDR"

	UnknownTitle = "Unknown title"

	// MaxCleanTitleRunes bounds the display title, ellipsis included.
	MaxCleanTitleRunes = 55
)

const (
	bytesPerGiB = 1073741824
	bytesPerMiB = 1048576
	ellipsis    = "…"
)

type tokenRule struct {
	label string
	re    *regexp.Regexp
}

func rule(label, expr string) tokenRule {
	return tokenRule{label: label, re: regexp.MustCompile(expr)}
}

var (
	sizePattern         = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(GiB|GB|MiB|MB)\b`)
	yearPattern         = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	channelPattern      = regexp.MustCompile(`(?i)\b([1-9]\.[01])(?:ch)?\b`)
	// Channels glued to an audio tag, as in DDP5.1 or AAC2.0.
	audioChannelPattern = regexp.MustCompile(`(\d)[ .]?([01])$`)
	bracketPattern      = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	thousandsPattern    = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	// A bare "seed" followed by a number is usually part of the name
	// ("The Bad Seed 2018"), so the word form needs a separator.
	seedersGlyphPattern = regexp.MustCompile(`(?:👤|👥)\s*(\d+)`)
	seedersPattern      = regexp.MustCompile(`(?i)(?:👤|👥|\bseed(?:er)?s?\s*[:=])\s*(\d+)|\b(\d+)\s*seed(?:er)?s\b`)

	// Tested high to low; the first tier that matches wins.
	qualityRules = []tokenRule{
		rule(string(models.Quality4K), `(?i)\b(?:4K|UHD)\b`),
		rule(string(models.Quality2160p), `(?i)\b2160p\b`),
		rule(string(models.Quality1080p), `(?i)\b(?:1080p|FHD)\b`),
		rule(string(models.Quality720p), `(?i)\b720p\b|(?:^|[^\w-])HD(?:[^\w-]|$)`),
		rule(string(models.Quality480p), `(?i)\b480p\b|(?:^|[^\w-])SD(?:[^\w-]|$)`),
	}

	rangeRules = []tokenRule{
		rule("Dolby Vision", `(?i)\b(?:dolby[ .-]?vision|dovi|dv)\b`),
		rule("HDR", `(?i)\bhdr(?:10)?\b|\bhdr10\+|\bhdr10plus\b`),
	}

	bitDepthRules = []tokenRule{
		rule("", `(?i)\b(?:8|10|12)[ -]?bits?\b`),
	}

	codecRules = []tokenRule{
		rule("H.265", `(?i)\b(?:[xh][ .]?265|hevc)\b`),
		rule("H.264", `(?i)\b(?:[xh][ .]?264|avc)\b`),
		rule("AV1", `(?i)\bav1\b`),
		rule("VP9", `(?i)\bvp9\b`),
		rule("XviD", `(?i)\b(?:xvid|divx)\b`),
	}

	audioRules = []tokenRule{
		rule("TrueHD", `(?i)\btrue-?hd\b`),
		rule("Atmos", `(?i)\batmos\b`),
		rule("DTS-HD", `(?i)\bdts-?hd(?:[ .-]?ma)?\b|\bdts[:-]?x\b`),
		rule("DTS", `(?i)\bdts\b`),
		rule("DD+", `(?i)\b(?:e-?ac-?3|ddp(?:\d[ .]?\d)?|dd\+(?:\d[ .]?\d)?)`),
		rule("AC3", `(?i)\b(?:ac-?3|dd(?:\d[ .]?\d)?)\b`),
		rule("AAC", `(?i)\baac(?:\d[ .]?\d)?\b`),
		rule("FLAC", `(?i)\bflac\b`),
		rule("Opus", `(?i)\bopus\b`),
		rule("MP3", `(?i)\bmp3\b`),
	}

	// Full language names only count when written in release style (upper
	// case), so words like "Italian" in a movie name survive.
	languageRules = []tokenRule{
		rule("Multi", `(?i)\bmulti(?:[ .-]?(?:audio|lang))?\b`),
		rule("Dual Audio", `(?i)\bdual[ .-]?audio\b`),
		rule("English", `\bENGLISH\b`),
		rule("French", `\b(?:TRUEFRENCH|FRENCH|VFF|VF2)\b`),
		rule("Spanish", `\b(?:SPANISH|CASTELLANO|LATINO)\b`),
		rule("German", `\bGERMAN\b`),
		rule("Italian", `\b(?:ITALIAN|iTALiAN)\b`),
		rule("Russian", `\bRUSSIAN\b`),
		rule("Hindi", `\b(?:HINDI|Hindi)\b`),
		rule("Japanese", `\bJAPANESE\b`),
		rule("Korean", `\bKOREAN\b`),
		rule("Portuguese", `\b(?:PORTUGUESE|PT-BR)\b`),
	}
	languageCodePattern = regexp.MustCompile(`\b(ENG|FRE|FRA|SPA|ESP|GER|DEU|ITA|RUS|JPN|KOR|POR|HIN|ARA|CHI|ZHO|DUT|NLD|POL|TUR)\b`)

	subtitleRules = []tokenRule{
		rule("FR", `(?i)\bvostfr\b`),
		rule("Multi", `(?i)\bmulti[ .-]?subs?\b`),
		rule("EN", `(?i)\b(?:e-?subs?|eng[ .-]?subs?)\b`),
		rule("EN", `(?i)\b(?:subs?|subbed|subtitles?|hardsubs?)\b`),
	}

	// Screen recordings first so "DVDScr" is not read as a DVD rip.
	sourceRules = []tokenRule{
		rule("CAM", `(?i)\b(?:hd-?cam|cam-?rip|cam)\b`),
		rule("TS", `(?i)\b(?:hd-?ts|telesync|ts)\b`),
		rule("TC", `(?i)\b(?:hd-?tc|telecine|tc)\b`),
		rule("SCR", `(?i)\b(?:dvd-?scr|screener|scr)\b`),
		rule("REMUX", `(?i)\b(?:bd)?remux\b`),
		rule("BluRay", `(?i)\b(?:blu-?ray|bd-?rip|br-?rip|bd25|bd50)\b`),
		rule("WEBRip", `(?i)\bweb-?rip\b`),
		rule("WEB-DL", `(?i)\b(?:web[ .-]?dl|web)\b`),
		rule("HDRip", `(?i)\bhd-?rip\b`),
		rule("HDTV", `(?i)\bhdtv\b`),
		rule("DVDRip", `(?i)\b(?:dvd-?rip|dvd5|dvd9|dvd)\b`),
	}

	siteRules = []tokenRule{
		rule("YTS", `(?i)\b(?:yts(?:\.[a-z]{2,3})?|yify)\b`),
		rule("RARBG", `(?i)\brarbg\b`),
		rule("ThePirateBay", `(?i)\b(?:thepiratebay|tpb)\b`),
		rule("1337x", `(?i)\b1337x\b`),
		rule("EZTV", `(?i)\beztv(?:\.[a-z]{2,3})?\b`),
		rule("TorrentGalaxy", `(?i)\b(?:torrentgalaxy|tgx)\b`),
	}

	technicalRules = concatRules(qualityRules, rangeRules, bitDepthRules, codecRules, audioRules, languageRules,
		subtitleRules, sourceRules, siteRules,
		[]tokenRule{
			{re: sizePattern},
			{re: seedersPattern},
			{re: channelPattern},
			{re: languageCodePattern},
		})
)

func concatRules(groups ...[]tokenRule) []tokenRule {
	var out []tokenRule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// match returns the label of the first matching rule and the working copy
// with every rule of the group removed.
func match(work string, rules []tokenRule) (string, string, bool) {
	for _, r := range rules {
		if r.re.MatchString(work) {
			return r.label, stripRules(work, rules), true
		}
	}
	return "", work, false
}

func stripRules(work string, rules []tokenRule) string {
	for _, r := range rules {
		work = r.re.ReplaceAllString(work, " ")
	}
	return work
}

// Normalize parses a free-text torrent title into structured attributes.
// It never fails: anything the title does not say falls back to the package
// defaults.
func Normalize(raw string) models.NormalizedInfo {
	raw = norm.NFC.String(raw)
	info := models.NormalizedInfo{
		Quality:    models.QualityUnknown,
		Codec:      DefaultCodec,
		Audio:      DefaultAudio,
		Language:   DefaultLanguage,
		Subtitle:   DefaultSubtitle,
		Source:     DefaultSource,
		VideoRange: DefaultVideoRange,
	}
	work := strings.ReplaceAll(raw, "_", " ")
	technical := false

	if m := sizePattern.FindStringSubmatch(work); m != nil {
		info.SizeBytes = parseSize(m[1], m[2])
		work = sizePattern.ReplaceAllString(work, " ")
		technical = true
	}

	if label, rest, ok := match(work, qualityRules); ok {
		info.Quality = models.Quality(label)
		work, technical = rest, true
	}
	if label, rest, ok := match(work, rangeRules); ok {
		info.VideoRange = label
		work, technical = rest, true
	}
	work = stripRules(work, bitDepthRules)

	if m := seedersPattern.FindStringSubmatch(work); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if g := seedersGlyphPattern.FindStringSubmatch(work); g != nil {
			digits = g[1]
		}
		if n, err := strconv.ParseUint(digits, 10, 32); err == nil {
			info.Seeders = uint(n)
		}
		work = seedersPattern.ReplaceAllString(work, " ")
	}

	if label, rest, ok := match(work, codecRules); ok {
		info.Codec = label
		work, technical = rest, true
	}

	for _, r := range audioRules {
		if m := r.re.FindString(work); m != "" {
			info.Audio = r.label
			if ch := audioChannelPattern.FindStringSubmatch(m); ch != nil {
				info.Channels = ch[1] + "." + ch[2]
			}
			work, technical = stripRules(work, audioRules), true
			break
		}
	}
	if ch := channelPattern.FindStringSubmatch(work); ch != nil {
		if info.Channels == "" {
			info.Channels = ch[1]
		}
		work = channelPattern.ReplaceAllString(work, " ")
	}

	if label, rest, ok := match(work, languageRules); ok {
		info.Language = label
		work = rest
	} else if m := languageCodePattern.FindStringSubmatch(work); m != nil {
		info.Language = LanguageName(m[1])
		work = languageCodePattern.ReplaceAllString(work, " ")
	}

	if label, rest, ok := match(work, subtitleRules); ok {
		info.Subtitle = label
		work = rest
	}

	if label, rest, ok := match(work, sourceRules); ok {
		info.Source = label
		work, technical = rest, true
	}
	if label, rest, ok := match(work, siteRules); ok {
		info.Site = label
		work = rest
	}

	if years := yearPattern.FindAllString(work, -1); len(years) > 0 {
		info.Year, _ = strconv.Atoi(years[len(years)-1])
	}

	release := rls.ParseString(firstLine(raw))
	if technical && release.Group != "" {
		info.Group = release.Group
		work = regexp.MustCompile(`(?i)-`+regexp.QuoteMeta(release.Group)+`\b`).ReplaceAllString(work, " ")
	}
	if info.Site == "" && release.Site != "" {
		info.Site = release.Site
	}
	if info.Year == 0 && release.Year > 0 {
		info.Year = release.Year
	}

	info.CleanTitle = cleanTitle(work)
	return info
}

func parseSize(number, unit string) uint64 {
	if thousandsPattern.MatchString(number) {
		number = strings.ReplaceAll(number, ",", "")
	} else {
		number = strings.ReplaceAll(number, ",", ".")
	}
	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0
	}
	switch strings.ToUpper(unit) {
	case "GB", "GIB":
		return uint64(value * bytesPerGiB)
	case "MB", "MIB":
		return uint64(value * bytesPerMiB)
	}
	return 0
}

func cleanTitle(work string) string {
	work = firstLine(work)
	work = bracketPattern.ReplaceAllString(work, " ")
	work = strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '_':
			return ' '
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
			return r
		case strings.ContainsRune("'-:&!,?…", r):
			return r
		}
		return ' '
	}, work)

	// Stripping can expose new tokens (WEB_DL becomes "WEB DL"), so repeat
	// until nothing technical is left.
	for i := 0; i < 4; i++ {
		next := stripRules(work, technicalRules)
		if next == work {
			break
		}
		work = next
	}

	title := strings.Trim(strings.Join(strings.Fields(work), " "), " -:,&")
	if title == "" {
		return UnknownTitle
	}

	first, size := utf8.DecodeRuneInString(title)
	title = string(unicode.ToUpper(first)) + title[size:]

	return truncate(title, MaxCleanTitleRunes)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func truncate(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	cut := runes[:limit-1]
	if idx := lastSpace(cut); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(string(cut), " -:,&") + ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// Parser memoizes Normalize for titles that show up across repeated lookups.
type Parser struct {
	cache *ttlcache.Cache[string, models.NormalizedInfo]
}

func NewParser(ttl time.Duration) *Parser {
	return &Parser{
		cache: ttlcache.New(ttlcache.Options[string, models.NormalizedInfo]{}.SetDefaultTTL(ttl)),
	}
}

func (p *Parser) Normalize(raw string) models.NormalizedInfo {
	if p == nil || p.cache == nil {
		return Normalize(raw)
	}
	if cached, ok := p.cache.Get(raw); ok {
		return cached
	}
	info := Normalize(raw)
	p.cache.Set(raw, info, ttlcache.DefaultTTL)
	return info
}
