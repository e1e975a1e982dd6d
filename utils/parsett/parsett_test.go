package parsett

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

func TestNormalizeSize(t *testing.T) {
	tests := []struct {
		title string
		want  uint64
	}{
		{"Movie 1.8 GB", 1932735283},
		{"Movie 450 MB", 471859200},
		{"Movie 1.5 GiB", 1610612736},
		{"Movie 700MiB", 734003200},
		{"Movie 2,5 gb", 2684354560},
		{"Movie 1,024 MB", 1073741824},
		{"Movie", 0},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.title).SizeBytes)
		})
	}
}

func TestNormalizeQualityPrecedence(t *testing.T) {
	tests := []struct {
		title string
		want  models.Quality
	}{
		{"Movie 720p 2160p", models.Quality2160p},
		{"Movie 2160p 720p", models.Quality2160p},
		{"Movie UHD 2160p", models.Quality4K},
		{"Movie FHD", models.Quality1080p},
		{"Movie.480p.x264", models.Quality480p},
		{"Movie DTS-HD", models.QualityUnknown},
		{"Movie HDR10 HDRip", models.QualityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.title).Quality)
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	info := Normalize("Some Movie")

	assert.Equal(t, models.QualityUnknown, info.Quality)
	assert.Zero(t, info.SizeBytes)
	assert.Equal(t, DefaultCodec, info.Codec)
	assert.Equal(t, DefaultAudio, info.Audio)
	assert.Equal(t, DefaultLanguage, info.Language)
	assert.Equal(t, DefaultSubtitle, info.Subtitle)
	assert.Equal(t, DefaultSource, info.Source)
	assert.Equal(t, DefaultVideoRange, info.VideoRange)
	assert.Equal(t, "Some Movie", info.CleanTitle)
}

func TestNormalizeSceneRelease(t *testing.T) {
	info := Normalize("Inception.2010.1080p.BluRay.x264.DTS-HD.MA.5.1-SPARKS")

	assert.Equal(t, models.Quality1080p, info.Quality)
	assert.Equal(t, "BluRay", info.Source)
	assert.Equal(t, "H.264", info.Codec)
	assert.Equal(t, "DTS-HD", info.Audio)
	assert.Equal(t, "5.1", info.Channels)
	assert.Equal(t, 2010, info.Year)
	assert.True(t, strings.HasPrefix(info.CleanTitle, "Inception 2010"), info.CleanTitle)
}

func TestNormalizeTorrentioTitle(t *testing.T) {
	info := Normalize("Movie 1080p\n👤 52 💾 1.8 GB ⚙️ ThePirateBay")

	assert.Equal(t, uint(52), info.Seeders)
	assert.Equal(t, uint64(1932735283), info.SizeBytes)
	assert.Equal(t, "ThePirateBay", info.Site)
	assert.Equal(t, "Movie", info.CleanTitle)
}

func TestNormalizeSeedWordInName(t *testing.T) {
	info := Normalize("The Bad Seed 2018 1080p WEB-DL x264\n👤 52 💾 1.8 GB ⚙️ ThePirateBay")

	assert.Equal(t, uint(52), info.Seeders)
	assert.Equal(t, 2018, info.Year)
	assert.Equal(t, "The Bad Seed 2018", info.CleanTitle)

	assert.Equal(t, uint(31), Normalize("Movie 2019 720p seeders: 31").Seeders)
	assert.Equal(t, uint(12), Normalize("Movie 2019 720p 12 seeds").Seeders)
}

func TestNormalizeHyphenatedHDSources(t *testing.T) {
	tests := []struct {
		title  string
		source string
	}{
		{"Movie 2019 HD-Rip", "HDRip"},
		{"Movie 2019 HD-CAM", "CAM"},
		{"Movie 2019 HD-TS", "TS"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			info := Normalize(tt.title)
			assert.Equal(t, tt.source, info.Source)
			assert.Equal(t, models.QualityUnknown, info.Quality)
			assert.Equal(t, "Movie 2019", info.CleanTitle)
		})
	}

	assert.Equal(t, models.Quality720p, Normalize("Movie 2019 HD x264").Quality)
}

func TestNormalizeSpacedCodec(t *testing.T) {
	info := Normalize("Movie 2020 DD5.1 H 264")

	assert.Equal(t, "H.264", info.Codec)
	assert.Equal(t, "AC3", info.Audio)
	assert.Equal(t, "5.1", info.Channels)
	assert.Equal(t, "Movie 2020", info.CleanTitle)
	assert.Equal(t, "H.265", Normalize("Show S01E01 x 265").Codec)
}

func TestNormalizeAttributes(t *testing.T) {
	info := Normalize("Dune Part Two 2024 1080p WEB-DL DDP5.1 Atmos H.264 1.8 GB")
	assert.Equal(t, "Atmos", info.Audio)
	assert.Equal(t, "WEB-DL", info.Source)
	assert.Equal(t, 2024, info.Year)
	assert.Equal(t, "Dune Part Two 2024", info.CleanTitle)

	info = Normalize("The Matrix (1999) [2160p] [4K] [BluRay] [YTS.MX]")
	assert.Equal(t, models.Quality4K, info.Quality)
	assert.Equal(t, "YTS", info.Site)
	assert.Equal(t, 1999, info.Year)
	assert.Equal(t, "The Matrix", info.CleanTitle)

	assert.Equal(t, "Dolby Vision", Normalize("Movie 2160p DV HDR x265").VideoRange)
	assert.Equal(t, "H.265", Normalize("Movie 2160p DV HDR x265").Codec)
	assert.Equal(t, "CAM", Normalize("Movie 2024 HDCAM x264").Source)
	assert.Equal(t, "French", Normalize("Movie 2019 FRENCH 720p").Language)
	assert.Equal(t, "Italian", Normalize("Film 2020 1080p ITA ENG").Language)
	assert.Equal(t, "FR", Normalize("Movie 2019 VOSTFR 720p").Subtitle)
}

func TestNormalizeEmptyTitle(t *testing.T) {
	assert.Equal(t, UnknownTitle, Normalize("").CleanTitle)
	assert.Equal(t, UnknownTitle, Normalize("   \t ").CleanTitle)
	assert.Equal(t, UnknownTitle, Normalize("1080p x264").CleanTitle)
}

func TestCleanTitleIsBoundedAndIdempotent(t *testing.T) {
	titles := []string{
		"Inception.2010.1080p.BluRay.x264.DTS-HD.MA.5.1-SPARKS",
		"The Matrix (1999) [2160p] [4K] [BluRay] [YTS.MX]",
		"Dune Part Two 2024 1080p WEB-DL DDP5.1 Atmos H.264 1.8 GB",
		"A Very Long Movie Title That Keeps Going And Going Well Beyond Any Reasonable Display Width 2019 720p WEBRip",
		"Some_Show_S01E02_WEB_DL_720p",
		"",
	}
	tokens := []string{"1080p", "2160p", "720p", "x264", "BluRay", "WEB-DL", "WEBRip", "DTS", "GB", "YTS"}

	for _, title := range titles {
		t.Run(title, func(t *testing.T) {
			clean := Normalize(title).CleanTitle
			require.NotEmpty(t, clean)
			assert.LessOrEqual(t, utf8.RuneCountInString(clean), MaxCleanTitleRunes)
			for _, token := range tokens {
				assert.NotContains(t, clean, token)
			}
			assert.Equal(t, clean, Normalize(clean).CleanTitle)
		})
	}
}

func TestCleanTitleTruncatesWithEllipsis(t *testing.T) {
	clean := Normalize("A Very Long Movie Title That Keeps Going And Going Well Beyond Any Reasonable Display Width").CleanTitle

	assert.True(t, strings.HasSuffix(clean, "…"), clean)
	assert.True(t, strings.HasPrefix(clean, "A Very Long Movie Title"), clean)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "German", LanguageName("GER"))
	assert.Equal(t, "French", LanguageName("fre"))
	assert.Equal(t, DefaultLanguage, LanguageName("1x"))
}

func TestParserCachesResults(t *testing.T) {
	p := NewParser(time.Minute)
	first := p.Normalize("Movie 1080p 1.8 GB")
	second := p.Normalize("Movie 1080p 1.8 GB")
	assert.Equal(t, first, second)
	assert.Equal(t, models.Quality720p, p.Normalize("Other 720p").Quality)
}
