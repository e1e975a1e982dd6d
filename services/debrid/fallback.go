package debrid

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// SyntheticSource labels candidates produced by the fallback generator.
const SyntheticSource = "synthetic"

// fallbackTier is one row of the synthetic ladder. Sizes and seeders are
// fixed estimates per bucket, not measurements.
type fallbackTier struct {
	quality models.Quality
	source  string
	codec   string
	sizeMiB uint64
	seeders int
}

var fallbackLadder = []fallbackTier{
	{models.Quality4K, "BluRay", "x265", 45 * 1024, 80},
	{models.Quality4K, "WEB-DL", "x265", 18 * 1024, 140},
	{models.Quality1080p, "BluRay", "x264", 12 * 1024, 260},
	{models.Quality1080p, "WEB-DL", "x264", 5 * 1024, 420},
	{models.Quality720p, "BluRay", "x264", 6 * 1024, 150},
	{models.Quality720p, "WEB-DL", "x264", 2560, 230},
	{models.Quality480p, "BluRay", "x264", 1400, 60},
	{models.Quality480p, "WEB-DL", "x264", 900, 90},
}

// SyntheticCandidates builds one placeholder per ladder tier for title.
// The same title always yields the same candidates: the jitter applied to
// each estimate is derived from a hash of the title, not from randomness.
func SyntheticCandidates(title string) []models.Candidate {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return nil
	}
	out := make([]models.Candidate, 0, len(fallbackLadder))
	for _, tier := range fallbackLadder {
		name := fmt.Sprintf("%s %s %s %s", title, tier.quality, tier.source, tier.codec)
		h := xxhash.Sum64String(strings.ToLower(name))
		// +/-10% around the bucket estimate.
		sizeMiB := tier.sizeMiB*90/100 + h%(tier.sizeMiB/5+1)
		seeders := tier.seeders*90/100 + int((h>>20)%uint64(tier.seeders/5+1))

		hash := SyntheticInfoHash(name)
		out = append(out, models.Candidate{
			Title:           name,
			Magnet:          BuildMagnet(hash, name, nil),
			InfoHash:        hash,
			Source:          SyntheticSource,
			Seeders:         seeders,
			FileIndex:       -1,
			DeclaredSize:    sizeMiB << 20,
			DeclaredQuality: string(tier.quality),
			Synthetic:       true,
		})
	}
	return out
}
