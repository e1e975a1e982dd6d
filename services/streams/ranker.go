package streams

import (
	"sort"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// SortKeyFor derives the ranking tuple of a processed candidate.
func SortKeyFor(info models.NormalizedInfo, result models.ResolutionResult) models.SortKey {
	return models.SortKey{
		Cached:      result.State.Cached(),
		QualityRank: info.Quality.Rank(),
		SizeBytes:   info.SizeBytes,
		Seeders:     info.Seeders,
	}
}

// less orders a before b: cached first, then quality, size and seeders,
// each descending. Unknown size (0) therefore sorts last in its tier.
func less(a, b models.SortKey) bool {
	if a.Cached != b.Cached {
		return a.Cached
	}
	if a.QualityRank != b.QualityRank {
		return a.QualityRank > b.QualityRank
	}
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes > b.SizeBytes
	}
	return a.Seeders > b.Seeders
}

// Rank returns the descriptors in display order. Equal keys keep their
// input order. The input slice is left untouched.
func Rank(descriptors []models.StreamDescriptor) []models.StreamDescriptor {
	out := make([]models.StreamDescriptor, len(descriptors))
	copy(out, descriptors)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].SortKey, out[j].SortKey)
	})
	return out
}

// RankAndCap ranks the full set, then keeps at most limit entries.
// A limit <= 0 keeps everything.
func RankAndCap(descriptors []models.StreamDescriptor, limit int) []models.StreamDescriptor {
	ranked := Rank(descriptors)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
