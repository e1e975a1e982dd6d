package debrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// HealthCheck is the cache status of a single magnet, as reported by the
// resolve diagnostics endpoint.
type HealthCheck struct {
	Healthy      bool                   `json:"healthy"`
	Status       models.ResolutionState `json:"status"`
	Cached       bool                   `json:"cached"`
	Provider     string                 `json:"provider"`
	InfoHash     string                 `json:"infoHash,omitempty"`
	StreamURL    string                 `json:"streamUrl,omitempty"`
	Filename     string                 `json:"filename,omitempty"`
	SizeBytes    uint64                 `json:"sizeBytes,omitempty"`
	ErrorKind    models.ErrorKind       `json:"errorKind,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
}

// CheckHealth runs one magnet or info-hash through the full resolution cycle.
func (r *Resolver) CheckHealth(ctx context.Context, magnetOrHash string) (*HealthCheck, error) {
	value := strings.TrimSpace(magnetOrHash)
	candidate := models.Candidate{Title: "health check", Source: "manual", FileIndex: -1}
	if strings.HasPrefix(strings.ToLower(value), "magnet:") {
		hash, err := InfoHashFromMagnet(value)
		if err != nil {
			return nil, err
		}
		candidate.Magnet = value
		candidate.InfoHash = hash
	} else {
		candidate.InfoHash = NormalizeInfoHash(value)
		if candidate.InfoHash == "" {
			return nil, fmt.Errorf("not a magnet or info-hash: %q", value)
		}
	}

	result := r.Resolve(ctx, candidate)
	check := &HealthCheck{
		Healthy:   result.State.Cached(),
		Status:    result.State,
		Cached:    result.State.Cached(),
		Provider:  r.ProviderName(),
		InfoHash:  candidate.InfoHash,
		StreamURL: result.StreamURL,
		Filename:  result.Filename,
		SizeBytes: result.SizeBytes,
		ErrorKind: result.ErrorKind,
	}
	switch result.ErrorKind {
	case models.ErrorKindMissingCredential:
		check.ErrorMessage = "debrid credential missing or malformed"
	case models.ErrorKindRemoteUnavailable:
		check.ErrorMessage = "debrid service unavailable"
	case models.ErrorKindMalformedResponse:
		check.ErrorMessage = "debrid service returned an unexpected payload"
	case models.ErrorKindNotCached:
		check.ErrorMessage = "torrent is not cached"
	}
	return check, nil
}
