package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brahimtod123-lgtm/Souhail-torrent/services/debrid"
)

type healthChecker interface {
	CheckHealth(ctx context.Context, magnetOrHash string) (*debrid.HealthCheck, error)
}

var _ healthChecker = (*debrid.Resolver)(nil)

// DebridHandler exposes single-magnet diagnostics.
type DebridHandler struct {
	Checker healthChecker
	Timeout time.Duration
	log     zerolog.Logger
}

func NewDebridHandler(checker healthChecker, timeout time.Duration, logger zerolog.Logger) *DebridHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DebridHandler{
		Checker: checker,
		Timeout: timeout,
		log:     logger.With().Str("component", "debrid-handler").Logger(),
	}
}

// Resolve runs ?magnet= (a magnet URI or bare info-hash) through the
// resolver and reports the outcome.
func (h *DebridHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	value := strings.TrimSpace(r.URL.Query().Get("magnet"))
	if value == "" {
		value = strings.TrimSpace(r.URL.Query().Get("infoHash"))
	}
	if value == "" {
		writeJSONError(w, "magnet or infoHash parameter required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	check, err := h.Checker.CheckHealth(ctx, value)
	if err != nil {
		h.log.Debug().Err(err).Str("input", value).Msg("rejecting resolve request")
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
