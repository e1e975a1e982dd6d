package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/brahimtod123-lgtm/Souhail-torrent/config"
	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/streams"
)

type streamBuilder interface {
	BuildStreams(ctx context.Context, query models.StreamQuery) []models.StreamDescriptor
}

var _ streamBuilder = (*streams.Service)(nil)

// Manifest is the addon descriptor served at /manifest.json.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	Catalogs    []string `json:"catalogs"`
	IDPrefixes  []string `json:"idPrefixes"`
}

type streamsResponse struct {
	Streams []models.StreamDescriptor `json:"streams"`
}

type AddonHandler struct {
	Streams  streamBuilder
	manifest Manifest
	log      zerolog.Logger
}

func NewAddonHandler(s streamBuilder, addon config.AddonSettings, logger zerolog.Logger) *AddonHandler {
	return &AddonHandler{
		Streams: s,
		manifest: Manifest{
			ID:          addon.ID,
			Version:     addon.Version,
			Name:        addon.Name,
			Description: addon.Description,
			Resources:   []string{"stream"},
			Types:       []string{"movie", "series"},
			Catalogs:    []string{},
			IDPrefixes:  []string{"tt"},
		},
		log: logger.With().Str("component", "addon").Logger(),
	}
}

func (h *AddonHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manifest)
}

// Stream serves /stream/{type}/{id}.json. Unsupported types and ids get
// an empty list rather than an error status.
func (h *AddonHandler) Stream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mediaType := strings.ToLower(strings.TrimSpace(vars["type"]))
	id := strings.TrimSuffix(strings.TrimSpace(vars["id"]), ".json")

	query, ok := ParseStreamID(mediaType, id)
	if !ok {
		h.log.Debug().Str("type", mediaType).Str("id", id).Msg("unsupported stream request")
		writeJSON(w, http.StatusOK, streamsResponse{Streams: []models.StreamDescriptor{}})
		return
	}

	list := h.Streams.BuildStreams(r.Context(), query)
	if list == nil {
		list = []models.StreamDescriptor{}
	}
	writeJSON(w, http.StatusOK, streamsResponse{Streams: list})
}

// ParseStreamID splits an addon stream id ("tt123" or "tt123:1:2" for
// episodes) into a query.
func ParseStreamID(mediaType, id string) (models.StreamQuery, bool) {
	if mediaType != "movie" && mediaType != "series" {
		return models.StreamQuery{}, false
	}
	parts := strings.Split(id, ":")
	imdbID := strings.TrimSpace(parts[0])
	if !strings.HasPrefix(imdbID, "tt") || len(imdbID) < 3 {
		return models.StreamQuery{}, false
	}
	query := models.StreamQuery{IMDBID: imdbID, MediaType: mediaType}
	if mediaType == "series" {
		if len(parts) != 3 {
			return models.StreamQuery{}, false
		}
		season, err1 := strconv.Atoi(parts[1])
		episode, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || season < 0 || episode <= 0 {
			return models.StreamQuery{}, false
		}
		query.Season = season
		query.Episode = episode
	}
	return query, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
