package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const realDebridDefaultBaseURL = "https://api.real-debrid.com/rest/1.0"

// RealDebridClient talks to the Real-Debrid REST API.
type RealDebridClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
}

var _ Provider = (*RealDebridClient)(nil)

func NewRealDebridClient(apiKey string, opts ...ClientOption) *RealDebridClient {
	o := buildClientOptions(realDebridDefaultBaseURL, opts)
	return &RealDebridClient{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
		log:        o.logger.With().Str("provider", "realdebrid").Logger(),
	}
}

func init() {
	RegisterProvider("realdebrid", func(apiKey string, opts ...ClientOption) Provider {
		return NewRealDebridClient(apiKey, opts...)
	})
}

func (c *RealDebridClient) Name() string {
	return "realdebrid"
}

type realDebridError struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

type realDebridTorrentInfo struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Hash     string  `json:"hash"`
	Bytes    int64   `json:"bytes"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
	Files    []struct {
		ID       int    `json:"id"`
		Path     string `json:"path"`
		Bytes    int64  `json:"bytes"`
		Selected int    `json:"selected"`
	} `json:"files"`
	Links []string `json:"links"`
}

type realDebridUnrestrict struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Link     string `json:"link"`
	Download string `json:"download"`
}

// do sends an authorized request and decodes a JSON body into out when out
// is non-nil. Non-2xx answers become typed errors.
func (c *RealDebridClient) do(ctx context.Context, op, method, path string, form url.Values, out any) error {
	if c.apiKey == "" {
		return &Error{Kind: ErrMissingCredential.Kind, Op: op, Provider: c.Name(), Message: "api key not configured"}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newRemoteError(c.Name(), op, 0, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return newRemoteError(c.Name(), op, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newCredentialError(c.Name(), op, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr realDebridError
		_ = json.Unmarshal(payload, &apiErr)
		msg := strings.TrimSpace(apiErr.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return newRemoteError(c.Name(), op, resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return newMalformedError(c.Name(), op, err)
	}
	return nil
}

// AddMagnet registers a magnet and returns the remote torrent ID.
func (c *RealDebridClient) AddMagnet(ctx context.Context, magnetURL string) (*AddMagnetResult, error) {
	trimmed := strings.TrimSpace(magnetURL)
	if trimmed == "" {
		return nil, fmt.Errorf("magnet URL is required")
	}

	var result AddMagnetResult
	if err := c.do(ctx, "add_magnet", http.MethodPost, "/torrents/addMagnet", url.Values{"magnet": {trimmed}}, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.ID) == "" {
		return nil, newMalformedError(c.Name(), "add_magnet", fmt.Errorf("empty torrent id"))
	}

	c.log.Debug().Str("torrentId", result.ID).Msg("magnet added")
	return &result, nil
}

// SelectFiles selects files for download; "all" selects everything.
func (c *RealDebridClient) SelectFiles(ctx context.Context, torrentID string, fileIDs string) error {
	if strings.TrimSpace(fileIDs) == "" {
		fileIDs = selectAllFiles
	}
	path := "/torrents/selectFiles/" + url.PathEscape(strings.TrimSpace(torrentID))
	return c.do(ctx, "select_files", http.MethodPost, path, url.Values{"files": {fileIDs}}, nil)
}

// GetTorrentInfo polls the status of a registered torrent.
func (c *RealDebridClient) GetTorrentInfo(ctx context.Context, torrentID string) (*TorrentInfo, error) {
	trimmed := strings.TrimSpace(torrentID)
	if trimmed == "" {
		return nil, fmt.Errorf("torrent ID is required")
	}

	var raw realDebridTorrentInfo
	if err := c.do(ctx, "torrent_info", http.MethodGet, "/torrents/info/"+url.PathEscape(trimmed), nil, &raw); err != nil {
		return nil, err
	}

	info := &TorrentInfo{
		ID:       raw.ID,
		Filename: raw.Filename,
		Hash:     strings.ToLower(raw.Hash),
		Bytes:    raw.Bytes,
		Progress: raw.Progress,
		Status:   mapRealDebridStatus(raw.Status),
		Files:    make([]File, 0, len(raw.Files)),
		Links:    raw.Links,
	}
	for _, f := range raw.Files {
		info.Files = append(info.Files, File{ID: f.ID, Path: f.Path, Bytes: f.Bytes, Selected: f.Selected})
	}
	return info, nil
}

func mapRealDebridStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "downloaded":
		return StatusDownloaded
	case "queued":
		return StatusQueued
	case "downloading", "compressing", "uploading":
		return StatusDownloading
	case "waiting_files_selection":
		return StatusWaitingFiles
	case "magnet_conversion":
		return StatusMagnetConvert
	case "magnet_error":
		return StatusMagnetError
	case "error":
		return StatusError
	case "virus":
		return StatusVirus
	case "dead":
		return StatusDead
	default:
		return StatusUnknown
	}
}

// UnrestrictLink turns a hoster link into a direct download URL.
func (c *RealDebridClient) UnrestrictLink(ctx context.Context, link string) (*UnrestrictResult, error) {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return nil, fmt.Errorf("link is required")
	}

	var raw realDebridUnrestrict
	if err := c.do(ctx, "unrestrict", http.MethodPost, "/unrestrict/link", url.Values{"link": {trimmed}}, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Download) == "" {
		return nil, newMalformedError(c.Name(), "unrestrict", fmt.Errorf("empty download url"))
	}

	return &UnrestrictResult{
		ID:          raw.ID,
		Filename:    raw.Filename,
		Filesize:    raw.Filesize,
		DownloadURL: raw.Download,
	}, nil
}

// DeleteTorrent removes the remote registration.
func (c *RealDebridClient) DeleteTorrent(ctx context.Context, torrentID string) error {
	trimmed := strings.TrimSpace(torrentID)
	if trimmed == "" {
		return fmt.Errorf("torrent ID is required")
	}
	if err := c.do(ctx, "delete", http.MethodDelete, "/torrents/delete/"+url.PathEscape(trimmed), nil, nil); err != nil {
		return err
	}
	c.log.Debug().Str("torrentId", trimmed).Msg("torrent deleted")
	return nil
}
