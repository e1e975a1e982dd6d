package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	allDebridDefaultBaseURL = "https://api.alldebrid.com/v4"
	allDebridAgent          = "souhail-torrent"
)

// AllDebridClient handles API interactions with AllDebrid.
type AllDebridClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	agent      string
	log        zerolog.Logger
}

var _ Provider = (*AllDebridClient)(nil)

func NewAllDebridClient(apiKey string, opts ...ClientOption) *AllDebridClient {
	o := buildClientOptions(allDebridDefaultBaseURL, opts)
	return &AllDebridClient{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
		agent:      allDebridAgent,
		log:        o.logger.With().Str("provider", "alldebrid").Logger(),
	}
}

func init() {
	RegisterProvider("alldebrid", func(apiKey string, opts ...ClientOption) Provider {
		return NewAllDebridClient(apiKey, opts...)
	})
}

func (c *AllDebridClient) Name() string {
	return "alldebrid"
}

// allDebridResponse is the envelope every AllDebrid answer comes in.
type allDebridResponse[T any] struct {
	Status string `json:"status"` // "success" or "error"
	Data   T      `json:"data,omitempty"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type allDebridMagnetUploadData struct {
	Magnets []struct {
		ID    int    `json:"id"`
		Hash  string `json:"hash"`
		Name  string `json:"name"`
		Ready bool   `json:"ready"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"magnets"`
}

type allDebridStatus struct {
	ID         int                 `json:"id"`
	Filename   string              `json:"filename"`
	Size       int64               `json:"size"`
	Hash       string              `json:"hash,omitempty"`
	StatusCode int                 `json:"statusCode"`
	Downloaded int64               `json:"downloaded"`
	Links      []allDebridLink     `json:"links,omitempty"`
	Files      []allDebridFileNode `json:"files,omitempty"` // v4.1 nested tree
}

type allDebridLink struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type allDebridFileNode struct {
	N string              `json:"n"`           // name
	S int64               `json:"s,omitempty"` // size
	L string              `json:"l,omitempty"` // link
	E []allDebridFileNode `json:"e,omitempty"` // directory entries
}

// Magnets is an object when asking by ID and an array otherwise.
type allDebridStatusData struct {
	Magnets json.RawMessage `json:"magnets"`
}

type allDebridUnlock struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	ID       string `json:"id,omitempty"`
	Delayed  int    `json:"delayed,omitempty"`
}

const (
	allDebridStatusInQueue             = 0
	allDebridStatusDownloading         = 1
	allDebridStatusCompressingMoving   = 2
	allDebridStatusUploading           = 3
	allDebridStatusReady               = 4
	allDebridStatusUploadFail          = 5
	allDebridStatusInternalErrorUnpack = 6
	allDebridStatusNotDownloaded20Min  = 7
	allDebridStatusFileTooBig          = 8
	allDebridStatusInternalError       = 9
	allDebridStatusDownloadTook72h     = 10
	allDebridStatusDeletedOnHoster     = 11
)

func call[T any](ctx context.Context, c *AllDebridClient, op, method, endpoint string, form url.Values) (T, error) {
	var zero T
	if c.apiKey == "" {
		return zero, &Error{Kind: ErrMissingCredential.Kind, Op: op, Provider: c.Name(), Message: "api key not configured"}
	}

	var body io.Reader
	if form != nil {
		form.Set("agent", c.agent)
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return zero, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, newRemoteError(c.Name(), op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return zero, newCredentialError(c.Name(), op, resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return zero, newRemoteError(c.Name(), op, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode >= 500 {
		return zero, newRemoteError(c.Name(), op, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}

	var result allDebridResponse[T]
	if err := json.Unmarshal(payload, &result); err != nil {
		return zero, newMalformedError(c.Name(), op, err)
	}
	if result.Status != "success" {
		msg := "unknown error"
		if result.Error != nil {
			msg = result.Error.Code + ": " + result.Error.Message
			if strings.HasPrefix(result.Error.Code, "AUTH_") {
				return zero, newCredentialError(c.Name(), op, resp.StatusCode)
			}
		}
		return zero, newRemoteError(c.Name(), op, resp.StatusCode, fmt.Errorf("%s", msg))
	}
	return result.Data, nil
}

// AddMagnet uploads a magnet and returns the AllDebrid magnet ID.
func (c *AllDebridClient) AddMagnet(ctx context.Context, magnetURL string) (*AddMagnetResult, error) {
	trimmed := strings.TrimSpace(magnetURL)
	if trimmed == "" {
		return nil, fmt.Errorf("magnet URL is required")
	}

	data, err := call[allDebridMagnetUploadData](ctx, c, "add_magnet", http.MethodPost, c.baseURL+"/magnet/upload", url.Values{"magnets[]": {trimmed}})
	if err != nil {
		return nil, err
	}
	if len(data.Magnets) == 0 {
		return nil, newMalformedError(c.Name(), "add_magnet", fmt.Errorf("no magnet data returned"))
	}
	magnet := data.Magnets[0]
	if magnet.Error != nil {
		return nil, newRemoteError(c.Name(), "add_magnet", 0, fmt.Errorf("%s: %s", magnet.Error.Code, magnet.Error.Message))
	}

	c.log.Debug().Int("magnetId", magnet.ID).Str("hash", magnet.Hash).Bool("ready", magnet.Ready).Msg("magnet added")
	return &AddMagnetResult{ID: strconv.Itoa(magnet.ID), URI: trimmed}, nil
}

// GetTorrentInfo reads the v4.1 status endpoint, which includes the file tree.
func (c *AllDebridClient) GetTorrentInfo(ctx context.Context, torrentID string) (*TorrentInfo, error) {
	trimmed := strings.TrimSpace(torrentID)
	if trimmed == "" {
		return nil, fmt.Errorf("torrent ID is required")
	}

	endpoint := strings.Replace(c.baseURL, "/v4", "/v4.1", 1) + "/magnet/status"
	data, err := call[allDebridStatusData](ctx, c, "torrent_info", http.MethodPost, endpoint, url.Values{"id": {trimmed}})
	if err != nil {
		return nil, err
	}

	status, err := decodeAllDebridStatus(data.Magnets)
	if err != nil {
		return nil, newMalformedError(c.Name(), "torrent_info", err)
	}

	info := &TorrentInfo{
		ID:       strconv.Itoa(status.ID),
		Filename: status.Filename,
		Hash:     strings.ToLower(status.Hash),
		Bytes:    status.Size,
		Status:   mapAllDebridStatus(status.StatusCode),
		Files:    make([]File, 0),
		Links:    make([]string, 0),
	}
	if status.Size > 0 {
		info.Progress = float64(status.Downloaded) * 100 / float64(status.Size)
	}
	if len(status.Files) > 0 {
		flattenFileTree(status.Files, "", info)
	} else {
		for i, link := range status.Links {
			info.Files = append(info.Files, File{ID: i + 1, Path: link.Filename, Bytes: link.Size, Selected: 1})
			info.Links = append(info.Links, link.Link)
		}
	}
	return info, nil
}

func decodeAllDebridStatus(raw json.RawMessage) (allDebridStatus, error) {
	var status allDebridStatus
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return status, fmt.Errorf("torrent not found (empty response)")
	}
	if raw[0] == '{' {
		err := json.Unmarshal(raw, &status)
		return status, err
	}
	var magnets []allDebridStatus
	if err := json.Unmarshal(raw, &magnets); err != nil {
		return status, err
	}
	if len(magnets) == 0 {
		return status, fmt.Errorf("torrent not found")
	}
	return magnets[0], nil
}

// flattenFileTree walks the nested v4.1 tree into flat Files and Links.
func flattenFileTree(nodes []allDebridFileNode, basePath string, info *TorrentInfo) {
	for _, node := range nodes {
		path := node.N
		if basePath != "" {
			path = basePath + "/" + node.N
		}
		if len(node.E) > 0 {
			flattenFileTree(node.E, path, info)
		} else if node.L != "" {
			info.Files = append(info.Files, File{ID: len(info.Files) + 1, Path: path, Bytes: node.S, Selected: 1})
			info.Links = append(info.Links, node.L)
		}
	}
}

func mapAllDebridStatus(statusCode int) string {
	switch statusCode {
	case allDebridStatusReady:
		return StatusDownloaded
	case allDebridStatusInQueue:
		return StatusQueued
	case allDebridStatusDownloading, allDebridStatusCompressingMoving, allDebridStatusUploading:
		return StatusDownloading
	case allDebridStatusUploadFail, allDebridStatusInternalErrorUnpack,
		allDebridStatusNotDownloaded20Min, allDebridStatusFileTooBig,
		allDebridStatusInternalError, allDebridStatusDownloadTook72h:
		return StatusError
	case allDebridStatusDeletedOnHoster:
		return StatusDead
	default:
		return StatusUnknown
	}
}

// SelectFiles is a no-op: AllDebrid always fetches every file.
func (c *AllDebridClient) SelectFiles(ctx context.Context, torrentID string, fileIDs string) error {
	return nil
}

// DeleteTorrent removes a magnet from the account.
func (c *AllDebridClient) DeleteTorrent(ctx context.Context, torrentID string) error {
	trimmed := strings.TrimSpace(torrentID)
	if trimmed == "" {
		return fmt.Errorf("torrent ID is required")
	}
	if _, err := call[json.RawMessage](ctx, c, "delete", http.MethodPost, c.baseURL+"/magnet/delete", url.Values{"id": {trimmed}}); err != nil {
		return err
	}
	c.log.Debug().Str("magnetId", trimmed).Msg("magnet deleted")
	return nil
}

// UnrestrictLink unlocks a hoster link into a direct download URL.
func (c *AllDebridClient) UnrestrictLink(ctx context.Context, link string) (*UnrestrictResult, error) {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return nil, fmt.Errorf("link is required")
	}

	data, err := call[allDebridUnlock](ctx, c, "unrestrict", http.MethodPost, c.baseURL+"/link/unlock", url.Values{"link": {trimmed}})
	if err != nil {
		return nil, err
	}
	if data.Delayed > 0 {
		return nil, newRemoteError(c.Name(), "unrestrict", 0, fmt.Errorf("link delayed, retry in %d seconds", data.Delayed))
	}
	if strings.TrimSpace(data.Link) == "" {
		return nil, newMalformedError(c.Name(), "unrestrict", fmt.Errorf("empty download url"))
	}

	return &UnrestrictResult{
		ID:          data.ID,
		Filename:    data.Filename,
		Filesize:    data.Filesize,
		DownloadURL: data.Link,
	}, nil
}
