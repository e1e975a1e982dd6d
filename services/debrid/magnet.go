package debrid

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/mozillazg/go-unidecode"
)

var (
	hexInfoHashPattern    = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	base32InfoHashPattern = regexp.MustCompile(`^[A-Za-z2-7]{32}$`)
	btihPattern           = regexp.MustCompile(`(?i)urn:btih:([0-9a-z]{32,40})`)
)

// DefaultTrackers are appended to magnets built from a bare info-hash.
var DefaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.demonii.com:1337/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
}

// NormalizeInfoHash returns the 40-char lowercase hex form of a hex or
// base32 info-hash, or "" when the input is neither.
func NormalizeInfoHash(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case hexInfoHashPattern.MatchString(value):
		return strings.ToLower(value)
	case base32InfoHashPattern.MatchString(value):
		m, err := metainfo.ParseMagnetURI("magnet:?xt=urn:btih:" + strings.ToUpper(value))
		if err != nil {
			return ""
		}
		return strings.ToLower(m.InfoHash.HexString())
	}
	return ""
}

// InfoHashFromMagnet extracts the normalized info-hash of a magnet URI.
func InfoHashFromMagnet(magnetURI string) (string, error) {
	magnetURI = strings.TrimSpace(magnetURI)
	if magnetURI == "" {
		return "", fmt.Errorf("empty magnet")
	}
	m, err := metainfo.ParseMagnetURI(magnetURI)
	if err == nil && m.InfoHash != (metainfo.Hash{}) {
		return strings.ToLower(m.InfoHash.HexString()), nil
	}
	// Some providers emit magnets with extra parameters anacrolix rejects.
	if match := btihPattern.FindStringSubmatch(magnetURI); match != nil {
		if hash := NormalizeInfoHash(match[1]); hash != "" {
			return hash, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("no btih in magnet")
	}
	return "", fmt.Errorf("parse magnet: %w", err)
}

// BuildMagnet builds a magnet URI for a hex info-hash.
func BuildMagnet(infoHash, displayName string, trackers []string) string {
	hash := NormalizeInfoHash(infoHash)
	if hash == "" {
		return ""
	}
	if len(trackers) == 0 {
		trackers = DefaultTrackers
	}
	m := metainfo.Magnet{
		InfoHash:    metainfo.NewHashFromHex(hash),
		DisplayName: strings.TrimSpace(displayName),
		Trackers:    trackers,
	}
	return m.String()
}

// SyntheticInfoHash derives a stable pseudo info-hash from a title for
// candidates that arrive without one.
func SyntheticInfoHash(title string) string {
	key := strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(title))), " ")
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
