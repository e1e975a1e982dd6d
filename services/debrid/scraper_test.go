package debrid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

var gib = float64(1 << 30)

func TestTorrentioScraperSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sort=qualitysize/stream/series/tt0903747:1:2.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"streams":[
			{"name":"Torrentio\n1080p","title":"Breaking.Bad.S01E02.1080p.BluRay.x264\n👤 42 💾 1.2 GB ⚙️ ThePirateBay","infoHash":"ABCDEF0123456789ABCDEF0123456789ABCDEF01","fileIdx":3,
			 "behaviorHints":{"openTrackers":["udp://tracker.example:80"]}},
			{"name":"Torrentio\n720p","title":"Breaking.Bad.S01E02.720p\n👤 7","infoHash":"abcdef0123456789abcdef0123456789abcdef01","fileIdx":3},
			{"name":"Torrentio","title":"no hash"}
		]}`))
	}))
	defer server.Close()

	s := NewTorrentioScraper(server.Client(), server.URL, "sort=qualitysize", "", zerolog.Nop())
	results, err := s.Search(context.Background(), SearchRequest{IMDBID: "tt0903747", MediaType: "series", Season: 1, Episode: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected duplicate and hashless streams dropped, got %d", len(results))
	}
	got := results[0]
	if got.InfoHash != "abcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("info-hash not normalized: %q", got.InfoHash)
	}
	if got.Seeders != 42 || got.SizeBytes != int64(1.2*gib) {
		t.Fatalf("unexpected seeders/size: %d/%d", got.Seeders, got.SizeBytes)
	}
	if got.Provider != "ThePirateBay" {
		t.Fatalf("unexpected provider %q", got.Provider)
	}
	if got.FileIndex != 3 || got.Resolution != "1080p" {
		t.Fatalf("unexpected file index/resolution: %d/%q", got.FileIndex, got.Resolution)
	}
	if !strings.Contains(got.Magnet, "tr=udp%3A%2F%2Ftracker.example%3A80") {
		t.Fatalf("trackers missing from magnet: %s", got.Magnet)
	}
	if !strings.Contains(got.Title, "\n") {
		t.Fatalf("raw multi-line title should be kept for normalization")
	}
}

func TestTorrentioScraperNeedsIMDBID(t *testing.T) {
	s := NewTorrentioScraper(nil, "http://127.0.0.1:1", "", "", zerolog.Nop())
	results, err := s.Search(context.Background(), SearchRequest{Query: "anything"})
	if err != nil || results != nil {
		t.Fatalf("expected no lookup without IMDB id, got %v %v", results, err)
	}
	if s.CacheKey(SearchRequest{Query: "a", IMDBID: "tt1"}) != s.CacheKey(SearchRequest{Query: "b", IMDBID: "TT1"}) {
		t.Fatalf("cache key must ignore the free-text query")
	}
}

func TestTorrentAPIScraper(t *testing.T) {
	var tokenCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != torrentAPIUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		q := r.URL.Query()
		if q.Get("get_token") != "" {
			tokenCalls.Add(1)
			_, _ = w.Write([]byte(`{"token":"tok"}`))
			return
		}
		if q.Get("token") != "tok" || q.Get("format") != "json_extended" || q.Get("sort") != "seeders" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{"torrent_results":[
			{"title":"Inception.2010.1080p.BluRay.x264-SPARKS","info_hash":"0123456789abcdef0123456789abcdef01234567","size":1932735283,"seeders":0},
			{"title":"Inception.2010.720p","download":"magnet:?xt=urn:btih:1123456789abcdef0123456789abcdef01234567&dn=x","size":100,"seeders":9},
			{"title":"broken"}
		]}`))
	}))
	defer server.Close()

	s := NewTorrentAPIScraper(server.URL, server.Client(), zerolog.Nop())
	for i := 0; i < 2; i++ {
		results, err := s.Search(context.Background(), SearchRequest{Query: "Inception 2010"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Seeders != torrentAPIDefaultSeeders {
			t.Fatalf("expected default seeders, got %d", results[0].Seeders)
		}
		if results[0].Provider != "RARBG" || !strings.HasPrefix(results[0].Magnet, "magnet:?xt=urn:btih:") {
			t.Fatalf("unexpected result %+v", results[0])
		}
		if results[1].InfoHash != "1123456789abcdef0123456789abcdef01234567" {
			t.Fatalf("hash not taken from magnet: %q", results[1].InfoHash)
		}
	}
	if n := tokenCalls.Load(); n != 1 {
		t.Fatalf("token should be reused, fetched %d times", n)
	}
}

func TestTorrentAPIScraperNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("get_token") != "" {
			_, _ = w.Write([]byte(`{"token":"tok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":"No results found","error_code":20}`))
	}))
	defer server.Close()

	s := NewTorrentAPIScraper(server.URL, server.Client(), zerolog.Nop())
	results, err := s.Search(context.Background(), SearchRequest{Query: "nothing"})
	if err != nil || len(results) != 0 {
		t.Fatalf("expected empty result without error, got %v %v", results, err)
	}
}

const bitSearchPage = `<html><body><ul>
<li class="search-result view-box">
  <div class="info"><h5 class="title"><a href="/torrent/1">The.Matrix.1999.2160p.UHD.BluRay.x265</a></h5>
  <div class="stats"><div>12.5 GB</div><div>300</div></div></div>
  <div class="links"><a class="dl-magnet" href="magnet:?xt=urn:btih:2123456789abcdef0123456789abcdef01234567&dn=matrix">Magnet</a></div>
</li>
<li class="search-result view-box">
  <div class="info"><h5 class="title"><a href="/torrent/2">The.Matrix.1999.720p</a></h5>
  <div class="stats"><div>700 MB</div></div></div>
  <div class="links"><a href="magnet:?xt=urn:btih:3123456789abcdef0123456789abcdef01234567">Magnet</a></div>
</li>
<li class="search-result view-box">
  <div class="info"><h5 class="title">No magnet here</h5></div>
</li>
</ul></body></html>`

func TestBitSearchScraper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("q") != "The Matrix 1999" || r.URL.Query().Get("sort") != "seeders" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(bitSearchPage))
	}))
	defer server.Close()

	s := NewBitSearchScraper(server.URL, server.Client(), zerolog.Nop())
	results, err := s.Search(context.Background(), SearchRequest{Query: "The Matrix 1999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "The.Matrix.1999.2160p.UHD.BluRay.x265" || results[0].SizeBytes != int64(12.5*gib) {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if results[1].SizeBytes != 700<<20 || results[1].Seeders != bitSearchDefaultSeeders {
		t.Fatalf("unexpected second result %+v", results[1])
	}

	limited, _ := s.Search(context.Background(), SearchRequest{Query: "The Matrix 1999", MaxResults: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

const torznabFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
<channel>
<item>
  <title>Dune.Part.Two.2024.1080p.WEB-DL</title>
  <guid>https://jackett/dl/1</guid>
  <link>https://jackett/dl/1.torrent</link>
  <size>4294967296</size>
  <torznab:attr name="seeders" value="120"/>
  <torznab:attr name="infohash" value="4123456789ABCDEF0123456789ABCDEF01234567"/>
  <torznab:attr name="tracker" value="1337x"/>
</item>
<item>
  <title>Dune.Part.Two.2024.720p</title>
  <link>magnet:?xt=urn:btih:5123456789abcdef0123456789abcdef01234567</link>
  <torznab:attr name="seeders" value="15"/>
</item>
<item>
  <title>Torrent file only</title>
  <link>https://jackett/dl/3.torrent</link>
</item>
</channel>
</rss>`

func TestJackettScraper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("t") != "movie" || q.Get("imdbid") != "tt15239678" || q.Get("apikey") != "key" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(torznabFixture))
	}))
	defer server.Close()

	j := NewJackettScraper(server.URL+"/", "key", "", server.Client(), zerolog.Nop())
	results, err := j.Search(context.Background(), SearchRequest{Query: "Dune Part Two 2024", IMDBID: "tt15239678", MediaType: "movie"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].InfoHash != "4123456789abcdef0123456789abcdef01234567" || results[0].Seeders != 120 || results[0].Provider != "1337x" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if !strings.HasPrefix(results[0].Magnet, "magnet:") {
		t.Fatalf("magnet should be built from infohash")
	}
	if results[1].InfoHash != "5123456789abcdef0123456789abcdef01234567" {
		t.Fatalf("unexpected second hash %q", results[1].InfoHash)
	}
}

func TestJackettScraperTorznabError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "tvsearch" || r.URL.Query().Get("ep") != "2" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><error code="100" description="Invalid API Key" />`))
	}))
	defer server.Close()

	j := NewJackettScraper(server.URL, "bad", "", server.Client(), zerolog.Nop())
	_, err := j.Search(context.Background(), SearchRequest{Query: "Dark S01E02", MediaType: "series", Season: 1, Episode: 2})
	if err == nil || !strings.Contains(err.Error(), "Invalid API Key") {
		t.Fatalf("expected torznab error to surface, got %v", err)
	}
}

func TestZileanScraper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/dmm/filtered" || q.Get("Query") != "Inception" || q.Get("Year") != "2010" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			{"raw_title":"Inception.2010.720p.BluRay","size":"4294967296","info_hash":"6123456789ABCDEF0123456789ABCDEF01234567","resolution":"720p"},
			{"raw_title":"Inception.2010.2160p.UHD","size":68719476736,"info_hash":"7123456789abcdef0123456789abcdef01234567"},
			{"raw_title":"no hash","size":1},
			{"raw_title":"dup","size":1,"info_hash":"7123456789abcdef0123456789abcdef01234567"}
		]`))
	}))
	defer server.Close()

	z := NewZileanScraper(server.URL, "", server.Client(), zerolog.Nop())
	results, err := z.Search(context.Background(), SearchRequest{Query: "Inception 2010", MediaType: "movie"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].InfoHash != "7123456789abcdef0123456789abcdef01234567" || results[0].Resolution != "4K" {
		t.Fatalf("largest release should come first: %+v", results[0])
	}
	if results[1].SizeBytes != 4294967296 || results[1].InfoHash != "6123456789abcdef0123456789abcdef01234567" {
		t.Fatalf("unexpected second result %+v", results[1])
	}
}

func TestZileanQueryVariantsShareCacheKey(t *testing.T) {
	z := NewZileanScraper("http://zilean", "", nil, zerolog.Nop())
	a := scraperCacheKey(z, SearchRequest{Query: "Inception 2010"})
	b := scraperCacheKey(z, SearchRequest{Query: "Inception 1080p"})
	c := scraperCacheKey(z, SearchRequest{Query: "Inception"})
	if a != b || b != c {
		t.Fatalf("expected shared key, got %q %q %q", a, b, c)
	}

	q, year := zileanQuery("Dark S01E02")
	if q != "Dark" || year != 0 {
		t.Fatalf("unexpected episode query %q %d", q, year)
	}
}
