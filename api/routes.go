package api

import (
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brahimtod123-lgtm/Souhail-torrent/handlers"
)

// loopbackOnly rejects requests that did not originate on this machine.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			http.Error(w, "debug endpoints are only served on loopback", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowAnyOrigin sets permissive CORS headers. Addon clients call from
// arbitrary origins and preflight every route.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// NewRouter returns a router with the CORS middleware installed.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(allowAnyOrigin)
	return r
}

// Register mounts the addon, diagnostic and metrics endpoints onto r.
// A nil gatherer skips /metrics.
func Register(
	r *mux.Router,
	addonHandler *handlers.AddonHandler,
	debridHandler *handlers.DebridHandler,
	gatherer prometheus.Gatherer,
) {
	get := func(path string, fn http.HandlerFunc) {
		r.HandleFunc(path, fn).Methods(http.MethodGet)
		r.HandleFunc(path, preflight).Methods(http.MethodOptions)
	}
	get("/manifest.json", addonHandler.Manifest)
	get("/stream/{type}/{id}.json", addonHandler.Stream)
	get("/api/resolve", debridHandler.Resolve)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	debug := r.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(loopbackOnly)
	for name, fn := range map[string]http.HandlerFunc{
		"/cmdline": pprof.Cmdline,
		"/profile": pprof.Profile,
		"/symbol":  pprof.Symbol,
		"/trace":   pprof.Trace,
	} {
		debug.HandleFunc(name, fn)
	}
	// Index also serves the named runtime profiles (heap, goroutine, ...).
	debug.PathPrefix("/").HandlerFunc(pprof.Index)
}
