package gqlcache

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/gqlcache/gqlcache/cache"
	cachekey "github.com/gqlcache/gqlcache/pkg/cache-key"
)

// PurgePath is the admin route for removing a cache entry by key.
const PurgePath = "/.gqlcache/purge"

type Config struct {
	// Storage for cache entries and records.
	Store cache.Store
	// URL of the origin server.
	// Origins with paths are not supported.
	OriginURL url.URL
	// Hostname to use for HTTP requests and TLS negotiation.
	// Use if needed if e.g. the origin URL is just an IP address.
	OriginHost string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Expiry for cache writes when the query does not declare a timeout.
	// Zero means entries get no explicit expiry.
	DefaultTTL time.Duration
	// Name of the request header that disables hash caching per request.
	// Empty means the hash stage cannot be bypassed.
	BypassHeader string
	// Optional hook for rewriting the directive-declared cache key based
	// on the request, e.g. for namespacing keys per tenant.
	KeyModifier cachekey.Modifier
}

type GqlCache struct {
	store        cache.Store
	log          zerolog.Logger
	defaultTTL   time.Duration
	bypassHeader string
	keyModifier  cachekey.Modifier
	reverseproxy httputil.ReverseProxy
	handler      http.Handler
}

// CreateCache initializes the cache instance and sets up the reverse
// proxy for the configured origin.
func CreateCache(config Config) *GqlCache {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	// create a child logger and add defaults
	logger = logger.With().
		Str("origin", config.OriginURL.String()).
		Logger()

	g := &GqlCache{
		store:        config.Store,
		log:          logger,
		defaultTTL:   config.DefaultTTL,
		bypassHeader: config.BypassHeader,
		keyModifier:  config.KeyModifier,
	}

	host := config.OriginURL.Host
	hostHeader := host
	transport := http.DefaultTransport
	if config.OriginHost != "" {
		hostHeader = config.OriginHost
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				ServerName: config.OriginHost,
			},
		}
	}

	g.reverseproxy = httputil.ReverseProxy{
		Director:       createDirector(config.OriginURL.Scheme, host, hostHeader),
		Transport:      transport,
		ModifyResponse: g.interceptResponse,
	}

	g.handler = g.createHandler()

	return g
}

func createDirector(scheme, host, hostHeader string) func(req *http.Request) {
	return func(req *http.Request) {
		req.URL.Scheme = scheme
		req.URL.Host = host
		if hostHeader != "" {
			req.Host = hostHeader
		}
		// let the transport negotiate the encoding, so that intercepted
		// bodies come back transparently decoded
		req.Header.Del("Accept-Encoding")
	}
}

// createHandler composes the caching stages with the admin routes.
func (g *GqlCache) createHandler() http.Handler {
	router := chi.NewRouter()
	router.Post(PurgePath, g.HandlePurge)
	router.Handle("/*", g.DirectiveMiddleware(g.HashMiddleware(g.ProxyHandler())))
	return router
}

// Handler returns the fully composed caching proxy: directive stage, hash
// stage, then the forwarding proxy.
func (g *GqlCache) Handler() http.Handler {
	return g.handler
}

// ServeHTTP implements the http.Handler interface.
func (g *GqlCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// ProxyHandler returns the stage that forwards requests to the origin and
// intercepts responses for pending cache writes.
func (g *GqlCache) ProxyHandler() http.Handler {
	return &g.reverseproxy
}

// HandlePurge removes the cache entry or record for the key given in the
// `key` query parameter.
func (g *GqlCache) HandlePurge(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}
	removed, err := g.store.Delete(r.Context(), key)
	if err != nil {
		g.getLogger(r).Error().Err(err).Str("key", key).Msg("Could not purge cache entry")
		http.Error(w, "Could not purge", http.StatusInternalServerError)
		return
	}
	g.getLogger(r).Debug().Str("key", key).Bool("removed", removed).Msg("Purged cache entry")
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"removed":%t}`, removed)
}

// getLogger returns the logger for the request: the hlog request logger
// when the request has one, the instance logger otherwise.
func (g *GqlCache) getLogger(r *http.Request) *zerolog.Logger {
	logger := hlog.FromRequest(r)
	if logger.GetLevel() == zerolog.Disabled {
		return &g.log
	}
	return logger
}

// logRequest emits the access log entry for a response served from cache.
func (g *GqlCache) logRequest(r *http.Request, key string) {
	g.getLogger(r).Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("sourceIp", getRequestSourceIp(r)).
		Str("key", key).
		Int("hit", 1).
		Msg("Sending response to client")
}

func getRequestSourceIp(r *http.Request) string {
	// RemoteAddr is in the format:
	// 1.2.3.4:10000 for ipv4
	// [1:2:3]:10000 for ipv6
	ipAndPort := r.RemoteAddr
	portSepIdx := strings.LastIndex(ipAndPort, ":")
	// if not found, return
	if portSepIdx < 0 {
		return ipAndPort
	}
	ip := ipAndPort[:portSepIdx]
	return ip
}
