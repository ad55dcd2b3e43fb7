/*
Package server implements the identicon HTTP service.

Every request path is an identifier: GET /alice responds with the
identicon for "alice". A path that is already 32 hexadecimal characters
is treated as a precomputed digest, which lets clients hash identifiers
themselves so that email addresses or user IDs never reach the service.
Rendered images never change, so responses carry a strong entity tag and
a ten year max-age.
*/
package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bodgit/sigil"
	"github.com/bodgit/sigil/cache"
	"github.com/rs/zerolog"
)

const (
	// DefaultWidth is used when a request has no w parameter.
	DefaultWidth = 120

	// DefaultMaxWidth bounds the work a single request can ask for.
	DefaultMaxWidth = 600

	// Rendered images are immutable so clients may cache them for ten
	// years.
	cacheControl = "max-age=315360000"
)

// Config carries the server configuration.
type Config struct {
	// Theme to render with. A zero Theme means sigil.DefaultTheme. The
	// quiet zone is overridden either way; the service always renders
	// the Cupcake half-cell border.
	Theme sigil.Theme

	// DefaultWidth and MaxWidth default to the package constants when
	// zero.
	DefaultWidth int
	MaxWidth     int

	// Cache, when not nil, persists rendered PNGs across requests.
	Cache *cache.DB

	// Logger receives one entry per request.
	Logger zerolog.Logger
}

// Server renders identicons over HTTP.
type Server struct {
	theme        sigil.Theme
	defaultWidth int
	maxWidth     int
	cache        *cache.DB
	logger       zerolog.Logger
	metrics      *metrics
}

// New validates cfg and builds the server, failing up front on a theme
// or width that could never serve a request.
func New(cfg Config) (*Server, error) {
	theme := cfg.Theme
	if theme.Rows == 0 && theme.Foreground == nil {
		theme = sigil.DefaultTheme()
	}
	theme.QuietZone = sigil.QuietZoneCell

	if _, err := sigil.Generate(theme, nil); err != nil {
		return nil, err
	}

	s := &Server{
		theme:        theme,
		defaultWidth: cfg.DefaultWidth,
		maxWidth:     cfg.MaxWidth,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		metrics:      newMetrics(),
	}
	if s.defaultWidth == 0 {
		s.defaultWidth = DefaultWidth
	}
	if s.maxWidth == 0 {
		s.maxWidth = DefaultMaxWidth
	}

	if err := s.checkWidth(s.defaultWidth); err != nil {
		return nil, fmt.Errorf("server: default %w", err)
	}

	return s, nil
}

// Handler returns the root handler: identicons at every path, the
// metrics registry at /metrics and a 404 for the favicon requests
// browsers insist on making.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.handler())
	mux.HandleFunc("/favicon.ico", http.NotFound)
	mux.HandleFunc("/", s.serveSigil)
	return s.logRequests(mux)
}

func (s *Server) checkWidth(width int) error {
	if width > s.maxWidth {
		return fmt.Errorf("width must be at most %d", s.maxWidth)
	}
	div := (s.theme.Rows + 1) * 2
	if width <= 0 || width%div != 0 {
		return fmt.Errorf("width must be a positive multiple of %d", div)
	}
	return nil
}

func (s *Server) serveSigil(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	width := s.defaultWidth
	if v := query.Get("w"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "w must be an integer", http.StatusBadRequest)
			return
		}
		width = n
	}
	if err := s.checkWidth(width); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// A bare ?inverted with no value counts as true.
	var inverted bool
	if v, ok := query["inverted"]; ok {
		inverted = true
		if len(v) > 0 && v[0] != "" {
			b, err := strconv.ParseBool(v[0])
			if err != nil {
				http.Error(w, "inverted must be a boolean", http.StatusBadRequest)
				return
			}
			inverted = b
		}
	}

	identifier := strings.TrimPrefix(r.URL.Path, "/")
	digest, err := sigil.ParseDigest(identifier)
	if err != nil {
		digest = sigil.Hash([]byte(identifier))
	}

	// The cache key doubles as the entity tag; it names the exact
	// variant, digest, width and inversion.
	key := cache.Key(digest.String(), width, inverted)
	etag := `"` + key + `"`

	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var img []byte
	if s.cache != nil {
		b, err := s.cache.Get(key)
		if err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("cache get")
		}
		if b != nil {
			s.metrics.cacheHits.Inc()
			img = b
		} else {
			s.metrics.cacheMisses.Inc()
		}
	}

	if img == nil {
		sg, err := sigil.FromDigest(s.theme, digest)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if inverted {
			sg = sg.Invert()
		}
		if img, err = sg.PNG(width); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.metrics.renders.Inc()

		if s.cache != nil {
			if err := s.cache.Put(key, img); err != nil {
				s.logger.Error().Err(err).Str("key", key).Msg("cache put")
			}
		}
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(img)))
	h.Set("Cache-Control", cacheControl)
	h.Set("ETag", etag)
	w.Write(img)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.metrics.requests.WithLabelValues(strconv.Itoa(sw.status)).Inc()
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
