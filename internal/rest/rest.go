package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/assetsum/assetsum/internal/crc"
	"github.com/assetsum/assetsum/internal/manifest"
	"github.com/assetsum/assetsum/internal/metrics"
	"github.com/assetsum/assetsum/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Options configure a Server
type Options struct {
	Root         string // asset tree scanned and verified on request
	MaxBodyBytes int64
	Limiter      *ratelimit.Limiter
}

// Server provides REST API
type Server struct {
	manager *manifest.Manager
	opts    Options
	router  *chi.Mux
}

// NewServer creates a new REST server
func NewServer(manager *manifest.Manager, opts Options) *Server {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(0, 0)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 * 1024 * 1024
	}

	s := &Server{
		manager: manager,
		opts:    opts,
		router:  chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(corsMiddleware)

	s.router.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)

		r.Post("/v1/checksum", s.checksumBody)
		r.Get("/v1/checksum/*", s.checksumText)

		r.Route("/v1/assets", func(r chi.Router) {
			r.Get("/", s.listAssets)
			r.Get("/*", s.getAsset)
		})

		r.Post("/v1/scan", s.scan)
		r.Post("/v1/verify", s.verify)
		r.Post("/v1/compact", s.compact)
	})

	s.router.Get("/healthz", s.health)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Request/Response types
type ChecksumResponse struct {
	Checksum uint32 `json:"checksum"`
	Hex      string `json:"hex"`
	Length   int    `json:"length"`
}

type AssetResponse struct {
	Path     string `json:"path"`
	Checksum uint32 `json:"checksum"`
	Hex      string `json:"hex"`
	Size     int64  `json:"size"`
	ModTime  int64  `json:"mod_time_ms"`
	ScanID   string `json:"scan_id"`
}

type ListAssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

// Handlers
func (s *Server) checksumBody(w http.ResponseWriter, r *http.Request) {
	metrics.ChecksumRequestsTotal.WithLabelValues("body").Inc()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	length := len(body)
	if raw := r.URL.Query().Get("length"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > len(body) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("length must be between 0 and %d", len(body)))
			return
		}
		length = n
	}

	metrics.BytesHashedTotal.WithLabelValues("api").Add(float64(length))
	respondJSON(w, http.StatusOK, checksumResponse(crc.Checksum(body, length), length))
}

func (s *Server) checksumText(w http.ResponseWriter, r *http.Request) {
	metrics.ChecksumRequestsTotal.WithLabelValues("text").Inc()

	text := pathSuffix(r, "/v1/checksum/")
	metrics.BytesHashedTotal.WithLabelValues("api").Add(float64(len(text)))
	respondJSON(w, http.StatusOK, checksumResponse(crc.String(text), len(text)))
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.manager.List()
	if err != nil {
		log.Error().Err(err).Msg("failed to list assets")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListAssetsResponse{Assets: make([]AssetResponse, len(assets))}
	for i, a := range assets {
		resp.Assets[i] = assetResponse(a)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.manager.Get(pathSuffix(r, "/v1/assets/"))
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to get asset")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, assetResponse(asset))
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	result, err := s.manager.Scan(r.Context(), s.opts.Root)
	if err != nil {
		log.Error().Err(err).Msg("failed to scan assets")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	report, err := s.manager.Verify(r.Context(), s.opts.Root)
	if err != nil {
		log.Error().Err(err).Msg("failed to verify assets")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusConflict
	}
	respondJSON(w, status, report)
}

func (s *Server) compact(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Compact(); err != nil {
		log.Error().Err(err).Msg("failed to compact journal")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Helper functions
func checksumResponse(sum uint32, length int) ChecksumResponse {
	return ChecksumResponse{
		Checksum: sum,
		Hex:      fmt.Sprintf("%08x", sum),
		Length:   length,
	}
}

func assetResponse(a *manifest.Asset) AssetResponse {
	return AssetResponse{
		Path:     a.Path,
		Checksum: a.Checksum,
		Hex:      fmt.Sprintf("%08x", a.Checksum),
		Size:     a.Size,
		ModTime:  a.ModTime.UnixMilli(),
		ScanID:   a.ScanID,
	}
}

// pathSuffix returns the decoded remainder of the request path after
// prefix. chi matches on the raw path, so wildcard params keep escapes like
// %2F; r.URL.Path never does.
func pathSuffix(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.Limiter.Allow(clientKey(r)) {
			metrics.RateLimitRejections.Inc()
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
