package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vainnor/flightlog/analyst"
	"github.com/vainnor/flightlog/collector"
	"github.com/vainnor/flightlog/metrics"
	"github.com/vainnor/flightlog/session"
	"github.com/vainnor/flightlog/types"
)

type Collector interface {
	GetStats() types.CollectionStats
	Ingest(ctx context.Context, filename string, src collector.Source) (*session.Session, types.Summary, error)
}

type Sessions interface {
	Get(id string) (*session.Session, error)
	Len() int
}

type Analyst interface {
	Answer(ctx context.Context, sessionID string, messages []types.DecodedMessage, query string) analyst.Answer
}

// UploadLister reads archived uploads.
type UploadLister interface {
	RecentUploads(ctx context.Context, limit int) ([]types.UploadRecord, error)
}

type Config struct {
	Collector Collector
	Sessions  Sessions
	Analyst   Analyst
	// Archive is optional; /api/uploads answers 503 without it.
	Archive UploadLister
	// Keys is optional; /api/keys answers 503 without it. MasterKey guards
	// those routes.
	Keys      KeyStore
	MasterKey string

	MaxUploadBytes int64
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	APIKeys        []string

	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// NewRouter creates and configures a new router with all API endpoints. The
// returned handler applies CORS before routing so preflight requests never
// reach the method matchers.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{
		collector:      cfg.Collector,
		sessions:       cfg.Sessions,
		analyst:        cfg.Analyst,
		archive:        cfg.Archive,
		keys:           cfg.Keys,
		master:         NewKeySet([]string{cfg.MasterKey}),
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
	}

	r := mux.NewRouter()
	r.Use(logRequests(logger, cfg.Metrics))

	r.HandleFunc("/healthz", h.health).Methods("GET")
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods("GET")
	}

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, NewKeySet(cfg.APIKeys))
	limiter.store = cfg.Keys

	// Upload and chat keep the paths existing frontends call.
	root := r.NewRoute().Subrouter()
	root.Use(limiter.Middleware)
	root.HandleFunc("/upload/", h.upload).Methods("POST")
	root.HandleFunc("/upload", h.upload).Methods("POST")
	root.HandleFunc("/chat", h.chat).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(limiter.Middleware)

	// Session endpoints
	api.HandleFunc("/sessions/{id}/summary", h.sessionSummary).Methods("GET")
	api.HandleFunc("/sessions/{id}/types", h.sessionTypes).Methods("GET")
	api.HandleFunc("/sessions/{id}/messages", h.sessionMessages).Methods("GET")
	api.HandleFunc("/sessions/{id}/export", h.sessionExport).Methods("GET")

	api.HandleFunc("/uploads", h.recentUploads).Methods("GET")
	api.HandleFunc("/collector/stats", h.collectorStats).Methods("GET")

	// API key management
	api.HandleFunc("/keys", h.createKey).Methods("POST")
	api.HandleFunc("/keys", h.listKeys).Methods("GET")
	api.HandleFunc("/keys", h.deleteKey).Methods("DELETE")

	return CORS(cfg.CORSOrigins)(r)
}
