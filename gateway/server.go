// Package gateway is the HTTP surface of the move-planner AI gateway. It
// routes conversational and structured requests to the configured LLM
// providers, relays incremental event streams to the client, and enforces
// strict output shapes for structured requests.
//
// All state is per-request: each handler invocation owns its buffers,
// attempt counters, and upstream connection exclusively, so no locking
// exists anywhere in the package.
package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lennylodge/gateway/listings"
	"github.com/lennylodge/gateway/providers/ai"
)

// Server holds the gateway's collaborators. The zero value is not usable;
// construct with New.
type Server struct {
	primary   ai.Provider
	secondary ai.Provider
	importer  *listings.Importer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSecondary sets the optional secondary provider used for second
// opinions and policy-gated fallback.
func WithSecondary(provider ai.Provider) Option {
	return func(s *Server) { s.secondary = provider }
}

// WithImporter sets the listing import collaborator. Without it the import
// endpoint responds 404.
func WithImporter(importer *listings.Importer) Option {
	return func(s *Server) { s.importer = importer }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a gateway server around the primary provider.
func New(primary ai.Provider, opts ...Option) *Server {
	s := &Server{
		primary: primary,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gateway's HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/ai/chat", s.handleChat)
	mux.HandleFunc("POST /api/ai/research", s.handleResearch)
	mux.HandleFunc("POST /api/ai/explain", s.handleExplain)
	mux.HandleFunc("POST /api/ai/plan", s.handlePlan)
	mux.HandleFunc("POST /api/ai/suggest", s.handleSuggest)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.importer != nil {
		mux.HandleFunc("POST /api/listings/import", s.handleListingImport)
	}

	return requestLogger(s.logger, mux)
}

// provider resolves a routed provider ID to the configured adapter. The
// secondary slot may be nil when no secondary provider is configured.
func (s *Server) provider(id ai.ProviderID) ai.Provider {
	if id == ai.ProviderXAI {
		return s.secondary
	}
	return s.primary
}

// secondaryAvailable reports whether the fallback gate can open at all.
func (s *Server) secondaryAvailable() bool {
	return s.secondary != nil && s.secondary.Configured()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"ts": time.Now().UTC().Format(time.RFC3339),
	})
}
