// Package server exposes campaigns, lead imports, reports and the interview
// endpoints over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/interview"
	"github.com/sells-group/interview-cli/internal/leads"
	"github.com/sells-group/interview-cli/internal/report"
	"github.com/sells-group/interview-cli/internal/store"
)

// defaultMaxUpload caps lead uploads when Deps.MaxUploadBytes is unset.
const defaultMaxUpload = 10 << 20

// Deps are the components the HTTP layer calls into.
type Deps struct {
	Store          store.Store
	Ingester       *leads.Ingester
	Processor      *interview.Processor
	Access         *interview.Access
	Signer         *interview.Signer
	Loader         *report.Loader
	PublicURL      string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUpload
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	return &Server{deps: deps}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/convai-signed-url", s.handleSignedURL)

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCreateCampaign)
			r.Get("/", s.handleListCampaigns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleCampaignDetail)
				r.Post("/leads", s.handleImportLeads)
				r.Get("/leads", s.handleListLeads)
				r.Get("/leads.csv", s.handleExportLeads)
				r.Get("/report", s.handleReport)
				r.Get("/report.csv", s.handleReportCSV)
			})
		})
	})

	r.Route("/interview/{token}", func(r chi.Router) {
		r.Get("/", s.handleResolveInterview)
		r.Post("/complete", s.handleCompleteInterview)
		r.Post("/process", s.handleProcessInterview)
	})

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
