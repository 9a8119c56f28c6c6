// Package api exposes the WhatsApp webhook over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/orchestrator"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const serviceName = "chative-api"

// Processor runs one inbound message through the conversation pipeline.
type Processor interface {
	ProcessMessage(ctx context.Context, req orchestrator.Request) (*model.AIResponse, error)
}

// TenantCatalog is the slice of the catalog the webhook reads directly.
type TenantCatalog interface {
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)
	GetLatestMenuImage(ctx context.Context, tenantID string) (*model.MenuImage, error)
}

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the handlers. Interactions, Handoffs and Health may be nil.
type Options struct {
	Processor    Processor
	Catalog      TenantCatalog
	Interactions model.InteractionLog
	// Handoffs serves the operator websocket feed.
	Handoffs http.Handler
	Health   map[string]Pinger
	// HTTPClient downloads menu images.
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Now            func() time.Time
}

// NewRouter builds the chi router with every route mounted.
func NewRouter(opts Options) http.Handler {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	validate := validator.New(validator.WithRequiredStructEnabled())

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(NotFound)
	router.MethodNotAllowed(NotAllowed)

	router.Get("/healthz", Health(opts.Health))
	if opts.Handoffs != nil {
		router.Handle("/ws/handoffs", opts.Handoffs)
	}

	router.Route("/api/v1", func(v1 chi.Router) {
		if opts.RequestTimeout > 0 {
			v1.Use(middleware.Timeout(opts.RequestTimeout))
		}
		v1.Post("/ai", Webhook(opts, validate))
	})

	return otelhttp.NewHandler(router, serviceName)
}

type Server struct {
	httpServer *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("address", s.httpServer.Addr).Msg("starting api server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logx.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}
