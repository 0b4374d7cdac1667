package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/forestos-core/internal/alert"
	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/config"
	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/infrastructure/logging"
	"github.com/nerrad567/forestos-core/internal/plant"
	"github.com/nerrad567/forestos-core/internal/sensor"
	"github.com/nerrad567/forestos-core/internal/watering"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is an optional component reported by GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AlertSource publishes alerts as they are raised.
type AlertSource interface {
	OnAlert(n alert.Notifier)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Version  string

	DB            *database.DB
	Tokens        *auth.TokenCodec
	Gate          *auth.Gate
	Authenticator *auth.Authenticator
	Users         auth.UserRepository
	Catalog       plant.CatalogRepository
	Plants        plant.Repository
	Sensors       sensor.Repository
	Readings      *sensor.Service
	Watering      *watering.Service
	Alerts        alert.Repository
	AlertSource   AlertSource

	// Optional components reported by /health, keyed by name.
	Components map[string]HealthChecker
}

// Server is the HTTP API server for ForestOS.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	version string

	db         *database.DB
	tokens     *auth.TokenCodec
	gate       *auth.Gate
	authn      *auth.Authenticator
	users      auth.UserRepository
	catalog    plant.CatalogRepository
	plants     plant.Repository
	sensors    sensor.Repository
	readings   *sensor.Service
	watering   *watering.Service
	alerts     alert.Repository
	components map[string]HealthChecker

	hub     *Hub
	tickets *ticketStore
	metrics *metrics
	server  *http.Server
	cancel  context.CancelFunc // cancels background goroutines on Close()
	now     func() time.Time
}

// New creates a new API server with the given dependencies and subscribes
// the WebSocket hub to the domain event sources.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	switch {
	case deps.Tokens == nil:
		return nil, fmt.Errorf("token codec is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("auth gate is required")
	case deps.Authenticator == nil:
		return nil, fmt.Errorf("authenticator is required")
	case deps.Users == nil:
		return nil, fmt.Errorf("user repository is required")
	case deps.Catalog == nil || deps.Plants == nil:
		return nil, fmt.Errorf("plant repositories are required")
	case deps.Sensors == nil || deps.Readings == nil:
		return nil, fmt.Errorf("sensor repository and service are required")
	case deps.Watering == nil:
		return nil, fmt.Errorf("watering service is required")
	case deps.Alerts == nil:
		return nil, fmt.Errorf("alert repository is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		version:    deps.Version,
		db:         deps.DB,
		tokens:     deps.Tokens,
		gate:       deps.Gate,
		authn:      deps.Authenticator,
		users:      deps.Users,
		catalog:    deps.Catalog,
		plants:     deps.Plants,
		sensors:    deps.Sensors,
		readings:   deps.Readings,
		watering:   deps.Watering,
		alerts:     deps.Alerts,
		components: deps.Components,
		tickets:    newTicketStore(),
		now:        time.Now,
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	s.metrics = newMetrics(s.hub, s.db)
	s.subscribeEvents(deps.AlertSource)

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and ticket cleanup, then launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }
