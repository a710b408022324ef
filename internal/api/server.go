// Package api provides the HTTP REST API and WebSocket server for FarmHub Core.
//
// It exposes the device fleet, component catalog, telemetry history,
// automation rules, and manual actuator control to user interfaces.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/farmhub/farmhub-core/internal/automation"
	"github.com/farmhub/farmhub-core/internal/command"
	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/device"
	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
	"github.com/farmhub/farmhub-core/internal/infrastructure/logging"
	"github.com/farmhub/farmhub-core/internal/monitor"
	"github.com/farmhub/farmhub-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandSender issues actuator commands on behalf of API callers.
type CommandSender interface {
	Send(ctx context.Context, deviceIdentifier, componentToken, cmd string, parameters map[string]any, source string, issuedBy *string) error
}

// IngestStats reports the inbound queue state for the health endpoint.
type IngestStats interface {
	QueueDepth() int
	Dropped() uint64
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Devices    device.Repository
	Components component.Repository
	Readings   telemetry.Repository
	Commands   command.Repository
	Rules      *automation.Registry
	Alerts     automation.Repository
	Sender     CommandSender
	Monitor    *monitor.Monitor
	Ingest     IngestStats
	// ExternalHub, if set, is used instead of creating a hub. The
	// message pipeline needs the same hub for broadcasting.
	ExternalHub *Hub
	Version     string
}

// Server is the HTTP API server for FarmHub Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	devices    device.Repository
	components component.Repository
	readings   telemetry.Repository
	commands   command.Repository
	rules      *automation.Registry
	alerts     automation.Repository
	sender     CommandSender
	monitor    *monitor.Monitor
	ingest     IngestStats
	version    string

	server      *http.Server
	hub         *Hub
	externalHub bool
	tickets     *ticketStore
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	if deps.Components == nil {
		return nil, fmt.Errorf("component repository is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		devices:    deps.Devices,
		components: deps.Components,
		readings:   deps.Readings,
		commands:   deps.Commands,
		rules:      deps.Rules,
		alerts:     deps.Alerts,
		sender:     deps.Sender,
		monitor:    deps.Monitor,
		ingest:     deps.Ingest,
		version:    deps.Version,
		tickets:    newTicketStore(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Periodic ticket cleanup to prevent memory leaks.
	go s.tickets.cleanLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err := s.server.ListenAndServe()
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

// Hub returns the WebSocket hub, creating it if the server has not
// started yet. Callers that broadcast before Start use this.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
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
