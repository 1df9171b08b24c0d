// Package web exposes the master's state over HTTP: a JSON status snapshot,
// Prometheus metrics, liveness and a manual emergency stop.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
	"code.siemens.com/pv-string-controller/master"
)

const shutdownTimeout = 10 * time.Second

// StatusSource is the read/control surface the server needs from the master.
type StatusSource interface {
	Snapshot() master.Snapshot
	EmergencyStop(reason string)
}

type Server struct {
	cfg      common.WebConfig
	echo     *echo.Echo
	source   StatusSource
	gatherer prometheus.Gatherer
}

func NewServer(cfg common.WebConfig, source StatusSource, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{cfg: cfg, echo: e, source: source, gatherer: gatherer}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/status", s.getStatus)
	s.echo.GET("/healthz", s.getHealthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.echo.POST("/emergency-stop", s.postEmergencyStop)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) {
	go func() {
		log.Info().Str("comp", "web").Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Str("comp", "web").Err(err).Msg("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			log.Error().Str("comp", "web").Err(err).Msg("http server shutdown failed")
		}
	}()
}

// getStatus handles GET /status.
func (s *Server) getStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.source.Snapshot())
}

// getHealthz handles GET /healthz.
func (s *Server) getHealthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type emergencyStopRequest struct {
	Reason string `json:"reason"`
}

// postEmergencyStop handles POST /emergency-stop. The stop is latching; the
// process must be restarted to resume operation.
func (s *Server) postEmergencyStop(ctx echo.Context) error {
	var req emergencyStopRequest
	if err := ctx.Bind(&req); err != nil || req.Reason == "" {
		req.Reason = "manual stop via http"
	}

	log.Warn().Str("comp", "web").Str("reason", req.Reason).Msg("emergency stop requested")
	s.source.EmergencyStop(req.Reason)
	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "emergency stop requested"})
}
