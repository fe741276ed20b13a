// Package web exposes stored summaries over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

const (
	msgNoSummaries = "No summaries available yet"
	msgIncomplete  = "This page is not complete"
)

//go:embed templates/*.html
var templateFS embed.FS

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Server serves the summary listing, placeholder pages and operational
// endpoints.
type Server struct {
	echo   *echo.Echo
	reader ports.SummaryReader
	logger *slog.Logger
}

// NewServer builds the HTTP surface. gatherer may be nil, in which case
// /metrics is not mounted.
func NewServer(reader ports.SummaryReader, gatherer prometheus.Gatherer, logger *slog.Logger) (*Server, error) {
	if reader == nil {
		return nil, errors.New("web: summary reader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &templateRenderer{templates: tmpl}

	s := &Server{echo: e, reader: reader, logger: logger.With("component", "web")}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogError:   true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				s.logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.GET("/", s.index)
	e.GET("/daily", s.incomplete)
	e.GET("/monthly", s.incomplete)
	e.GET("/past", s.incomplete)
	e.GET("/api/summaries", s.listSummaries)
	e.GET("/healthz", s.health)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("web server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) index(c echo.Context) error {
	records, err := s.reader.GetAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "load summaries").SetInternal(err)
	}
	if len(records) == 0 {
		return apology(c, msgNoSummaries, http.StatusNotFound)
	}
	return c.Render(http.StatusOK, "index.html", struct {
		Summaries []domain.SummaryRecord
	}{Summaries: records})
}

func (s *Server) incomplete(c echo.Context) error {
	return apology(c, msgIncomplete, http.StatusBadRequest)
}

func (s *Server) listSummaries(c echo.Context) error {
	records, err := s.reader.GetAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "load summaries").SetInternal(err)
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
