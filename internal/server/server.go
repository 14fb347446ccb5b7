// Package server exposes script building, parsing, compilation and request
// processing over HTTP.
package server

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/compiler"
	"github.com/lessonvox/lessonvox/internal/orchestrator"
	"github.com/lessonvox/lessonvox/internal/store"
)

// Server bundles dependencies for the HTTP routes. The orchestrator and
// store are optional; request routes answer 503 without them.
type Server struct {
	app          *fiber.App
	compiler     *compiler.Compiler
	encoder      audio.Encoder
	orchestrator *orchestrator.Orchestrator
	requests     store.RequestStore
	logger       *log.Logger
}

// Config holds server timeouts.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// New creates a server and registers its routes.
func New(cfg Config, c *compiler.Compiler, enc audio.Encoder, orch *orchestrator.Orchestrator, requests store.RequestStore) *Server {
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = 4 * 1024 * 1024
	}

	s := &Server{
		compiler:     c,
		encoder:      enc,
		orchestrator: orch,
		requests:     requests,
		logger:       log.WithPrefix("server"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "lessonvox",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.register()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) register() {
	s.app.Use(recover.New())

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	v1 := s.app.Group("/v1")
	v1.Post("/scripts", s.buildScript)
	v1.Post("/scripts/parse", s.parseScript)
	v1.Post("/compile", s.compile)
	v1.Post("/requests/process", s.processPending)
	v1.Post("/requests/:id/process", s.processOne)
	v1.Post("/requests/:id/status", s.setStatus)
}

// handleError renders every error as {"error": "..."}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
