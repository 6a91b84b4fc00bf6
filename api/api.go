package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is the API server for managing and querying the shelf system
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. Collaborators are injected via Config
// to allow sharing with other components (e.g., the CLI when serving and
// ingesting from the same process).
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if config.Storer == nil {
		return nil, errors.New("document store is required")
	}
	if config.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if config.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/search", s.handleSearch)
	app.Post("/documents", s.handleIngest)
	app.Delete("/documents/:id", s.handleDeleteDocument)
	app.Get("/indexes", s.handleListIndexes)
	app.Post("/chat", s.handleChat)

	return s, nil
}

// Mount attaches an additional net/http handler under the given path prefix,
// used to expose the MCP endpoint on the same listener.
func (s *Server) Mount(prefix string, h http.Handler) {
	s.app.All(prefix+"/*", adaptor.HTTPHandler(h))
	s.app.All(prefix, adaptor.HTTPHandler(h))
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
