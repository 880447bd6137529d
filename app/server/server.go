package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"linkrag/app/api"
	"linkrag/ingest"
	"linkrag/search"
	"linkrag/store"
	"linkrag/types"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
	app        *fiber.App
}

func NewServer(cfg types.Config, st store.Storer, svc *ingest.Service, engine *search.Engine) *Server {
	var (
		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler()
		linkHandler   = api.NewLinkHandler(st, svc)
		searchHandler = api.NewSearchHandler(engine, cfg)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/links", linkHandler.HandleSubmitLink)
	apiv1.Get("/links", linkHandler.HandleListLinks)
	apiv1.Get("/links/:id", linkHandler.HandleGetLink)
	apiv1.Delete("/links/:id", linkHandler.HandleDeleteLink)
	apiv1.Post("/search", searchHandler.HandleSearch)

	return &Server{
		listenAddr: cfg.ServerAddr,
		logger:     slog.Default(),
		app:        app,
	}
}

func (s *Server) Run() {
	s.logger.Info("server listening", "addr", s.listenAddr)
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("error to stop server", "error", err.Error())
		return
	}
	s.logger.Info("server stopped")
}
