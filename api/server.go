package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// Server exposes the conversation transport over HTTP.
type Server struct {
	app        *fiber.App
	listenAddr string
	logger     *log.Logger
}

func NewServer(listenAddr string, responder Responder, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	handler := NewChatHandler(responder)

	check := app.Group("/check")
	check.Get("/healthy", HandleHealthy)

	apiv1 := app.Group("/api/v1")
	apiv1.Post("/chat", handler.HandleChat)
	apiv1.Delete("/chat/:session", handler.HandleEndSession)

	return &Server{
		app:        app,
		listenAddr: listenAddr,
		logger:     logger,
	}
}

func HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// App exposes the fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.logger.Printf("listening on %s", s.listenAddr)
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
