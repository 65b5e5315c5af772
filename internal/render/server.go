package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/state"
)

// FrameSource supplies the last shown frame as PNG.
type FrameSource interface {
	FramePNG() ([]byte, error)
}

// Tapper injects a one-sample button press.
type Tapper interface {
	Tap(b input.Button)
}

// ServerOptions configure a Server. Frames and Buttons may be nil, which
// disables the matching routes.
type ServerOptions struct {
	Addr    string
	Store   *state.Store
	Frames  FrameSource
	Buttons Tapper
	Logger  *slog.Logger
}

// Server is the local HTTP status endpoint.
type Server struct {
	app    *fiber.App
	addr   string
	store  *state.Store
	frames FrameSource
	taps   Tapper
	logger *slog.Logger
}

// NewServer registers the routes. Call Serve to listen.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("status server requires a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "inkreader",
			DisableStartupMessage: true,
		}),
		addr:   strings.TrimSpace(opts.Addr),
		store:  opts.Store,
		frames: opts.Frames,
		taps:   opts.Buttons,
		logger: logger,
	}
	s.app.Get("/status", s.handleStatus)
	s.app.Get("/frame", s.handleFrame)
	s.app.Post("/button/:name", s.handleButton)
	return s, nil
}

// App exposes the router for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.addr == "" {
		return fmt.Errorf("status server address is empty")
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("render: status server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return fmt.Errorf("status server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.store.Snapshot().View())
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.frames == nil {
		return c.Status(fiber.StatusNotFound).SendString("frames disabled")
	}
	data, err := s.frames.FramePNG()
	if errors.Is(err, ErrNoFrame) {
		return c.Status(fiber.StatusServiceUnavailable).SendString("No frame available")
	}
	if err != nil {
		s.logger.Warn("render: frame encode failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode image")
	}
	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(len(data)))
	return c.Send(data)
}

func (s *Server) handleButton(c *fiber.Ctx) error {
	if s.taps == nil {
		return c.Status(fiber.StatusNotFound).SendString("buttons disabled")
	}
	b, err := input.ParseButton(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	s.taps.Tap(b)
	s.logger.Debug("render: button tapped over http", "button", b.String())
	return c.SendStatus(fiber.StatusAccepted)
}
