package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/room-chat-demo/modules/activity"
	"github.com/example/room-chat-demo/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// APIModule is the driving adapter that exposes the chat core over REST.
type APIModule struct {
	app      *fiber.App
	chat     chat.ChatPort
	activity activity.ActivityPort
	port     int
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule listening on port.
func NewModule(port int, logger types.Logger) *APIModule {
	return &APIModule{
		port:   port,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"chat", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.chat = chat.NewChatAdapter(container)
	case "activity":
		m.activity = activity.NewActivityAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.chat == nil {
		return fmt.Errorf("chat dependency not set")
	}

	m.app = m.newApp()

	// Server availability is verified via Health().
	go func() {
		if err := m.app.Listen(fmt.Sprintf(":%d", m.port)); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "port", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.port,
		},
	}
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          customErrorHandler,
	})
	app.Use(recover.New())
	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// writeRejection maps a business rejection to a 4xx response.
func writeRejection(c *fiber.Ctx, res chat.Result) error {
	status := fiber.StatusBadRequest
	switch res.Reason {
	case chat.ReasonNotFound:
		status = fiber.StatusNotFound
	case chat.ReasonConflict:
		status = fiber.StatusConflict
	case chat.ReasonForbidden:
		status = fiber.StatusForbidden
	}
	reason := res.Reason
	if reason == "" {
		reason = chat.ReasonInvalid
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   reason,
		Message: res.Detail,
	})
}

// writeFault maps a service failure to a 5xx response. Store timeouts are
// reported as 503 so clients know to retry.
func (m *APIModule) writeFault(c *fiber.Ctx, op string, err error) error {
	m.logger.Error("Request failed", "op", op, "error", err)

	switch {
	case errors.Is(err, chat.ErrStoreTimeout):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "store_timeout",
			Message: err.Error(),
		})
	case chat.IsStoreFault(err):
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "store_fault",
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   op + "_failed",
			Message: err.Error(),
		})
	}
}
