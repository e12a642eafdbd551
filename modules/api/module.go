package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/task-tracker/modules/auth"
	"github.com/example/task-tracker/modules/broadcast"
	"github.com/example/task-tracker/modules/files"
	"github.com/example/task-tracker/modules/tasks"
)

// maxBodySize leaves headroom above the per-file attachment ceiling so a
// multi-file batch is rejected by the size checks, not the body parser.
const maxBodySize = 32 * 1024 * 1024

// APIModule is the HTTP and WebSocket front door. REST handlers and
// WebSocket commands both call into the tasks service; neither transport
// has semantics of its own.
type APIModule struct {
	app           *fiber.App
	addr          string
	authContainer mono.ServiceContainer
	authAdapter   auth.AuthPort
	tasksModule   *tasks.TasksModule
	tasksService  *tasks.Service
	hub           *broadcast.Hub
	blobs         files.BlobStore
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule listening on addr.
func NewModule() *APIModule {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		addr = ":" + port
	}
	return &APIModule{addr: addr}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authContainer = container
		m.authAdapter = auth.NewAuthAdapter(container)
	}
}

// SetTasksModule wires the tasks module directly. Task payloads carry
// file bytes, which stay out of the service container on purpose.
func (m *APIModule) SetTasksModule(tm *tasks.TasksModule) {
	m.tasksModule = tm
}

// SetHub wires the broadcast hub for WebSocket connection registration.
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetBlobStore wires the blob store for serving uploaded files.
func (m *APIModule) SetBlobStore(store files.BlobStore) {
	m.blobs = store
}

// Start initializes the Fiber server and begins listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.authContainer == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.tasksModule == nil || m.hub == nil || m.blobs == nil {
		return fmt.Errorf("tasks module, hub and blob store must be wired before start")
	}
	m.tasksService = m.tasksModule.Service()

	m.app = fiber.New(fiber.Config{
		AppName:               "task-tracker",
		DisableStartupMessage: true,
		BodyLimit:             maxBodySize,
		ErrorHandler:          errorHandler,
	})

	// Add middleware
	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type,Authorization",
		AllowCredentials: true,
	}))

	m.setupRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on %s", m.addr)
	return nil
}

// Stop shuts down the Fiber server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// setupRoutes configures all routes.
func (m *APIModule) setupRoutes() {
	handlers := NewHandlers(m.authAdapter, m.tasksService, m.blobs)

	m.app.Get("/health", handlers.Health)

	// Credential endpoints carry a brute-force limiter.
	authLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "too_many_requests",
				Message: "Too many attempts, try again later",
			})
		},
	})

	authRoutes := m.app.Group("/auth")
	authRoutes.Post("/register", authLimiter, handlers.Register)
	authRoutes.Post("/login", authLimiter, handlers.Login)
	authRoutes.Post("/logout", handlers.Logout)
	authRoutes.Get("/me", RequireSession(m.authAdapter), handlers.Me)

	m.app.Get("/uploads/:name", handlers.ServeUpload)

	taskRoutes := m.app.Group("/tasks", RequireSession(m.authAdapter))
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Post("/", handlers.CreateTask)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Put("/:id", handlers.UpdateTask)
	taskRoutes.Delete("/:id", handlers.DeleteTask)

	m.app.Delete("/files/:id", RequireSession(m.authAdapter), handlers.DeleteFile)

	// WebSocket channel. Auth runs in the upgrade middleware so bad
	// sessions are refused with a plain 401 before the protocol switch.
	m.app.Use("/ws", m.upgradeMiddleware)
	m.app.Get("/ws", websocket.New(m.handleWebSocket))
}

// errorHandler handles Fiber-level errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   wireCode(code),
		Message: message,
	})
}

// wireCode maps an HTTP status to the machine-readable error code the
// handlers use for the same condition.
func wireCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusRequestEntityTooLarge:
		return "file_too_large"
	case fiber.StatusTooManyRequests:
		return "too_many_requests"
	default:
		return "internal_error"
	}
}

func corsOrigins() string {
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:8080"
	}
	return origins
}
