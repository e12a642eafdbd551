package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/task-tracker/modules/api"
	"github.com/example/task-tracker/modules/auth"
	"github.com/example/task-tracker/modules/broadcast"
	"github.com/example/task-tracker/modules/files"
	"github.com/example/task-tracker/modules/tasks"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Task Tracker ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	authModule := auth.NewModule()
	filesModule := files.NewModule()
	tasksModule := tasks.NewModule()
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule()

	// Manual wiring for what stays out of the service container: blob
	// bytes and the task service (file payloads), plus the WebSocket hub.
	tasksModule.SetBlobStore(filesModule.Store())
	apiModule.SetTasksModule(tasksModule)
	apiModule.SetHub(broadcastModule.Hub())
	apiModule.SetBlobStore(filesModule.Store())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: accounts + sessions (ServiceProviderModule)
	// - files: blob storage
	// - tasks: core domain + event emitter
	// - broadcast: event consumer feeding the WebSocket hub
	// - api: Fiber HTTP/WebSocket server (depends on auth)
	app.Register(authModule)
	app.Register(filesModule)
	app.Register(tasksModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health           - Health check")
	log.Println("  POST   /auth/register    - Create an account")
	log.Println("  POST   /auth/login       - Log in")
	log.Println("  POST   /auth/logout      - Log out")
	log.Println("  GET    /auth/me          - Current account")
	log.Println("  GET    /tasks            - List tasks (?status=)")
	log.Println("  POST   /tasks            - Create task (multipart or JSON)")
	log.Println("  GET    /tasks/:id        - Get task")
	log.Println("  PUT    /tasks/:id        - Update task")
	log.Println("  DELETE /tasks/:id        - Delete task")
	log.Println("  DELETE /files/:id        - Delete attachment")
	log.Println("  GET    /uploads/:name    - Serve attachment blob")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Actions: tasks:get, tasks:create, tasks:update, tasks:delete")
	log.Println("  Broadcasts: tasks:created, tasks:updated, tasks:deleted")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
