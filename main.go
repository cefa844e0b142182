package main

import (
	"context"
	"log"
	"os"
	"time"

	apimod "github.com/example/room-chat-demo/modules/api"
	activitymod "github.com/example/room-chat-demo/modules/activity"
	chatmod "github.com/example/room-chat-demo/modules/chat"
	sequencemod "github.com/example/room-chat-demo/modules/sequence"
	storemod "github.com/example/room-chat-demo/modules/store"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("=== Room Chat Demo ===")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DBPath)
	log.Printf("Sequence Backend: %s", cfg.SequenceBackend)
	if cfg.SequenceBackend == SequenceBackendRedis {
		log.Printf("Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	}
	log.Printf("Store Timeout: %s", cfg.StoreTimeout)
	log.Printf("Room List: %s, User List: %s", cfg.RoomListName, cfg.UserListName)

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Plugins start before modules. The chat module receives them through
	// SetPlugin under the aliases used here.
	storePlugin := storemod.NewPluginModule(cfg.DBPath, cfg.DBDebug, app.Logger())
	if err := app.RegisterPlugin(storePlugin, "store"); err != nil {
		log.Fatalf("Failed to register store plugin: %v", err)
	}
	if cfg.SequenceBackend == SequenceBackendRedis {
		sequencePlugin := sequencemod.NewPluginModule(cfg.SequenceConfig(), app.Logger())
		if err := app.RegisterPlugin(sequencePlugin, "sequence"); err != nil {
			log.Fatalf("Failed to register sequence plugin: %v", err)
		}
	}

	// Create modules
	chatModule := chatmod.NewModule(cfg.ChatConfig(), app.Logger())
	activityModule := activitymod.NewModule(app.Logger())
	apiModule := apimod.NewModule(cfg.HTTPPort, app.Logger())

	// Register modules with the framework.
	// - chat: core domain (ServiceProviderModule + EventEmitterModule + UsePluginModule)
	// - activity: event consumer keeping per-room counters
	// - api: driving adapter (Fiber HTTP server, depends on chat and activity)
	app.Register(chatModule)
	app.Register(activityModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

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

func printStartupInfo(cfg Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.HTTPPort)
	log.Println("  GET    /health                                - Health check")
	log.Println("  GET    /api/v1/rooms                          - List declared rooms")
	log.Println("  POST   /api/v1/rooms                          - Create a room")
	log.Println("  GET    /api/v1/rooms/:name                    - Room details")
	log.Println("  DELETE /api/v1/rooms/:name                    - Undeclare a room")
	log.Println("  POST   /api/v1/rooms/:name/members            - Register a member")
	log.Println("  DELETE /api/v1/rooms/:name/members/:alias     - Deregister a member")
	log.Println("  POST   /api/v1/rooms/:name/blocks             - Block a sender within the room")
	log.Println("  DELETE /api/v1/rooms/:name/blocks/:alias/:target - Unblock within the room")
	log.Println("  POST   /api/v1/rooms/:name/messages           - Send a message")
	log.Println("  GET    /api/v1/rooms/:name/messages           - Retrieve messages (?alias=&limit=&objects=)")
	log.Println("  GET    /api/v1/rooms/:name/messages/search    - Find a message by body (?body=)")
	log.Println("  GET    /api/v1/rooms/:name/activity           - Room activity counters")
	log.Println("  POST   /api/v1/users                          - Register a user")
	log.Println("  GET    /api/v1/users                          - List users")
	log.Println("  GET    /api/v1/users/:alias                   - User details")
	log.Println("  DELETE /api/v1/users/:alias                   - Deregister a user")
	log.Println("  POST   /api/v1/users/:alias/blocks            - Block a sender")
	log.Println("  DELETE /api/v1/users/:alias/blocks/:target    - Unblock a sender")
	log.Println("  GET    /api/v1/activity                       - Activity summary")
	log.Println("  GET    /api/v1/activity/deliveries            - Recent deliveries")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
