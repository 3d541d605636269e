package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/voxreel/api/internal/client"
	"github.com/voxreel/api/internal/config"
	"github.com/voxreel/api/internal/handler"
	"github.com/voxreel/api/internal/middleware"
	"github.com/voxreel/api/internal/render"
	"github.com/voxreel/api/internal/service"
	"github.com/voxreel/api/internal/store"
	"github.com/voxreel/api/internal/worker"
	ws "github.com/voxreel/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize MySQL store
	db, err := store.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	st := store.New(db)

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	groqClient := client.NewGroqClient(&cfg.Groq)
	pexelsClient := client.NewPexelsClient(&cfg.Pexels)
	musicClient := client.NewMusicClient(&cfg.Music)

	// Initialize R2 client (optional - local disk when not configured)
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			storageClient = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, using local disk")
	}

	// Initialize services
	locks := service.NewProjectLocks()
	footageCache := service.NewRedisFootageCache(redisClient, time.Duration(cfg.Pexels.CacheTTLMin)*time.Minute)
	transcriptService := service.NewTranscriptService(groqClient)
	footageService := service.NewFootageService(pexelsClient, footageCache)
	musicService := service.NewMusicService(musicClient)
	projectService := service.NewProjectService(st, transcriptService, footageService, musicService, storageClient, cfg.Upload.Dir, locks)
	renderService := service.NewRenderService(st, asynqClient, locks, time.Duration(cfg.Render.StaleAfterMin)*time.Minute)

	// Initialize handlers
	projectHandler := handler.NewProjectHandler(projectService, validate)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Upload.MaxSizeMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"groq":   groqClient.IsConfigured(),
				"pexels": pexelsClient.IsConfigured(),
				"music":  musicClient.IsConfigured(),
				"r2":     storageClient != nil,
			},
		})
	})

	// Rendered videos (local-disk mode)
	app.Static("/videos", cfg.Render.OutputDir)

	// API routes
	api := app.Group("/api")

	// Project routes
	projects := api.Group("/projects")
	projects.Post("/", rateLimiter.ProjectsLimit(cfg.RateLimit.ProjectsPerHour), projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:projectId", projectHandler.Get)
	projects.Patch("/:projectId", projectHandler.Update)
	projects.Delete("/:projectId", projectHandler.Delete)
	projects.Post("/:projectId/footage", projectHandler.SubmitFootage)
	projects.Get("/:projectId/music", projectHandler.Music)
	projects.Get("/:projectId/sentences/:sentenceId/footage",
		rateLimiter.FootageLimit(cfg.RateLimit.FootagePerMin), projectHandler.FootageCandidates)
	projects.Post("/:projectId/render", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), renderHandler.Start)
	projects.Get("/:projectId/render/tasks", renderHandler.ListTasks)

	// Render routes
	renderRoutes := api.Group("/render")
	renderRoutes.Get("/status/:taskId", renderHandler.Status)

	// Admin routes
	admin := api.Group("/admin")
	admin.Post("/render/:taskId/force-fail", renderHandler.ForceFail)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		taskID := c.Params("taskId")
		hub.HandleConnection(c, taskID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, renderService, storageClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	renderService *service.RenderService,
	storageClient client.StorageClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Render.Concurrency,
			Queues: map[string]int{
				"render": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	executor := render.NewFFmpegExecutor(cfg.Render.FFmpegPath, cfg.Render.WorkDir, cfg.Render.OutputDir, storageClient)
	renderWorker := worker.NewRenderWorker(renderService, executor, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRender, renderWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
