package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/api"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/cache"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/db"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/email"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/storage"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (notification emails), 'img' (cover processing), 'all' (default)")

// capturedEmailTTL bounds how long captured test emails stay in Redis.
const capturedEmailTTL = time.Hour

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Redis
	redisClient, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Email
	var capture *email.RedisSender
	var primaryEmailSender email.Sender
	if cfg.MockServices {
		log.Println("MOCK_SERVICES enabled: capturing outgoing email in Redis.")
		capture = email.NewRedisSender(redisClient, capturedEmailTTL)
		primaryEmailSender = capture
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeSender(primaryEmailSender)
	if cfg.LogEmailsDir != "" {
		fileSender, err := email.NewFileSender(cfg.LogEmailsDir)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS_DIR='%s'): %v. Proceeding without file logging.", cfg.LogEmailsDir, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Printf("Outgoing email is also written to %s", fileSender.Path())
		}
	}

	// Services
	userService := services.NewUserService(mongoDb, cfg)
	bookService := services.NewBookService(mongoDb, cfg)
	if cfg.AdminEmail != "" {
		admin, err := userService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("Failed to set up admin account: %v", err)
		}
		log.Printf("Admin account ready: %s", admin.Email)
	}

	s3StorageService, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	taskClient := tasks.NewClient(cfg)
	defer taskClient.Close()
	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, s3StorageService, bookService, userService)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)
	done := make(chan struct{})

	// Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(capture, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var workers []*asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, mongoDb, taskClient, s3StorageService, done),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	workerMode := func(name string, isImageWorker, isBgWorker bool) {
		srv, mux := tasks.NewServer(cfg, taskProcessor, isImageWorker, isBgWorker)
		if srv == nil {
			return
		}
		fmt.Printf("Starting %s worker...\n", name)
		if err := srv.Start(mux); err != nil {
			log.Fatalf("Failed to start %s worker: %v", name, err)
		}
		workers = append(workers, srv)
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		workerMode("background", false, true)
	case "img":
		workerMode("image processing", true, false)
	case "all":
		apiMode()
		workerMode("background", false, true)
		workerMode("image processing", true, false)
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}
	close(done)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	fmt.Println("Shutting down Service API server...")
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	for _, srv := range workers {
		srv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	fmt.Println("Server gracefully stopped")
}
