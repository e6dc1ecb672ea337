package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/database"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platforms"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cipher, err := utils.NewCipher(cfg.EncryptionKey, cfg.AllowLegacyPlaintextTokens)
	if err != nil {
		log.Fatalf("Failed to build token cipher: %v", err)
	}

	storage, err := service.NewStorageService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}

	redisConn := redisOpt(cfg.RedisURI)
	client := asynq.NewClient(redisConn)
	defer client.Close()

	userRepo := repository.NewUserRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	destinationRepo := repository.NewDestinationRepository(db)
	postRepo := repository.NewPostRepository(db, destinationRepo)
	jobRepo := repository.NewJobRepository(db)
	jobLogRepo := repository.NewJobLogRepository(db)
	accountRepo := repository.NewConnectedAccountRepository(db)

	googleOAuth := service.NewGoogleOAuthConfig(cfg)
	tokenService := service.NewTokenService(accountRepo, cipher, cfg.TokenExpiryMargin, map[models.Platform]service.TokenRefresher{
		models.PlatformYoutube: service.NewGoogleRefresher(googleOAuth),
	})

	adapters := platforms.NewDefaultRegistry(platforms.NewYoutubeAdapter(tokenService, storage))

	authService := service.NewAuthService(cfg, userRepo)
	userService := service.NewUserService(userRepo, accountRepo)
	mediaService := service.NewMediaService(mediaAssetRepo, storage)
	postService := service.NewPostService(postRepo, destinationRepo, mediaAssetRepo, jobRepo, jobLogRepo, queue.NewClient(client), cfg.PublishMaxAttempts)
	publishService := service.NewPublishService(jobRepo, jobLogRepo, postRepo, destinationRepo, mediaAssetRepo, adapters)
	youtubeService := service.NewYoutubeService(googleOAuth, cfg.OAuthStateSecret, cipher, accountRepo)
	platformService := service.NewPlatformService(accountRepo, cipher, &http.Client{Timeout: 10 * time.Second})

	app := api.NewApp(cfg.FrontendURL)
	api.RegisterRoutes(app, api.Handlers{
		Auth:     handlers.NewAuthHandler(cfg, authService),
		Platform: handlers.NewPlatformHandler(platformService, youtubeService, tokenService, cfg),
		Post:     handlers.NewPostHandler(postService),
		Media:    handlers.NewMediaHandler(mediaService),
		User:     handlers.NewUserHandler(userService),
	}, middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName))

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(accountRepo, tokenService, cfg.TokenRefreshWindow)
	c := cron.New()
	if err := c.AddFunc(cfg.TokenRefreshSchedule, refreshTokenJob.RefreshTokens); err != nil {
		log.Fatalf("Invalid TOKEN_REFRESH_SCHEDULE %q: %v", cfg.TokenRefreshSchedule, err)
	}
	c.Start()

	// queue
	server := queue.NewServer(redisConn, cfg.WorkerConcurrency, cfg.PublishBackoff, cfg.PublishBackoffMax)
	if err := server.Start(queue.NewServeMux(queue.NewWorker(publishService))); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}
	slog.Info("asynq server started", "concurrency", cfg.WorkerConcurrency)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "addr", cfg.HTTPAddr)

	gracefulShutdown(app, server, c)
}

// redisOpt accepts a redis:// URI or a bare host:port.
func redisOpt(uri string) asynq.RedisConnOpt {
	if opt, err := asynq.ParseRedisURI(uri); err == nil {
		return opt
	}
	return asynq.RedisClientOpt{Addr: uri}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, c *cron.Cron) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}

	c.Stop()
	// Waits for in-flight publish tasks; unfinished ones are requeued.
	server.Shutdown()

	slog.Info("server shutdown complete")
}
