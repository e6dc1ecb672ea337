package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Platform *handlers.PlatformHandler
	Post     *handlers.PostHandler
	Media    *handlers.MediaHandler
	User     *handlers.UserHandler
}

func NewApp(frontendURL string) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     frontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	return app
}

func RegisterRoutes(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware) {
	app.Get("/login", h.Auth.Login)
	app.Get("/login/callback", h.Auth.LoginCallbackHandler)

	// Authenticated by the signed state, not the session.
	app.Get("/auth/youtube/callback", h.Platform.YoutubeCallback)

	api := app.Group("/api")
	api.Use(auth.AuthMiddleware())

	api.Get("/user/me", h.User.Me)

	api.Post("/media", h.Media.Upload)

	api.Post("/posts", h.Post.CreatePost)
	api.Get("/posts", h.Post.ListPosts)
	api.Get("/posts/:id", h.Post.GetPost)
	api.Post("/posts/:id/publish", h.Post.PublishPost)
	api.Get("/jobs/:id", h.Post.GetJob)

	api.Get("/connections", h.Platform.ListConnections)
	api.Get("/connections/youtube/start", h.Platform.StartYoutube)
	api.Post("/connections/youtube/refresh", h.Platform.RefreshYoutube)
	api.Post("/connections/:platform/remove", h.Platform.RemoveConnection)
}
