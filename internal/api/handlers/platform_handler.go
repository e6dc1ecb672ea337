package handlers

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
)

type PlatformHandler struct {
	ps     service.PlatformService
	yt     service.YoutubeService
	tokens service.TokenService
	cfg    *config.Config
}

func NewPlatformHandler(ps service.PlatformService, yt service.YoutubeService, tokens service.TokenService, cfg *config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:     ps,
		yt:     yt,
		tokens: tokens,
		cfg:    cfg,
	}
}

// StartYoutube returns the consent URL. The frontend navigates to it, since
// a fetch cannot follow a cross-origin redirect.
func (h *PlatformHandler) StartYoutube(c *fiber.Ctx) error {
	authURL, err := h.yt.AuthURL(GetUserID(c))
	if err != nil {
		return respondError(c, err, "unable to start youtube connection")
	}
	return c.JSON(fiber.Map{"url": authURL})
}

func (h *PlatformHandler) YoutubeCallback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		slog.Info("youtube consent declined", "error", errParam)
		return c.Redirect(fmt.Sprintf("%s/dashboard/accounts?error=%s", h.cfg.FrontendURL, url.QueryEscape(errParam)), fiber.StatusTemporaryRedirect)
	}

	if _, err := h.yt.Callback(c.Context(), c.Query("code"), c.Query("state")); err != nil {
		return respondError(c, err, "unable to connect youtube")
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListConnections(c *fiber.Ctx) error {
	connections, err := h.ps.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "failed to fetch connected accounts")
	}
	return c.Status(fiber.StatusOK).JSON(connections)
}

// RefreshYoutube re-validates the stored grant. The token itself is never
// returned.
func (h *PlatformHandler) RefreshYoutube(c *fiber.Ctx) error {
	if _, err := h.tokens.ForceRefresh(c.Context(), GetUserID(c), models.PlatformYoutube); err != nil {
		return respondError(c, err, "unable to refresh youtube token")
	}
	return c.JSON(fiber.Map{"refreshed": true})
}

func (h *PlatformHandler) RemoveConnection(c *fiber.Ctx) error {
	platform := models.Platform(strings.ToUpper(c.Params("platform")))
	if !platform.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown platform",
		})
	}

	if err := h.ps.Disconnect(c.Context(), GetUserID(c), platform); err != nil {
		return respondError(c, err, "unable to remove connected account")
	}
	return c.SendStatus(fiber.StatusOK)
}
