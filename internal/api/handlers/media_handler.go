package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no file selected",
		})
	}

	f, err := fh.Open()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to read file",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to read file",
		})
	}

	asset, err := h.s.Upload(c.Context(), GetUserID(c), fh.Filename, data)
	if err != nil {
		return respondError(c, err, "unable to store media")
	}

	return c.Status(fiber.StatusCreated).JSON(transfer.MediaUploadResponse{
		MediaAssetID: asset.ID,
		Type:         asset.Type,
		StorageKey:   asset.StorageKey,
		URL:          asset.URL,
	})
}
