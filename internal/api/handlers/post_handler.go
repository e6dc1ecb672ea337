package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse body",
		})
	}

	post, err := h.s.CreatePost(c.Context(), GetUserID(c), &pc)
	if err != nil {
		return respondError(c, err, "unable to create post")
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.ListPosts(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "unable to list posts")
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.GetPost(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "unable to fetch post")
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	res, err := h.s.PublishPost(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "error scheduling post")
	}
	return c.Status(fiber.StatusAccepted).JSON(res)
}

func (h *PostHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.s.GetJob(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "unable to fetch job")
	}
	return c.Status(fiber.StatusOK).JSON(job)
}
