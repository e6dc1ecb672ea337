package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	profile, err := h.users.GetProfile(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "unable to load profile")
	}
	return c.JSON(profile)
}
