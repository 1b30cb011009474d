package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nightlif34/Ninja-Otc/internal/config"
	"github.com/nightlif34/Ninja-Otc/internal/service"
)

type Handler struct {
	cfg    *config.Config
	users  *service.UserService
	deals  *service.DealService
	admins *service.AdminService
}

func New(
	cfg *config.Config,
	users *service.UserService,
	deals *service.DealService,
	admins *service.AdminService,
) *Handler {
	return &Handler{
		cfg:    cfg,
		users:  users,
		deals:  deals,
		admins: admins,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
