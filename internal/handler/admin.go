package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nightlif34/Ninja-Otc/internal/middleware"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
	"github.com/nightlif34/Ninja-Otc/internal/service"
)

// ListDeals returns every deal, newest first. The caller truncates for
// display.
func (h *Handler) ListDeals(c *fiber.Ctx) error {
	deals, err := h.admins.ListDeals(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"deals": deals})
}

// GetDeal returns a single deal record by its public token.
func (h *Handler) GetDeal(c *fiber.Ctx) error {
	deal, err := h.deals.GetDeal(c.Context(), c.Params("deal_id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(deal)
}

// ConfirmPayment marks a deal's payment as received by the intermediary.
func (h *Handler) ConfirmPayment(c *fiber.Ctx) error {
	deal, err := h.deals.ConfirmPayment(c.Context(), middleware.GetUserID(c), c.Params("deal_id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(deal)
}

type grantAdminRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *Handler) GrantAdmin(c *fiber.Ctx) error {
	var req grantAdminRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	if err := h.admins.GrantAdmin(c.Context(), middleware.GetUserID(c), req.UserID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) RevokeAdmin(c *fiber.Ctx) error {
	targetID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	removed, err := h.admins.RevokeAdmin(c.Context(), middleware.GetUserID(c), targetID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

type setReputationRequest struct {
	Count int `json:"count"`
}

func (h *Handler) SetReputation(c *fiber.Ctx) error {
	targetID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	var req setReputationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if err := h.admins.SetReputation(c.Context(), middleware.GetUserID(c), targetID, req.Count); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotPermitted), errors.Is(err, service.ErrTargetIsOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrDealNotFound), errors.Is(err, repository.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrAlreadyAdmin),
		errors.Is(err, repository.ErrBuyerTaken),
		errors.Is(err, service.ErrDealCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNegativeCount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
