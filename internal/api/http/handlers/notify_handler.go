package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guestlist-service/internal/service"
)

// NotifyHandler exposes invite and WhatsApp delivery endpoints.
type NotifyHandler struct {
	invites *service.InviteService
}

// NewNotifyHandler constructs handler.
func NewNotifyHandler(inviteService *service.InviteService) *NotifyHandler {
	return &NotifyHandler{invites: inviteService}
}

// SendInvite handles POST /guests/:id/invite.
func (h *NotifyHandler) SendInvite(c *fiber.Ctx) error {
	if err := h.invites.SendInvite(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// SendWhatsapp handles POST /guests/:id/whatsapp.
func (h *NotifyHandler) SendWhatsapp(c *fiber.Ctx) error {
	dryRun := c.Query("dryRun") == "1"

	result, err := h.invites.SendWhatsapp(c.UserContext(), c.Params("id"), dryRun)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ok":       true,
		"imageUrl": result.ImageURL,
		"dryRun":   result.DryRun,
	})
}

// SendAllInvites handles POST /guests/send-all.
func (h *NotifyHandler) SendAllInvites(c *fiber.Ctx) error {
	result, err := h.invites.SendAllInvites(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"ok":        true,
		"sent":      result.Sent,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"total":     result.Total,
		"lastError": result.LastFailure(),
	})
}

// SendAllWhatsapp handles POST /guests/send-all-whatsapp. With debug=1
// the per-guest failure list is included; otherwise only the most
// recent failure is surfaced.
func (h *NotifyHandler) SendAllWhatsapp(c *fiber.Ctx) error {
	dryRun := c.Query("dryRun") == "1"
	debug := c.Query("debug") == "1"

	result, err := h.invites.SendAllWhatsapp(c.UserContext(), dryRun)
	if err != nil {
		return err
	}

	response := fiber.Map{
		"ok":      true,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"skipped": result.Skipped,
		"total":   result.Total,
		"dryRun":  dryRun,
	}
	if debug {
		response["results"] = result.Failures
	} else {
		response["lastError"] = result.LastFailure()
	}
	return c.JSON(response)
}
