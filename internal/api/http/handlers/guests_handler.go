package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guestlist-service/internal/api/dto"
	"github.com/spec-kit/guestlist-service/internal/service"
	"github.com/spec-kit/guestlist-service/pkg/util"
)

// GuestsHandler exposes guest CRUD and import endpoints.
type GuestsHandler struct {
	guests *service.GuestService
}

// NewGuestsHandler constructs handler.
func NewGuestsHandler(guestService *service.GuestService) *GuestsHandler {
	return &GuestsHandler{guests: guestService}
}

// List handles GET /guests.
func (h *GuestsHandler) List(c *fiber.Ctx) error {
	guests, err := h.guests.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"guests": dto.NewGuestListResponse(guests)})
}

// Get handles GET /guests/:id.
func (h *GuestsHandler) Get(c *fiber.Ctx) error {
	guest, err := h.guests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewGuestResponse(guest))
}

// Create handles POST /guests.
func (h *GuestsHandler) Create(c *fiber.Ctx) error {
	var req dto.GuestCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	guest, err := h.guests.Create(c.UserContext(), service.GuestCreateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Whatsapp: req.Whatsapp,
		Phone:    req.Phone,
		Category: req.Category,
		Org:      req.Org,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewGuestResponse(guest))
}

// Update handles PATCH /guests/:id.
func (h *GuestsHandler) Update(c *fiber.Ctx) error {
	var req dto.GuestUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	guest, err := h.guests.Update(c.UserContext(), c.Params("id"), service.GuestUpdateInput{
		FullName: req.FullName,
		Whatsapp: req.Whatsapp,
		Phone:    req.Phone,
		Category: req.Category,
		Org:      req.Org,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewGuestResponse(guest))
}

// Delete handles DELETE /guests/:id.
func (h *GuestsHandler) Delete(c *fiber.Ctx) error {
	if err := h.guests.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// BulkImport handles POST /guests/bulk.
func (h *GuestsHandler) BulkImport(c *fiber.Ctx) error {
	var req dto.BulkImportRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	rows := make([]service.ImportRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, service.ImportRow{
			FullName: row.FullName,
			Email:    row.Email,
			Whatsapp: row.Whatsapp,
			Category: row.Category,
		})
	}

	summary, err := h.guests.BulkImport(c.UserContext(), rows, req.SendEmails)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true, "summary": summary})
}
