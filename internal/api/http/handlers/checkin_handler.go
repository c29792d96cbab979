package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guestlist-service/internal/api/dto"
	"github.com/spec-kit/guestlist-service/internal/service"
)

// CheckinHandler exposes the scan endpoint.
type CheckinHandler struct {
	checkin *service.CheckinService
}

// NewCheckinHandler constructs handler.
func NewCheckinHandler(checkinService *service.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkin: checkinService}
}

// Process handles POST /checkin. The token comes from the JSON body or,
// for scanners that hand over a whole URL, from the token query
// parameter.
func (h *CheckinHandler) Process(c *fiber.Ctx) error {
	var req dto.CheckinRequest
	_ = c.BodyParser(&req)
	token := req.Token
	if token == "" {
		token = c.Query("token")
	}

	result, err := h.checkin.Process(c.UserContext(), token)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"ok":        true,
		"already":   result.Already,
		"id":        result.Guest.ID,
		"checkInAt": result.CheckInAt,
		"guest":     dto.NewGuestResponse(result.Guest),
	})
}
