package events

import (
	"time"

	"github.com/spec-kit/guestlist-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventGuestCreated   EventType = "guest_created"
	EventGuestCheckedIn EventType = "guest_checked_in"
	EventInviteSent     EventType = "invite_sent"
	EventWhatsappSent   EventType = "whatsapp_sent"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuestID   string      `json:"guest_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// GuestCreatedPayload payload.
type GuestCreatedPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Imported bool   `json:"imported"`
}

// GuestCheckedInPayload payload.
type GuestCheckedInPayload struct {
	Status    domain.GuestStatus `json:"status"`
	CheckInAt time.Time          `json:"check_in_at"`
}

// InviteSentPayload payload.
type InviteSentPayload struct {
	Email string `json:"email"`
}

// WhatsappSentPayload payload.
type WhatsappSentPayload struct {
	To       string `json:"to"`
	ImageURL string `json:"image_url"`
}
