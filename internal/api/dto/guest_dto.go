package dto

import (
	"time"

	"github.com/spec-kit/guestlist-service/internal/domain"
)

// GuestCreateRequest is the POST /guests payload.
type GuestCreateRequest struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Whatsapp *string `json:"whatsapp,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Category *string `json:"category,omitempty"`
	Org      *string `json:"org,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// GuestUpdateRequest is the PATCH /guests/:id payload. Absent fields
// are left untouched.
type GuestUpdateRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Whatsapp *string `json:"whatsapp,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Category *string `json:"category,omitempty"`
	Org      *string `json:"org,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// ImportRowRequest is one row of the bulk import payload.
type ImportRowRequest struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Whatsapp *string `json:"whatsapp,omitempty"`
	Category *string `json:"category,omitempty"`
}

// BulkImportRequest is the POST /guests/bulk payload.
type BulkImportRequest struct {
	Rows       []ImportRowRequest `json:"rows"`
	SendEmails bool               `json:"sendEmails"`
}

// CheckinRequest is the POST /checkin payload. The token may instead
// arrive as a query parameter extracted from a scanned URL.
type CheckinRequest struct {
	Token string `json:"token"`
}

// GuestResponse mirrors a guest document.
type GuestResponse struct {
	ID           string     `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Whatsapp     *string    `json:"whatsapp,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Org          *string    `json:"org,omitempty"`
	Role         *string    `json:"role,omitempty"`
	Token        string     `json:"token"`
	Status       string     `json:"status"`
	CheckInAt    *time.Time `json:"checkInAt"`
	InviteSentAt *time.Time `json:"inviteSentAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewGuestResponse maps a domain guest.
func NewGuestResponse(guest *domain.Guest) GuestResponse {
	return GuestResponse{
		ID:           guest.ID,
		FullName:     guest.FullName,
		Email:        guest.Email,
		Whatsapp:     guest.Whatsapp,
		Phone:        guest.Phone,
		Category:     guest.Category,
		Org:          guest.Org,
		Role:         guest.Role,
		Token:        guest.Token,
		Status:       string(guest.Status),
		CheckInAt:    guest.CheckInAt,
		InviteSentAt: guest.InviteSentAt,
		CreatedAt:    guest.CreatedAt,
		UpdatedAt:    guest.UpdatedAt,
	}
}

// NewGuestListResponse maps a slice of guests.
func NewGuestListResponse(guests []domain.Guest) []GuestResponse {
	out := make([]GuestResponse, 0, len(guests))
	for i := range guests {
		out = append(out, NewGuestResponse(&guests[i]))
	}
	return out
}
