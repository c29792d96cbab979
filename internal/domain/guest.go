package domain

import "time"

// GuestStatus enumerates lifecycle states for guests.
type GuestStatus string

const (
	GuestStatusInvited   GuestStatus = "invited"
	GuestStatusPending   GuestStatus = "pending"
	GuestStatusCheckedIn GuestStatus = "checked_in"
)

// Guest is the aggregate for event attendees. Token is minted once at
// creation and never regenerated; CheckInAt is non-nil exactly when
// Status is checked_in.
type Guest struct {
	ID           string
	FullName     string
	Email        string
	Whatsapp     *string
	Phone        *string
	Category     *string
	Org          *string
	Role         *string
	Token        string
	Status       GuestStatus
	CheckInAt    *time.Time
	InviteSentAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContactPhone returns the preferred raw phone value: whatsapp first,
// then the legacy phone field.
func (g Guest) ContactPhone() string {
	if g.Whatsapp != nil && *g.Whatsapp != "" {
		return *g.Whatsapp
	}
	if g.Phone != nil && *g.Phone != "" {
		return *g.Phone
	}
	return ""
}

// CheckedIn reports whether the guest already completed check-in.
func (g Guest) CheckedIn() bool {
	return g.Status == GuestStatusCheckedIn
}
