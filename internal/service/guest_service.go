package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/guestlist-service/internal/checkin"
	"github.com/spec-kit/guestlist-service/internal/domain"
	"github.com/spec-kit/guestlist-service/internal/events"
	"github.com/spec-kit/guestlist-service/internal/repository"
	"github.com/spec-kit/guestlist-service/pkg/util"
)

// GuestService coordinates guest lifecycle workflows.
type GuestService struct {
	guests     repository.GuestRepository
	codec      *checkin.TokenCodec
	inviter    *InviteService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// GuestDependencies bundles collaborators for the guest service.
type GuestDependencies struct {
	GuestRepo  repository.GuestRepository
	Codec      *checkin.TokenCodec
	Inviter    *InviteService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// GuestCreateInput describes guest creation payload.
type GuestCreateInput struct {
	FullName string
	Email    string
	Whatsapp *string
	Phone    *string
	Category *string
	Org      *string
	Role     *string
}

// GuestUpdateInput describes the administrative fields an update may
// change. Token, email and status never move through this path.
type GuestUpdateInput struct {
	FullName *string
	Whatsapp *string
	Phone    *string
	Category *string
	Org      *string
	Role     *string
}

// ImportRow is one row of a bulk import (spreadsheet parsing happens
// upstream; callers submit parsed rows).
type ImportRow struct {
	FullName string
	Email    string
	Whatsapp *string
	Category *string
}

// ImportSummary aggregates a bulk import run.
type ImportSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// NewGuestService constructs the service.
func NewGuestService(deps GuestDependencies) *GuestService {
	return &GuestService{
		guests:     deps.GuestRepo,
		codec:      deps.Codec,
		inviter:    deps.Inviter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create registers a guest, mints their check-in token and sends the
// invitation email. The token is derived once from (id, email) and
// never regenerated; regenerating would invalidate QR codes already
// distributed.
func (s *GuestService) Create(ctx context.Context, input GuestCreateInput) (*domain.Guest, error) {
	if strings.TrimSpace(input.FullName) == "" {
		return nil, util.NewValidationError("fullName required", nil)
	}
	email := util.NormalizeEmail(input.Email)
	if !util.IsValidEmail(email) {
		return nil, util.NewValidationError("invalid email", map[string]any{"email": input.Email})
	}

	if existing, err := s.guests.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, util.NewConflict("a guest with this email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}

	now := time.Now().UTC()
	guest := &domain.Guest{
		ID:           uuid.NewString(),
		FullName:     strings.TrimSpace(input.FullName),
		Email:        email,
		Whatsapp:     input.Whatsapp,
		Phone:        input.Phone,
		Category:     input.Category,
		Org:          input.Org,
		Role:         input.Role,
		Status:       domain.GuestStatusInvited,
		InviteSentAt: &now,
	}
	guest.Token = s.codec.Issue(guest.ID, guest.Email)

	if err := s.guests.Create(ctx, guest); err != nil {
		return nil, util.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventGuestCreated, guest.ID, events.GuestCreatedPayload{
			Email:    guest.Email,
			FullName: guest.FullName,
		}))
	}

	// Invite failure does not undo creation; the invite can be resent.
	if s.inviter != nil {
		if err := s.inviter.sendInviteFor(ctx, guest); err != nil {
			s.logger.Warn("invite email failed after guest creation",
				zap.String("guest_id", guest.ID), zap.Error(err))
		}
	}

	return guest, nil
}

// Get fetches a guest by id.
func (s *GuestService) Get(ctx context.Context, id string) (*domain.Guest, error) {
	guest, err := s.guests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("guest", map[string]any{"id": id})
		}
		return nil, util.MapError(err)
	}
	return guest, nil
}

// List returns all guests, newest first.
func (s *GuestService) List(ctx context.Context) ([]domain.Guest, error) {
	guests, err := s.guests.List(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return guests, nil
}

// Update changes a guest's descriptive fields.
func (s *GuestService) Update(ctx context.Context, id string, input GuestUpdateInput) (*domain.Guest, error) {
	guest, err := s.guests.Update(ctx, id, repository.GuestUpdate{
		FullName: input.FullName,
		Whatsapp: input.Whatsapp,
		Phone:    input.Phone,
		Category: input.Category,
		Org:      input.Org,
		Role:     input.Role,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("guest", map[string]any{"id": id})
		}
		return nil, util.MapError(err)
	}
	return guest, nil
}

// Delete removes a guest. Guests who already checked in stay on record.
func (s *GuestService) Delete(ctx context.Context, id string) error {
	guest, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if guest.CheckedIn() {
		return util.NewConflict("guest already checked in; deletion not allowed", map[string]any{"id": id})
	}
	if err := s.guests.Delete(ctx, id); err != nil {
		return util.MapError(err)
	}
	return nil
}

// BulkImport upserts guests by email. Existing guests keep their token;
// new guests get a freshly minted one. Row failures are isolated and
// reported in the summary.
func (s *GuestService) BulkImport(ctx context.Context, rows []ImportRow, sendEmails bool) (*ImportSummary, error) {
	if len(rows) == 0 {
		return nil, util.NewValidationError("no rows to import", nil)
	}

	summary := &ImportSummary{}
	for _, row := range rows {
		if err := s.importRow(ctx, row, sendEmails, summary); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err.Error())
		}
	}
	return summary, nil
}

func (s *GuestService) importRow(ctx context.Context, row ImportRow, sendEmails bool, summary *ImportSummary) error {
	if strings.TrimSpace(row.FullName) == "" || strings.TrimSpace(row.Email) == "" {
		return util.NewValidationError("row missing fullName or email", map[string]any{"email": row.Email})
	}
	email := util.NormalizeEmail(row.Email)

	existing, err := s.guests.GetByEmail(ctx, email)
	switch {
	case err == nil:
		fullName := strings.TrimSpace(row.FullName)
		updated, err := s.guests.Update(ctx, existing.ID, repository.GuestUpdate{
			FullName: &fullName,
			Whatsapp: row.Whatsapp,
			Category: row.Category,
		})
		if err != nil {
			return util.MapError(err)
		}
		summary.Updated++
		if sendEmails && s.inviter != nil {
			if err := s.inviter.sendInviteFor(ctx, updated); err != nil {
				s.logger.Warn("invite email failed during import",
					zap.String("guest_id", updated.ID), zap.Error(err))
			}
		}
		return nil

	case errors.Is(err, pgx.ErrNoRows):
		guest := &domain.Guest{
			ID:       uuid.NewString(),
			FullName: strings.TrimSpace(row.FullName),
			Email:    email,
			Whatsapp: row.Whatsapp,
			Category: row.Category,
			Status:   domain.GuestStatusInvited,
		}
		guest.Token = s.codec.Issue(guest.ID, guest.Email)
		if sendEmails {
			now := time.Now().UTC()
			guest.InviteSentAt = &now
		}
		if err := s.guests.Create(ctx, guest); err != nil {
			return util.MapError(err)
		}
		summary.Created++
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventGuestCreated, guest.ID, events.GuestCreatedPayload{
				Email:    guest.Email,
				FullName: guest.FullName,
				Imported: true,
			}))
		}
		if sendEmails && s.inviter != nil {
			if err := s.inviter.sendInviteFor(ctx, guest); err != nil {
				s.logger.Warn("invite email failed during import",
					zap.String("guest_id", guest.ID), zap.Error(err))
			}
		}
		return nil

	default:
		return util.MapError(err)
	}
}
