package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/guestlist-service/internal/checkin"
	"github.com/spec-kit/guestlist-service/internal/domain"
	"github.com/spec-kit/guestlist-service/internal/events"
	"github.com/spec-kit/guestlist-service/internal/repository"
	"github.com/spec-kit/guestlist-service/pkg/util"
)

// CheckinResult is the outcome of a successful check-in call.
type CheckinResult struct {
	Guest     *domain.Guest
	Already   bool
	CheckInAt time.Time
}

// CheckinService authenticates a scanned token and performs the
// idempotent transition into checked_in.
type CheckinService struct {
	guests     repository.GuestRepository
	codec      *checkin.TokenCodec
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// CheckinDependencies bundles collaborators for the check-in service.
type CheckinDependencies struct {
	GuestRepo  repository.GuestRepository
	Codec      *checkin.TokenCodec
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewCheckinService constructs the service.
func NewCheckinService(deps CheckinDependencies) *CheckinService {
	return &CheckinService{
		guests:     deps.GuestRepo,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Process looks the guest up by the presented token, re-verifies the
// token signature against the stored email, and transitions the guest
// into checked_in at most once. Repeated scans after the first success
// return Already=true with the original timestamp and issue no write.
//
// The signature is always re-verified even though the lookup already
// matched the stored token: a tampered token column would otherwise be
// honored as-is.
func (s *CheckinService) Process(ctx context.Context, token string) (*CheckinResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, util.NewValidationError("token missing", nil)
	}

	guest, err := s.guests.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("guest", map[string]any{"reason": "unknown token"})
		}
		return nil, util.MapError(err)
	}

	valid, claimedID := s.codec.Verify(token, guest.Email)
	if !valid {
		// claimedID is unverified input, logged for diagnostics only.
		s.logger.Warn("check-in token signature mismatch",
			zap.String("guest_id", guest.ID),
			zap.String("claimed_id", claimedID),
		)
		return nil, util.NewAuthenticationError("invalid token signature")
	}

	if guest.CheckedIn() {
		result := &CheckinResult{Guest: guest, Already: true}
		if guest.CheckInAt != nil {
			result.CheckInAt = *guest.CheckInAt
		}
		return result, nil
	}

	outcome, err := s.guests.CheckIn(ctx, guest.ID)
	if err != nil {
		return nil, util.MapError(err)
	}

	guest.Status = domain.GuestStatusCheckedIn
	guest.CheckInAt = &outcome.CheckInAt
	result := &CheckinResult{
		Guest:     guest,
		Already:   !outcome.Effective,
		CheckInAt: outcome.CheckInAt,
	}

	if outcome.Effective && s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventGuestCheckedIn, guest.ID, events.GuestCheckedInPayload{
			Status:    domain.GuestStatusCheckedIn,
			CheckInAt: outcome.CheckInAt,
		}))
	}
	return result, nil
}
