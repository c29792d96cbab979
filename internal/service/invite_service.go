package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/guestlist-service/internal/config"
	"github.com/spec-kit/guestlist-service/internal/dispatch"
	"github.com/spec-kit/guestlist-service/internal/domain"
	"github.com/spec-kit/guestlist-service/internal/events"
	"github.com/spec-kit/guestlist-service/internal/notify"
	"github.com/spec-kit/guestlist-service/internal/repository"
	"github.com/spec-kit/guestlist-service/pkg/util"
)

// InviteService delivers check-in QR codes to guests by email and
// WhatsApp, individually or across the whole list.
type InviteService struct {
	guests     repository.GuestRepository
	email      notify.EmailSender
	whatsapp   notify.WhatsAppSender
	uploader   notify.Uploader
	qrCache    *notify.QRURLCache
	dispatcher events.Dispatcher
	event      config.EventConfig
	countryCC  string
	policy     dispatch.Policy
	logger     *zap.Logger
}

// InviteDependencies bundles collaborators for the invite service.
type InviteDependencies struct {
	GuestRepo  repository.GuestRepository
	Email      notify.EmailSender
	WhatsApp   notify.WhatsAppSender
	Uploader   notify.Uploader
	QRCache    *notify.QRURLCache
	Dispatcher events.Dispatcher
	Event      config.EventConfig
	WhatsAppCC string
	Logger     *zap.Logger
}

// WhatsappSendResult reports a single WhatsApp send.
type WhatsappSendResult struct {
	To       string `json:"to"`
	ImageURL string `json:"image_url"`
	DryRun   bool   `json:"dry_run"`
}

// NewInviteService constructs the service.
func NewInviteService(deps InviteDependencies) *InviteService {
	return &InviteService{
		guests:     deps.GuestRepo,
		email:      deps.Email,
		whatsapp:   deps.WhatsApp,
		uploader:   deps.Uploader,
		qrCache:    deps.QRCache,
		dispatcher: deps.Dispatcher,
		event:      deps.Event,
		countryCC:  deps.WhatsAppCC,
		policy:     dispatch.DefaultPolicy(notify.IsRetryable),
		logger:     deps.Logger,
	}
}

// SendInvite emails the guest their QR code and marks the invite sent.
func (s *InviteService) SendInvite(ctx context.Context, guestID string) error {
	guest, err := s.guests.GetByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("guest", map[string]any{"id": guestID})
		}
		return util.MapError(err)
	}
	return s.sendInviteFor(ctx, guest)
}

func (s *InviteService) sendInviteFor(ctx context.Context, guest *domain.Guest) error {
	if guest.Token == "" {
		return util.NewValidationError("guest has no token", map[string]any{"id": guest.ID})
	}

	qrPNG, err := notify.RenderQR(guest.Token)
	if err != nil {
		return util.NewInternalError(err)
	}

	if err := s.email.SendInvite(ctx, guest.Email, guest.FullName, guest.Token, qrPNG); err != nil {
		return upstream("failed to send invite email", err)
	}

	if err := s.guests.MarkInviteSent(ctx, guest.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("invite sent but bookkeeping update failed",
			zap.String("guest_id", guest.ID), zap.Error(err))
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventInviteSent, guest.ID, events.InviteSentPayload{
			Email: guest.Email,
		}))
	}
	return nil
}

// SendWhatsapp delivers the guest's QR image over WhatsApp. With dryRun
// the QR is rendered and uploaded but the provider call is skipped.
func (s *InviteService) SendWhatsapp(ctx context.Context, guestID string, dryRun bool) (*WhatsappSendResult, error) {
	guest, err := s.guests.GetByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("guest", map[string]any{"id": guestID})
		}
		return nil, util.MapError(err)
	}
	return s.sendWhatsappFor(ctx, guest, dryRun)
}

func (s *InviteService) sendWhatsappFor(ctx context.Context, guest *domain.Guest, dryRun bool) (*WhatsappSendResult, error) {
	if guest.Token == "" {
		return nil, util.NewValidationError("guest has no token", map[string]any{"id": guest.ID})
	}
	to := util.ToE164(guest.ContactPhone(), s.countryCC)
	if to == "" {
		return nil, util.NewValidationError("guest has no usable whatsapp number", map[string]any{"id": guest.ID})
	}

	imageURL, err := s.qrImageURL(ctx, guest)
	if err != nil {
		return nil, err
	}

	result := &WhatsappSendResult{To: to, ImageURL: imageURL, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	caption := fmt.Sprintf("Hello %s! This is your check-in QR code for %s.\n%s",
		guest.FullName, s.event.Name, s.checkinLink(guest.Token))
	if err := s.whatsapp.SendImage(ctx, to, imageURL, caption); err != nil {
		return nil, upstream("failed to send whatsapp message", err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventWhatsappSent, guest.ID, events.WhatsappSentPayload{
			To:       to,
			ImageURL: imageURL,
		}))
	}
	return result, nil
}

// qrImageURL returns the public URL of the guest's QR image, uploading
// it once and caching the URL afterwards.
func (s *InviteService) qrImageURL(ctx context.Context, guest *domain.Guest) (string, error) {
	if cached := s.qrCache.Get(ctx, guest.ID); cached != "" {
		return cached, nil
	}

	qrPNG, err := notify.RenderQR(guest.Token)
	if err != nil {
		return "", util.NewInternalError(err)
	}
	imageURL, err := s.uploader.Upload(ctx, qrPNG, fmt.Sprintf("qr-%s.png", guest.ID))
	if err != nil {
		return "", upstream("failed to upload qr image", err)
	}
	s.qrCache.Set(ctx, guest.ID, imageURL)
	return imageURL, nil
}

// SendAllInvites emails every guest with an address and token. The run
// is sequential and per-guest failures never stop the batch; re-running
// simply retries the guests that have not succeeded.
func (s *InviteService) SendAllInvites(ctx context.Context) (dispatch.Result, error) {
	guests, err := s.guests.List(ctx)
	if err != nil {
		return dispatch.Result{}, util.MapError(err)
	}

	return dispatch.Run(ctx, guests, dispatch.Options{
		Eligible: func(g domain.Guest) bool {
			return g.Email != "" && g.Token != ""
		},
		Send: func(ctx context.Context, g domain.Guest) error {
			guest := g
			return s.sendInviteFor(ctx, &guest)
		},
		Policy: s.policy,
	}), nil
}

// SendAllWhatsapp sends the QR image to every guest with a usable
// number and token.
func (s *InviteService) SendAllWhatsapp(ctx context.Context, dryRun bool) (dispatch.Result, error) {
	guests, err := s.guests.List(ctx)
	if err != nil {
		return dispatch.Result{}, util.MapError(err)
	}

	return dispatch.Run(ctx, guests, dispatch.Options{
		Eligible: func(g domain.Guest) bool {
			return g.Token != "" && util.ToE164(g.ContactPhone(), s.countryCC) != ""
		},
		Send: func(ctx context.Context, g domain.Guest) error {
			guest := g
			_, err := s.sendWhatsappFor(ctx, &guest, dryRun)
			return err
		},
		Policy: s.policy,
	}), nil
}

func (s *InviteService) checkinLink(token string) string {
	base := strings.TrimRight(s.event.AppBaseURL, "/")
	return base + "/checkin?token=" + url.QueryEscape(token)
}

// upstream wraps a provider failure, keeping raw diagnostics in Details
// for operator logs only.
func upstream(message string, err error) error {
	details := map[string]any{}
	var pe *notify.ProviderError
	if errors.As(err, &pe) {
		details["provider"] = pe.Provider
		details["provider_status"] = pe.StatusCode
		details["provider_body"] = pe.Body
	}
	return util.NewUpstreamError(message, details, err)
}
