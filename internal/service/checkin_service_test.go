package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/guestlist-service/internal/checkin"
	"github.com/spec-kit/guestlist-service/internal/domain"
	"github.com/spec-kit/guestlist-service/internal/events"
	"github.com/spec-kit/guestlist-service/internal/repository"
	"github.com/spec-kit/guestlist-service/pkg/util"
)

// fakeGuestRepo is an in-memory repository.GuestRepository.
type fakeGuestRepo struct {
	guests map[string]*domain.Guest
	// checkInCalls counts conditional update attempts.
	checkInCalls int
	// afterGetByToken, when set, runs after a token lookup returns;
	// tests use it to interleave a concurrent writer.
	afterGetByToken func()
}

func newFakeGuestRepo(guests ...*domain.Guest) *fakeGuestRepo {
	repo := &fakeGuestRepo{guests: make(map[string]*domain.Guest)}
	for _, g := range guests {
		copied := *g
		repo.guests[g.ID] = &copied
	}
	return repo
}

func (r *fakeGuestRepo) Create(ctx context.Context, guest *domain.Guest) error {
	now := time.Now().UTC()
	guest.CreatedAt = now
	guest.UpdatedAt = now
	copied := *guest
	r.guests[guest.ID] = &copied
	return nil
}

func (r *fakeGuestRepo) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	guest, ok := r.guests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *guest
	return &copied, nil
}

func (r *fakeGuestRepo) GetByToken(ctx context.Context, token string) (*domain.Guest, error) {
	for _, guest := range r.guests {
		if guest.Token == token {
			copied := *guest
			if r.afterGetByToken != nil {
				r.afterGetByToken()
			}
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeGuestRepo) GetByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	for _, guest := range r.guests {
		if guest.Email == email {
			copied := *guest
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeGuestRepo) List(ctx context.Context) ([]domain.Guest, error) {
	out := make([]domain.Guest, 0, len(r.guests))
	for _, guest := range r.guests {
		out = append(out, *guest)
	}
	return out, nil
}

func (r *fakeGuestRepo) Update(ctx context.Context, id string, update repository.GuestUpdate) (*domain.Guest, error) {
	guest, ok := r.guests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if update.FullName != nil {
		guest.FullName = *update.FullName
	}
	if update.Whatsapp != nil {
		guest.Whatsapp = update.Whatsapp
	}
	if update.Phone != nil {
		guest.Phone = update.Phone
	}
	if update.Category != nil {
		guest.Category = update.Category
	}
	if update.Org != nil {
		guest.Org = update.Org
	}
	if update.Role != nil {
		guest.Role = update.Role
	}
	guest.UpdatedAt = time.Now().UTC()
	copied := *guest
	return &copied, nil
}

func (r *fakeGuestRepo) MarkInviteSent(ctx context.Context, id string, at time.Time) error {
	guest, ok := r.guests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	guest.InviteSentAt = &at
	if guest.Status != domain.GuestStatusCheckedIn {
		guest.Status = domain.GuestStatusInvited
	}
	return nil
}

func (r *fakeGuestRepo) CheckIn(ctx context.Context, id string) (*repository.CheckInResult, error) {
	r.checkInCalls++
	guest, ok := r.guests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if guest.Status == domain.GuestStatusCheckedIn {
		result := &repository.CheckInResult{Effective: false}
		if guest.CheckInAt != nil {
			result.CheckInAt = *guest.CheckInAt
		}
		return result, nil
	}
	now := time.Now().UTC()
	guest.Status = domain.GuestStatusCheckedIn
	guest.CheckInAt = &now
	guest.UpdatedAt = now
	return &repository.CheckInResult{Effective: true, CheckInAt: now}, nil
}

func (r *fakeGuestRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.guests[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.guests, id)
	return nil
}

func newCheckinFixture(t *testing.T) (*CheckinService, *fakeGuestRepo, *domain.Guest, string) {
	t.Helper()
	codec := checkin.NewTokenCodec("dev-secret")
	guest := &domain.Guest{
		ID:       "g1",
		FullName: "Ana Silva",
		Email:    "a@b.com",
		Status:   domain.GuestStatusInvited,
	}
	guest.Token = codec.Issue(guest.ID, guest.Email)
	repo := newFakeGuestRepo(guest)

	svc := NewCheckinService(CheckinDependencies{
		GuestRepo:  repo,
		Codec:      codec,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
	})
	return svc, repo, guest, guest.Token
}

func TestProcessChecksInThenReportsAlready(t *testing.T) {
	svc, _, _, token := newCheckinFixture(t)

	first, err := svc.Process(context.Background(), token)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if first.Already {
		t.Fatal("first scan reported already checked in")
	}
	if first.CheckInAt.IsZero() {
		t.Fatal("first scan did not set check-in time")
	}

	second, err := svc.Process(context.Background(), token)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !second.Already {
		t.Fatal("second scan did not report already checked in")
	}
	if !second.CheckInAt.Equal(first.CheckInAt) {
		t.Fatalf("check-in time changed on rescan: %v vs %v", second.CheckInAt, first.CheckInAt)
	}
}

func TestProcessSecondScanIssuesNoWrite(t *testing.T) {
	svc, repo, _, token := newCheckinFixture(t)

	if _, err := svc.Process(context.Background(), token); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if _, err := svc.Process(context.Background(), token); err != nil {
		t.Fatalf("second scan: %v", err)
	}

	// The second scan short-circuits on the fetched status and never
	// reaches the conditional update.
	if repo.checkInCalls != 1 {
		t.Fatalf("conditional update attempted %d times, want 1", repo.checkInCalls)
	}
}

func TestProcessMissingToken(t *testing.T) {
	svc, _, _, _ := newCheckinFixture(t)

	_, err := svc.Process(context.Background(), "   ")
	assertDomainCode(t, err, "VALIDATION_FAILED")
}

func TestProcessUnknownToken(t *testing.T) {
	svc, _, _, _ := newCheckinFixture(t)

	_, err := svc.Process(context.Background(), "nonexistent-token")
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestProcessRejectsTamperedStoreEntry(t *testing.T) {
	// A token that matches the stored column but whose signature does
	// not bind to the stored email must be rejected.
	codec := checkin.NewTokenCodec("dev-secret")
	guest := &domain.Guest{
		ID:     "g1",
		Email:  "a@b.com",
		Status: domain.GuestStatusInvited,
		Token:  codec.Issue("g1", "attacker@evil.com"),
	}
	repo := newFakeGuestRepo(guest)
	svc := NewCheckinService(CheckinDependencies{
		GuestRepo: repo,
		Codec:     codec,
		Logger:    zap.NewNop(),
	})

	_, err := svc.Process(context.Background(), guest.Token)
	assertDomainCode(t, err, "AUTHENTICATION_FAILED")
}

func TestProcessLostRaceReportsAlready(t *testing.T) {
	// A concurrent scan lands between the fetch and the conditional
	// update; the guarded update performs no write and the loser must
	// report already-checked-in with the winner's timestamp.
	svc, repo, guest, token := newCheckinFixture(t)

	winnerAt := time.Now().UTC().Add(-time.Minute)
	repo.afterGetByToken = func() {
		stored := repo.guests[guest.ID]
		stored.Status = domain.GuestStatusCheckedIn
		stored.CheckInAt = &winnerAt
	}

	result, err := svc.Process(context.Background(), token)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Already {
		t.Fatal("losing scan did not report already checked in")
	}
	if !result.CheckInAt.Equal(winnerAt) {
		t.Fatalf("losing scan returned %v, want the winner's timestamp %v", result.CheckInAt, winnerAt)
	}
	if repo.checkInCalls != 1 {
		t.Fatalf("conditional update attempted %d times, want 1", repo.checkInCalls)
	}
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *util.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s", domainErr.Code, code)
	}
}
