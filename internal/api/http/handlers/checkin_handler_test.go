package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/guestlist-service/internal/api/http"
	"github.com/spec-kit/guestlist-service/internal/api/http/handlers"
	"github.com/spec-kit/guestlist-service/internal/checkin"
	"github.com/spec-kit/guestlist-service/internal/domain"
	"github.com/spec-kit/guestlist-service/internal/observability"
	"github.com/spec-kit/guestlist-service/internal/repository"
	"github.com/spec-kit/guestlist-service/internal/service"
)

// memoryGuestRepo is a map-backed repository for handler tests.
type memoryGuestRepo struct {
	guests map[string]*domain.Guest
}

func newMemoryGuestRepo(guests ...*domain.Guest) *memoryGuestRepo {
	r := &memoryGuestRepo{guests: make(map[string]*domain.Guest)}
	for _, g := range guests {
		copied := *g
		r.guests[g.ID] = &copied
	}
	return r
}

func (r *memoryGuestRepo) Create(ctx context.Context, guest *domain.Guest) error {
	copied := *guest
	r.guests[guest.ID] = &copied
	return nil
}

func (r *memoryGuestRepo) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	guest, ok := r.guests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *guest
	return &copied, nil
}

func (r *memoryGuestRepo) GetByToken(ctx context.Context, token string) (*domain.Guest, error) {
	for _, guest := range r.guests {
		if guest.Token == token {
			copied := *guest
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryGuestRepo) GetByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	for _, guest := range r.guests {
		if guest.Email == email {
			copied := *guest
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryGuestRepo) List(ctx context.Context) ([]domain.Guest, error) {
	out := make([]domain.Guest, 0, len(r.guests))
	for _, guest := range r.guests {
		out = append(out, *guest)
	}
	return out, nil
}

func (r *memoryGuestRepo) Update(ctx context.Context, id string, update repository.GuestUpdate) (*domain.Guest, error) {
	guest, ok := r.guests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if update.FullName != nil {
		guest.FullName = *update.FullName
	}
	copied := *guest
	return &copied, nil
}

func (r *memoryGuestRepo) MarkInviteSent(ctx context.Context, id string, at time.Time) error {
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

func (r *memoryGuestRepo) CheckIn(ctx context.Context, id string) (*repository.CheckInResult, error) {
	guest, ok := r.guests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if guest.Status == domain.GuestStatusCheckedIn {
		at := time.Time{}
		if guest.CheckInAt != nil {
			at = *guest.CheckInAt
		}
		return &repository.CheckInResult{Effective: false, CheckInAt: at}, nil
	}
	now := time.Now().UTC()
	guest.Status = domain.GuestStatusCheckedIn
	guest.CheckInAt = &now
	return &repository.CheckInResult{Effective: true, CheckInAt: now}, nil
}

func (r *memoryGuestRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.guests[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.guests, id)
	return nil
}

func newCheckinApp(t *testing.T, guests ...*domain.Guest) (*fiber.App, *memoryGuestRepo) {
	t.Helper()
	repo := newMemoryGuestRepo(guests...)
	svc := service.NewCheckinService(service.CheckinDependencies{
		GuestRepo: repo,
		Codec:     checkin.NewTokenCodec("handler-test-secret"),
		Logger:    zap.NewNop(),
	})

	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	app.Post("/checkin", handlers.NewCheckinHandler(svc).Process)
	return app, repo
}

func postCheckin(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, parsed
}

func errorCode(t *testing.T, parsed map[string]any) string {
	t.Helper()
	envelope, ok := parsed["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error envelope in %v", parsed)
	}
	code, _ := envelope["code"].(string)
	return code
}

func TestCheckinEndpointHappyPath(t *testing.T) {
	codec := checkin.NewTokenCodec("handler-test-secret")
	guest := &domain.Guest{
		ID:       "g1",
		FullName: "Ana Silva",
		Email:    "ana@example.com",
		Status:   domain.GuestStatusInvited,
	}
	guest.Token = codec.Issue(guest.ID, guest.Email)
	app, repo := newCheckinApp(t, guest)

	resp, parsed := postCheckin(t, app, "/checkin", map[string]string{"token": guest.Token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, parsed)
	}
	if parsed["ok"] != true || parsed["already"] != false {
		t.Fatalf("body = %v", parsed)
	}
	if parsed["id"] != "g1" {
		t.Fatalf("id = %v", parsed["id"])
	}
	stored, _ := repo.GetByID(context.Background(), "g1")
	if stored.Status != domain.GuestStatusCheckedIn || stored.CheckInAt == nil {
		t.Fatalf("guest not persisted as checked in: %+v", stored)
	}
}

func TestCheckinEndpointSecondScanIsIdempotent(t *testing.T) {
	codec := checkin.NewTokenCodec("handler-test-secret")
	guest := &domain.Guest{ID: "g1", FullName: "Ana", Email: "ana@example.com"}
	guest.Token = codec.Issue(guest.ID, guest.Email)
	app, _ := newCheckinApp(t, guest)

	_, first := postCheckin(t, app, "/checkin", map[string]string{"token": guest.Token})
	resp, second := postCheckin(t, app, "/checkin", map[string]string{"token": guest.Token})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second scan status = %d", resp.StatusCode)
	}
	if second["already"] != true {
		t.Fatalf("second scan body = %v", second)
	}
	if first["checkInAt"] != second["checkInAt"] {
		t.Fatalf("timestamps differ: %v vs %v", first["checkInAt"], second["checkInAt"])
	}
}

func TestCheckinEndpointAcceptsQueryToken(t *testing.T) {
	codec := checkin.NewTokenCodec("handler-test-secret")
	guest := &domain.Guest{ID: "g1", FullName: "Ana", Email: "ana@example.com"}
	guest.Token = codec.Issue(guest.ID, guest.Email)
	app, _ := newCheckinApp(t, guest)

	resp, parsed := postCheckin(t, app, "/checkin?token="+guest.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, parsed)
	}
	if parsed["ok"] != true {
		t.Fatalf("body = %v", parsed)
	}
}

func TestCheckinEndpointMissingToken(t *testing.T) {
	app, _ := newCheckinApp(t)

	resp, parsed := postCheckin(t, app, "/checkin", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if code := errorCode(t, parsed); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %q", code)
	}
}

func TestCheckinEndpointUnknownToken(t *testing.T) {
	app, _ := newCheckinApp(t)

	resp, parsed := postCheckin(t, app, "/checkin", map[string]string{"token": "g9.deadbeef"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if code := errorCode(t, parsed); code != "NOT_FOUND" {
		t.Fatalf("code = %q", code)
	}
}

func TestMetricsEndpointReportsCounters(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := service.NewCheckinService(service.CheckinDependencies{
		GuestRepo: newMemoryGuestRepo(),
		Codec:     checkin.NewTokenCodec("handler-test-secret"),
		Logger:    zap.NewNop(),
	})

	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	app.Post("/checkin", handlers.NewCheckinHandler(svc).Process)
	app.Get("/metrics", handlers.NewHealthHandler("guestlist", "dev", nil, nil, metrics).Metrics)

	_, _ = postCheckin(t, app, "/checkin", map[string]string{"token": "g9.deadbeef"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var parsed struct {
		Requests map[string]int64 `json:"requests"`
		Errors   map[string]int64 `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(parsed.Requests) == 0 {
		t.Fatal("no request counters recorded")
	}
	if parsed.Errors["/checkin|POST|NOT_FOUND"] != 1 {
		t.Fatalf("error counters = %v", parsed.Errors)
	}
}

func TestCheckinEndpointRejectsForgedSignature(t *testing.T) {
	forger := checkin.NewTokenCodec("other-secret")
	guest := &domain.Guest{ID: "g1", FullName: "Ana", Email: "ana@example.com"}
	guest.Token = forger.Issue(guest.ID, guest.Email)
	app, repo := newCheckinApp(t, guest)

	resp, parsed := postCheckin(t, app, "/checkin", map[string]string{"token": guest.Token})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, parsed)
	}
	if code := errorCode(t, parsed); code != "AUTHENTICATION_FAILED" {
		t.Fatalf("code = %q", code)
	}
	stored, _ := repo.GetByID(context.Background(), "g1")
	if stored.Status == domain.GuestStatusCheckedIn {
		t.Fatal("forged token performed a check-in")
	}
}
