package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guestlist-service/internal/domain"
)

// GuestUpdate captures the administrative fields an update may touch.
// Token, email and status are deliberately absent: the token is
// immutable after minting and status only moves through check-in.
type GuestUpdate struct {
	FullName *string
	Whatsapp *string
	Phone    *string
	Category *string
	Org      *string
	Role     *string
}

// CheckInResult reports the outcome of the conditional check-in update.
type CheckInResult struct {
	// Effective is true when this call performed the transition.
	Effective bool
	// CheckInAt is the stored timestamp, whether set now or earlier.
	CheckInAt time.Time
}

// GuestRepository encapsulates guest persistence.
type GuestRepository interface {
	Create(ctx context.Context, guest *domain.Guest) error
	GetByID(ctx context.Context, id string) (*domain.Guest, error)
	GetByToken(ctx context.Context, token string) (*domain.Guest, error)
	GetByEmail(ctx context.Context, email string) (*domain.Guest, error)
	List(ctx context.Context) ([]domain.Guest, error)
	Update(ctx context.Context, id string, update GuestUpdate) (*domain.Guest, error)
	MarkInviteSent(ctx context.Context, id string, at time.Time) error
	CheckIn(ctx context.Context, id string) (*CheckInResult, error)
	Delete(ctx context.Context, id string) error
}

type guestRepository struct {
	pool *pgxpool.Pool
}

// NewGuestRepository instantiates repository.
func NewGuestRepository(pool *pgxpool.Pool) GuestRepository {
	return &guestRepository{pool: pool}
}

const guestColumns = `id, full_name, email, whatsapp, phone, category, org, role,
       token, status, check_in_at, invite_sent_at, created_at, updated_at`

func (r *guestRepository) Create(ctx context.Context, guest *domain.Guest) error {
	const query = `
        INSERT INTO guests (id, full_name, email, whatsapp, phone, category, org, role, token, status, invite_sent_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		guest.ID,
		guest.FullName,
		guest.Email,
		guest.Whatsapp,
		guest.Phone,
		guest.Category,
		guest.Org,
		guest.Role,
		guest.Token,
		guest.Status,
		guest.InviteSentAt,
	).Scan(&guest.CreatedAt, &guest.UpdatedAt)
}

func (r *guestRepository) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	const query = `SELECT ` + guestColumns + ` FROM guests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *guestRepository) GetByToken(ctx context.Context, token string) (*domain.Guest, error) {
	const query = `SELECT ` + guestColumns + ` FROM guests WHERE token=$1`
	return r.fetchSingle(ctx, query, token)
}

func (r *guestRepository) GetByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	const query = `SELECT ` + guestColumns + ` FROM guests WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *guestRepository) List(ctx context.Context) ([]domain.Guest, error) {
	const query = `SELECT ` + guestColumns + ` FROM guests ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []domain.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *guest)
	}
	return guests, rows.Err()
}

func (r *guestRepository) Update(ctx context.Context, id string, update GuestUpdate) (*domain.Guest, error) {
	const query = `
        UPDATE guests SET
            full_name = COALESCE($1, full_name),
            whatsapp  = COALESCE($2, whatsapp),
            phone     = COALESCE($3, phone),
            category  = COALESCE($4, category),
            org       = COALESCE($5, org),
            role      = COALESCE($6, role),
            updated_at = NOW()
        WHERE id=$7
        RETURNING ` + guestColumns
	row := r.pool.QueryRow(ctx, query,
		update.FullName,
		update.Whatsapp,
		update.Phone,
		update.Category,
		update.Org,
		update.Role,
		id,
	)
	return scanGuest(row)
}

// MarkInviteSent records the invite timestamp. The status moves to
// invited only for guests that have not checked in yet: a resend after
// the event starts must never reopen the checked_in transition.
func (r *guestRepository) MarkInviteSent(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE guests SET invite_sent_at=$1,
               status = CASE WHEN status = $2 THEN status ELSE $3 END,
               updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, at, domain.GuestStatusCheckedIn, domain.GuestStatusInvited, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CheckIn performs the conditional status transition. The status guard
// makes the transition effective at most once: of two racing scans only
// the first updates the row, the second reads the stored timestamp back.
func (r *guestRepository) CheckIn(ctx context.Context, id string) (*CheckInResult, error) {
	const update = `
        UPDATE guests SET status=$1, check_in_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND status <> $1
        RETURNING check_in_at`
	var checkInAt time.Time
	err := r.pool.QueryRow(ctx, update, domain.GuestStatusCheckedIn, id).Scan(&checkInAt)
	if err == nil {
		return &CheckInResult{Effective: true, CheckInAt: checkInAt}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const read = `SELECT check_in_at FROM guests WHERE id=$1 AND status=$2`
	var stored *time.Time
	if err := r.pool.QueryRow(ctx, read, id, domain.GuestStatusCheckedIn).Scan(&stored); err != nil {
		return nil, err
	}
	result := &CheckInResult{Effective: false}
	if stored != nil {
		result.CheckInAt = *stored
	}
	return result, nil
}

func (r *guestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *guestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Guest, error) {
	return scanGuest(r.pool.QueryRow(ctx, query, arg))
}

func scanGuest(row pgx.Row) (*domain.Guest, error) {
	var guest domain.Guest
	if err := row.Scan(
		&guest.ID,
		&guest.FullName,
		&guest.Email,
		&guest.Whatsapp,
		&guest.Phone,
		&guest.Category,
		&guest.Org,
		&guest.Role,
		&guest.Token,
		&guest.Status,
		&guest.CheckInAt,
		&guest.InviteSentAt,
		&guest.CreatedAt,
		&guest.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &guest, nil
}
