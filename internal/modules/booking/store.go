// README: Booking journal backed by PostgreSQL; one row per submission with its delivery status.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fareflow/internal/types"
)

var ErrBookingNotFound = errors.New("booking not found")

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Record is a journaled submission.
type Record struct {
	Reference     types.ID
	SessionID     types.ID
	Status        Status
	Payload       BookingPayload
	FailureDetail *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, sessionID types.ID, p BookingPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO bookings (reference, session_id, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(p.Reference),
		string(sessionID),
		string(StatusPending),
		string(body),
		p.SubmittedAt,
	)
	return err
}

// UpdateStatus moves a pending booking to sent or failed. It reports false
// when the booking was not pending.
func (s *Store) UpdateStatus(ctx context.Context, ref types.ID, to Status, detail string) (bool, error) {
	var d *string
	if detail != "" {
		d = &detail
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    failure_detail = $2,
		    updated_at = NOW()
		WHERE reference = $3 AND status = $4`,
		string(to),
		d,
		string(ref),
		string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Get(ctx context.Context, ref types.ID) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT reference, session_id, status, payload, failure_detail, created_at, updated_at
		FROM bookings
		WHERE reference = $1`, string(ref),
	)

	var rec Record
	var reference, sessionID, status string
	var payload []byte
	err := row.Scan(&reference, &sessionID, &status, &payload, &rec.FailureDetail, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Reference = types.ID(reference)
	rec.SessionID = types.ID(sessionID)
	rec.Status = Status(status)
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &rec, nil
}
