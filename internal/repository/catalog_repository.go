package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// CatalogRepo is the read-only view of showtimes and seats used by the
// reservation flow.  Movie, hall and seat maintenance happens elsewhere.
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the provided database.
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const showtimeSelect = `SELECT st.id, st.movie_id, st.hall_id, st.starts_at, st.ticket_price_cents, st.is_active,
       m.title AS movie_title, h.name AS hall_name
FROM showtimes st
JOIN movies m ON m.id = st.movie_id
JOIN halls h ON h.id = st.hall_id`

// GetShowtime returns an active showtime with its movie title and hall
// name.  It returns ErrNotFound when the showtime does not exist or is
// inactive.
func (r *CatalogRepo) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	var st model.Showtime
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &st, showtimeSelect+` WHERE st.id = ? AND st.is_active = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get showtime: %w", err)
	}
	return &st, nil
}

// LockShowtime reads an active showtime with SELECT ... FOR UPDATE.  Inside
// a transaction this serialises every lock and commit operation for the
// showtime until the transaction ends.
func (r *CatalogRepo) LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, hall_id, starts_at, ticket_price_cents, is_active
	           FROM showtimes WHERE id = ? AND is_active = 1 FOR UPDATE`
	var st model.Showtime
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &st, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock showtime: %w", err)
	}
	return &st, nil
}

// GetHall returns an active hall.  Its grid size lets clients lay out
// aisles and gaps between the seats that exist.
func (r *CatalogRepo) GetHall(ctx context.Context, id uint64) (*model.Hall, error) {
	const q = `SELECT id, name, seat_rows, seat_cols, is_active FROM halls WHERE id = ? AND is_active = 1`
	var h model.Hall
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &h, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hall: %w", err)
	}
	return &h, nil
}

const seatColumns = `id, hall_id, row_label, seat_number, premium, wheelchair, is_active`

// ActiveSeats lists the active seats of a hall in row/number order.
func (r *CatalogRepo) ActiveSeats(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats
	      WHERE hall_id = ? AND is_active = 1
	      ORDER BY row_label, seat_number`
	var seats []model.Seat
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &seats, q, hallID); err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return seats, nil
}

// SeatsByIDs returns the active seats among ids that belong to hallID.
// Ids that are unknown, inactive or in another hall are simply absent from
// the result.
func (r *CatalogRepo) SeatsByIDs(ctx context.Context, hallID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ext := executor(ctx, r.db)
	q, args, err := inQuery(ext,
		`SELECT `+seatColumns+` FROM seats WHERE hall_id = ? AND is_active = 1 AND id IN (?) ORDER BY row_label, seat_number`,
		hallID, ids)
	if err != nil {
		return nil, err
	}
	var seats []model.Seat
	if err := sqlx.SelectContext(ctx, ext, &seats, q, args...); err != nil {
		return nil, fmt.Errorf("select seats: %w", err)
	}
	return seats, nil
}
