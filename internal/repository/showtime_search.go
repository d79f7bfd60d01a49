package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// ShowtimeQuery filters and pages the showtime listing.  Title and Hall are
// case-insensitive substring matches.  Only showtimes starting at or after
// From are listed.
type ShowtimeQuery struct {
	Title    string
	Hall     string
	From     time.Time
	Page     int
	PageSize int
}

// SearchShowtimes lists active showtimes ordered by start time, returning
// one page and the total number of matches.
func (r *CatalogRepo) SearchShowtimes(ctx context.Context, q ShowtimeQuery) ([]model.Showtime, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}

	where := []string{"st.is_active = 1", "st.starts_at >= ?"}
	args := []interface{}{q.From}
	if q.Title != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Hall != "" {
		where = append(where, "LOWER(h.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Hall)+"%")
	}
	cond := strings.Join(where, " AND ")
	ex := executor(ctx, r.db)

	var total int64
	countSQL := `SELECT COUNT(*) FROM showtimes st
JOIN movies m ON m.id = st.movie_id
JOIN halls h ON h.id = st.hall_id
WHERE ` + cond
	if err := sqlx.GetContext(ctx, ex, &total, countSQL, args...); err != nil {
		return nil, 0, fmt.Errorf("count showtimes: %w", err)
	}

	out := []model.Showtime{}
	if total == 0 {
		return out, 0, nil
	}
	dataSQL := showtimeSelect + ` WHERE ` + cond + ` ORDER BY st.starts_at, st.id LIMIT ? OFFSET ?`
	pageArgs := append(append([]interface{}{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	if err := sqlx.SelectContext(ctx, ex, &out, dataSQL, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("search showtimes: %w", err)
	}
	return out, total, nil
}
