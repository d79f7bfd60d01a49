package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema lists the tables the seat reservation flow reads and writes, in
// dependency order.  seat_locks and booking_seats carry unique keys on
// (showtime_id, seat_id): the first enforces one lock per seat, the second
// forbids double booking, independently of application checks.
var schema = []struct {
	name string
	ddl  string
}{
	{"movies", `CREATE TABLE IF NOT EXISTS movies (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`},
	{"halls", `CREATE TABLE IF NOT EXISTS halls (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		seat_rows INT UNSIGNED NOT NULL DEFAULT 0,
		seat_cols INT UNSIGNED NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1
	) ENGINE=InnoDB`},
	{"seats", `CREATE TABLE IF NOT EXISTS seats (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		hall_id BIGINT UNSIGNED NOT NULL,
		row_label VARCHAR(8) NOT NULL,
		seat_number INT UNSIGNED NOT NULL,
		premium TINYINT(1) NOT NULL DEFAULT 0,
		wheelchair TINYINT(1) NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		UNIQUE KEY uq_seats_hall_position (hall_id, row_label, seat_number),
		CONSTRAINT fk_seats_hall FOREIGN KEY (hall_id) REFERENCES halls (id)
	) ENGINE=InnoDB`},
	{"showtimes", `CREATE TABLE IF NOT EXISTS showtimes (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		movie_id BIGINT UNSIGNED NOT NULL,
		hall_id BIGINT UNSIGNED NOT NULL,
		starts_at DATETIME NOT NULL,
		ticket_price_cents BIGINT NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		KEY idx_showtimes_hall (hall_id),
		CONSTRAINT fk_showtimes_movie FOREIGN KEY (movie_id) REFERENCES movies (id),
		CONSTRAINT fk_showtimes_hall FOREIGN KEY (hall_id) REFERENCES halls (id)
	) ENGINE=InnoDB`},
	{"seat_locks", `CREATE TABLE IF NOT EXISTS seat_locks (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		session_id VARCHAR(64) NOT NULL,
		locked_at DATETIME(3) NOT NULL,
		expires_at DATETIME(3) NOT NULL,
		UNIQUE KEY uq_seat_locks_showtime_seat (showtime_id, seat_id),
		KEY idx_seat_locks_expires (expires_at),
		KEY idx_seat_locks_session (session_id, showtime_id)
	) ENGINE=InnoDB`},
	{"bookings", `CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		ticket_quantity INT NOT NULL,
		child_count INT NOT NULL DEFAULT 0,
		adult_count INT NOT NULL DEFAULT 0,
		senior_count INT NOT NULL DEFAULT 0,
		total_cents BIGINT NOT NULL,
		booking_date DATETIME(3) NOT NULL,
		KEY idx_bookings_showtime (showtime_id),
		CONSTRAINT fk_bookings_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id)
	) ENGINE=InnoDB`},
	{"booking_seats", `CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (booking_id, seat_id),
		UNIQUE KEY uq_booking_seats_showtime_seat (showtime_id, seat_id),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB`},
}

// Migrate creates any missing tables.  It is idempotent and safe to run on
// every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}
	return nil
}
