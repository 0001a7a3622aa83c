package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema lists the DDL statements applied by Migrate, in dependency order.
//
// seat_assignments.active is 1 while the owning booking is active and NULL
// once it is cancelled or soft-deleted.  MySQL treats NULLs as distinct
// inside a unique index, so uq_seat_assignments_active only constrains
// active rows: a seat can back at most one active booking per showtime.
// trg_bookings_release_seats clears the flag whenever a booking leaves the
// booked state, so the flag alone decides whether a seat is held.
//
// payments.success_guard follows the same trick to allow any number of
// pending/failed attempts but a single successful one per booking.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name       VARCHAR(100)    NOT NULL,
		seat_rows  INT UNSIGNED    NOT NULL DEFAULT 0,
		seat_cols  INT UNSIGNED    NOT NULL DEFAULT 0,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		room_id     BIGINT UNSIGNED NOT NULL,
		row_label   VARCHAR(8)      NOT NULL,
		seat_number INT UNSIGNED    NOT NULL,
		seat_type   ENUM('STANDARD','VIP','ACCESSIBLE') NOT NULL DEFAULT 'STANDARD',
		created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seats_room_position (room_id, row_label, seat_number),
		CONSTRAINT fk_seats_room FOREIGN KEY (room_id) REFERENCES rooms (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS showtimes (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		movie_id     BIGINT UNSIGNED NOT NULL,
		room_id      BIGINT UNSIGNED NOT NULL,
		time_slot_id BIGINT UNSIGNED NOT NULL,
		show_date    DATE            NOT NULL,
		ticket_price BIGINT          NOT NULL,
		deleted_at   DATETIME        NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_showtimes_slot (room_id, time_slot_id, show_date),
		CONSTRAINT fk_showtimes_room FOREIGN KEY (room_id) REFERENCES rooms (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id         BIGINT UNSIGNED NULL,
		showtime_id     BIGINT UNSIGNED NOT NULL,
		total_price     BIGINT          NOT NULL,
		status          ENUM('booked','cancelled') NOT NULL DEFAULT 'booked',
		idempotency_key VARCHAR(128)    NULL,
		created_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		deleted_at      DATETIME        NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_bookings_idempotency_key (idempotency_key),
		KEY idx_bookings_showtime (showtime_id),
		CONSTRAINT fk_bookings_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_assignments (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		booking_id  BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		active      TINYINT         NULL DEFAULT 1,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seat_assignments_active (showtime_id, seat_id, active),
		KEY idx_seat_assignments_booking (booking_id),
		CONSTRAINT fk_seat_assignments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id),
		CONSTRAINT fk_seat_assignments_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id),
		CONSTRAINT fk_seat_assignments_seat FOREIGN KEY (seat_id) REFERENCES seats (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		booking_id     BIGINT UNSIGNED NOT NULL,
		user_id        BIGINT UNSIGNED NULL,
		amount         BIGINT          NOT NULL,
		method         VARCHAR(32)     NOT NULL,
		status         ENUM('pending','success','failed') NOT NULL DEFAULT 'pending',
		transaction_id VARCHAR(64)     NULL,
		success_guard  TINYINT AS (IF(status = 'success', 1, NULL)) STORED,
		created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_payments_single_success (booking_id, success_guard),
		CONSTRAINT fk_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TRIGGER IF NOT EXISTS trg_bookings_release_seats
	AFTER UPDATE ON bookings FOR EACH ROW
	UPDATE seat_assignments
	SET active = NULL
	WHERE booking_id = NEW.id
	  AND active = 1
	  AND (NEW.status <> 'booked' OR NEW.deleted_at IS NOT NULL)`,
}

// Migrate creates every table and index the service relies on.  It is
// idempotent and safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
