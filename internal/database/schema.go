package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		full_name     VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
		is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tours (
		id                   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title                VARCHAR(255) NOT NULL,
		location             VARCHAR(255) NOT NULL DEFAULT '',
		description          TEXT         NOT NULL,
		price_cents          BIGINT       NOT NULL,
		discount_price_cents BIGINT       NULL,
		start_date           DATE         NOT NULL,
		end_date             DATE         NOT NULL,
		capacity             INT UNSIGNED NOT NULL,
		booked_count         INT UNSIGNED NOT NULL DEFAULT 0,
		status               ENUM('upcoming','available','fully_booked','cancelled','completed') NOT NULL DEFAULT 'upcoming',
		created_at           DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at           DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tours_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_number      VARCHAR(32)     NOT NULL,
		tour_id             BIGINT UNSIGNED NOT NULL,
		user_id             BIGINT UNSIGNED NOT NULL,
		tour_date           DATE            NOT NULL,
		people_count        INT UNSIGNED    NOT NULL,
		total_price_cents   BIGINT          NOT NULL,
		status              ENUM('pending','confirmed','cancelled','completed') NOT NULL,
		special_requests    TEXT            NULL,
		cancellation_reason TEXT            NULL,
		booked_at           DATETIME        NOT NULL,
		confirmed_at        DATETIME        NULL,
		cancelled_at        DATETIME        NULL,
		completed_at        DATETIME        NULL,
		updated_at          DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_bookings_number (booking_number),
		KEY idx_bookings_tour_date (tour_id, tour_date, status),
		KEY idx_bookings_user (user_id, booked_at),
		CONSTRAINT fk_bookings_tour FOREIGN KEY (tour_id) REFERENCES tours (id),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
