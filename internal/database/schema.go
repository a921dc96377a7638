package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL applied by Migrate, in dependency order.  Every
// statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(191) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		full_name     VARCHAR(191) NOT NULL DEFAULT '',
		phone         VARCHAR(20)  NULL,
		student_code  VARCHAR(32)  NULL,
		career        VARCHAR(191) NULL,
		age           INT          NOT NULL DEFAULT 0,
		sex           VARCHAR(32)  NULL,
		zone          VARCHAR(191) NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT '',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)  NOT NULL,
		token_hash CHAR(64)  NOT NULL,
		expires_at DATETIME  NOT NULL,
		revoked_at DATETIME  NULL,
		created_at DATETIME  NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY ix_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS vehicles (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		owner_id          CHAR(36)     NOT NULL,
		plate             VARCHAR(16)  NOT NULL,
		brand             VARCHAR(64)  NOT NULL,
		model             VARCHAR(64)  NOT NULL,
		color             VARCHAR(32)  NOT NULL,
		year              INT          NOT NULL,
		capacity          INT          NOT NULL DEFAULT 4,
		property_card_url VARCHAR(512) NOT NULL,
		license_url       VARCHAR(512) NOT NULL,
		insurance_url     VARCHAR(512) NOT NULL,
		created_at        DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_vehicle_plate (plate),
		KEY ix_vehicle_owner (owner_id),
		CONSTRAINT fk_vehicle_owner FOREIGN KEY (owner_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// One table for both schedule variants; role tells them apart.
	`CREATE TABLE IF NOT EXISTS schedules (
		id                  CHAR(36)    NOT NULL PRIMARY KEY,
		owner_id            CHAR(36)    NOT NULL,
		role                ENUM('driver','passenger') NOT NULL,
		day                 ENUM('lunes','martes','miercoles','jueves','viernes','sabado','domingo') NOT NULL,
		time_of_day         TIME        NOT NULL,
		origin              ENUM('residencia','universidad') NOT NULL,
		destination         ENUM('residencia','universidad') NOT NULL,
		zone                VARCHAR(191) NULL,
		seats               INT         NULL,
		flexibility_minutes INT         NULL,
		active              TINYINT(1)  NOT NULL DEFAULT 1,
		created_at          DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY ix_sched_match (role, active, day),
		KEY ix_sched_owner (owner_id, role, active),
		CONSTRAINT fk_sched_owner FOREIGN KEY (owner_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS trip_requests (
		id                 CHAR(36)    NOT NULL PRIMARY KEY,
		passenger_id       CHAR(36)    NOT NULL,
		driver_id          CHAR(36)    NOT NULL,
		driver_schedule_id CHAR(36)    NOT NULL,
		state              ENUM('pending','accepted','rejected','cancelled') NOT NULL DEFAULT 'pending',
		message            VARCHAR(500) NULL,
		created_at         DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at         DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		KEY ix_req_driver (driver_id, state),
		KEY ix_req_passenger (passenger_id, state),
		KEY ix_req_dedupe (passenger_id, driver_schedule_id, state),
		CONSTRAINT fk_req_schedule FOREIGN KEY (driver_schedule_id) REFERENCES schedules(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		recipient_id CHAR(36)     NOT NULL,
		type         VARCHAR(32)  NOT NULL,
		title        VARCHAR(191) NOT NULL,
		body         VARCHAR(500) NOT NULL,
		metadata     JSON         NULL,
		is_read      TINYINT(1)   NOT NULL DEFAULT 0,
		created_at   DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY ix_notif_recipient (recipient_id, is_read, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS favorite_drivers (
		passenger_id CHAR(36) NOT NULL,
		driver_id    CHAR(36) NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (passenger_id, driver_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS contact_history (
		id           CHAR(36)    NOT NULL PRIMARY KEY,
		passenger_id CHAR(36)    NOT NULL,
		driver_id    CHAR(36)    NOT NULL,
		channel      ENUM('whatsapp','phone') NOT NULL,
		created_at   DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY ix_contact_passenger (passenger_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
