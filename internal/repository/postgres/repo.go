package postgres

import (
	"context"
	"fmt"

	"github.com/BloggingApp/notification-lifecycle/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id                UUID PRIMARY KEY,
	recipient_id      UUID NOT NULL,
	kind              VARCHAR(32) NOT NULL,
	message           TEXT NOT NULL,
	link              VARCHAR(255),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	read_at           TIMESTAMPTZ,
	deletion_deadline TIMESTAMPTZ,
	CHECK ((read_at IS NULL) = (deletion_deadline IS NULL))
);

CREATE INDEX IF NOT EXISTS notifications_recipient_created_idx
	ON notifications (recipient_id, created_at DESC);

CREATE INDEX IF NOT EXISTS notifications_deadline_idx
	ON notifications (deletion_deadline) WHERE deletion_deadline IS NOT NULL;
`

func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)
	return pgxpool.New(ctx, dsn)
}

func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
