package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	version int
	name    string
	stmt    string
}

// Ordered schema migrations. Entries are append-only; never edit an applied
// migration, add a new version instead.
var migrations = []migration{
	{
		version: 1,
		name:    "users",
		stmt: `CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'cashier',
			full_name     TEXT NOT NULL DEFAULT '',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		version: 2,
		name:    "products",
		stmt: `CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			price       DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (price >= 0),
			cost        DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (cost >= 0),
			stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			min_stock   INTEGER NOT NULL DEFAULT 0,
			category    TEXT NOT NULL DEFAULT '',
			barcode     TEXT UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		version: 3,
		name:    "sales",
		stmt: `CREATE TABLE IF NOT EXISTS sales (
			id             TEXT PRIMARY KEY,
			subtotal       DOUBLE PRECISION NOT NULL DEFAULT 0,
			tax            DOUBLE PRECISION NOT NULL DEFAULT 0,
			discount       DOUBLE PRECISION NOT NULL DEFAULT 0,
			total          DOUBLE PRECISION NOT NULL,
			payment_method TEXT NOT NULL,
			cashier_id     TEXT NOT NULL REFERENCES users(id),
			cashier_name   TEXT NOT NULL DEFAULT '',
			customer_name  TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			daily_number   INTEGER NOT NULL,
			is_active      BOOLEAN NOT NULL DEFAULT TRUE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		version: 4,
		name:    "sale_items",
		stmt: `CREATE TABLE IF NOT EXISTS sale_items (
			id           TEXT PRIMARY KEY,
			sale_id      TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
			product_id   TEXT NOT NULL REFERENCES products(id),
			product_name TEXT NOT NULL,
			quantity     INTEGER NOT NULL CHECK (quantity > 0),
			unit_price   DOUBLE PRECISION NOT NULL,
			total_price  DOUBLE PRECISION NOT NULL
		)`,
	},
	{
		version: 5,
		name:    "stock_movements",
		stmt: `CREATE TABLE IF NOT EXISTS stock_movements (
			id             TEXT PRIMARY KEY,
			product_id     TEXT NOT NULL REFERENCES products(id),
			movement_type  TEXT NOT NULL,
			quantity       INTEGER NOT NULL,
			previous_stock INTEGER NOT NULL,
			new_stock      INTEGER NOT NULL,
			reference_id   TEXT,
			notes          TEXT NOT NULL DEFAULT '',
			created_by     TEXT REFERENCES users(id),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		version: 6,
		name:    "audit_logs",
		stmt: `CREATE TABLE IF NOT EXISTS audit_logs (
			id          BIGSERIAL PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			action      TEXT NOT NULL,
			entity      TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			meta        JSONB,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		version: 7,
		name:    "idempotency_keys",
		stmt: `CREATE TABLE IF NOT EXISTS idempotency_keys (
			key        TEXT PRIMARY KEY,
			module     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		version: 8,
		name:    "indexes",
		stmt: `CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales (created_at);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_daily ON sales ((created_at::date), daily_number);
			CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items (sale_id);
			CREATE INDEX IF NOT EXISTS idx_stock_movements_product ON stock_movements (product_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
	},
}

// Migrate applies pending migrations in order, gated by schema_migrations.
// Safe to run on every startup; each version is applied exactly once.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("platform/db: create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("platform/db: read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := WithTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.stmt); err != nil {
				return fmt.Errorf("apply %d_%s: %w", m.version, m.name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name); err != nil {
				return fmt.Errorf("record %d_%s: %w", m.version, m.name, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
		if logger != nil {
			logger.Info("migration applied", slog.Int("version", m.version), slog.String("name", m.name))
		}
	}
	return nil
}
