package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // registers the "postgres" driver
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute

	uniqueViolation = "23505"
)

// Connect opens and pings a PostgreSQL pool using driver "pgx" or "postgres".
func Connect(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database (driver %s)", driver)
	return db, nil
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// ChangesChannel is the NOTIFY channel the productos trigger publishes on.
const ChangesChannel = "productos_changes"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS productos (
		id BIGSERIAL PRIMARY KEY,
		nombre TEXT NOT NULL CHECK (length(trim(nombre)) > 0),
		codigo_barras TEXT UNIQUE,
		precio_costo NUMERIC(12,2) CHECK (precio_costo >= 0),
		precio_venta NUMERIC(12,2) NOT NULL CHECK (precio_venta >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ventas (
		id BIGSERIAL PRIMARY KEY,
		total NUMERIC(12,2) NOT NULL CHECK (total >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS detalle_ventas (
		id BIGSERIAL PRIMARY KEY,
		venta_id BIGINT NOT NULL REFERENCES ventas(id) ON DELETE CASCADE,
		producto_id BIGINT REFERENCES productos(id) ON DELETE SET NULL,
		cantidad INTEGER NOT NULL CHECK (cantidad > 0),
		precio_unitario NUMERIC(12,2) NOT NULL CHECK (precio_unitario >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_productos_updated_at ON productos (updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ventas_created_at ON ventas (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_detalle_ventas_venta_id ON detalle_ventas (venta_id)`,
	`CREATE OR REPLACE FUNCTION notify_productos_changes() RETURNS trigger AS $$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('` + ChangesChannel + `', json_build_object('type', TG_OP, 'id', OLD.id)::text);
			RETURN OLD;
		END IF;
		PERFORM pg_notify('` + ChangesChannel + `', json_build_object('type', TG_OP, 'id', NEW.id)::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS productos_changes ON productos`,
	`CREATE TRIGGER productos_changes AFTER INSERT OR UPDATE OR DELETE ON productos
		FOR EACH ROW EXECUTE FUNCTION notify_productos_changes()`,
}

// Migrate creates the tables, indexes and change trigger if they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Info("Database schema is up to date")
	return nil
}
