package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"storefront-catalog/internal/domain"
)

// Schema creates the replica tables. Position is the 1-based display order.
const Schema = `
CREATE SCHEMA IF NOT EXISTS shop;
CREATE TABLE IF NOT EXISTS shop.products (
	position       INTEGER PRIMARY KEY,
	id             TEXT NOT NULL,
	name           TEXT NOT NULL,
	image          TEXT NOT NULL DEFAULT '',
	qr_image       TEXT NOT NULL DEFAULT '',
	price_now      TEXT NOT NULL,
	price_original TEXT NOT NULL DEFAULT '',
	discount       TEXT NOT NULL DEFAULT '',
	buy_link       TEXT NOT NULL,
	description    TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS shop.featured_products (
	position       INTEGER PRIMARY KEY,
	id             TEXT NOT NULL,
	name           TEXT NOT NULL,
	image          TEXT NOT NULL DEFAULT '',
	price_now      TEXT NOT NULL,
	price_original TEXT NOT NULL DEFAULT '',
	buy_link       TEXT NOT NULL
);`

// PostgresReplicator implements Replicator by rewriting replica tables in PostgreSQL.
// The JSON documents stay authoritative; the tables are a read model for reporting.
type PostgresReplicator struct {
	db *sql.DB
}

// NewPostgresReplicator creates a new PostgresReplicator instance.
func NewPostgresReplicator(db *sql.DB) *PostgresReplicator {
	return &PostgresReplicator{db: db}
}

// EnsureSchema creates the replica tables if they do not exist.
func (r *PostgresReplicator) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("store: EnsureSchema failed: %w", err)
	}
	return nil
}

// ReplicateCatalog replaces shop.products with the given ordered catalog.
func (r *PostgresReplicator) ReplicateCatalog(ctx context.Context, products []domain.Product) error {
	return r.inTx(ctx, "ReplicateCatalog", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shop.products;`); err != nil {
			return fmt.Errorf("clear products: %w", err)
		}
		query := `
			INSERT INTO shop.products
				(position, id, name, image, qr_image, price_now, price_original, discount, buy_link, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
		`
		for i, p := range products {
			_, err := tx.ExecContext(ctx, query,
				i+1, p.ID, p.Name, p.Image, p.QRImage, p.PriceNow, p.PriceOriginal, p.Discount, p.BuyLink,
				pq.Array(p.Description),
			)
			if err != nil {
				return fmt.Errorf("insert product %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// ReplicateFeatured replaces shop.featured_products with the given entries.
func (r *PostgresReplicator) ReplicateFeatured(ctx context.Context, entries []domain.FeaturedEntry) error {
	return r.inTx(ctx, "ReplicateFeatured", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shop.featured_products;`); err != nil {
			return fmt.Errorf("clear featured products: %w", err)
		}
		query := `
			INSERT INTO shop.featured_products
				(position, id, name, image, price_now, price_original, buy_link)
			VALUES ($1, $2, $3, $4, $5, $6, $7);
		`
		for i, e := range entries {
			_, err := tx.ExecContext(ctx, query, i+1, e.ID, e.Name, e.Image, e.PriceNow, e.PriceOriginal, e.BuyLink)
			if err != nil {
				return fmt.Errorf("insert featured product %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (r *PostgresReplicator) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %s failed to begin transaction: %w", op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: %s failed: %v (rollback: %v)", op, err, rbErr)
		}
		return fmt.Errorf("store: %s failed: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: %s failed to commit: %w", op, err)
	}
	return nil
}

// Ping verifies the replica database is reachable.
func (r *PostgresReplicator) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (r *PostgresReplicator) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
