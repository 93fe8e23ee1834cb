package analytics

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements returns the DDL for the given database/sql driver.
// PostgreSQL and SQLite share everything except the auto-increment id
// column; defaults use CURRENT_TIMESTAMP so both engines parse them.
// The unique event_id index backs the collect route's idempotent insert;
// rows without an event id are never deduplicated.
func schemaStatements(driver string) []string {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	if driver == "sqlite3" {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS click_events (
			%s,
			event_id TEXT UNIQUE,
			client_id TEXT,
			category TEXT NOT NULL,
			cta_id TEXT,
			partner TEXT,
			placement TEXT,
			promo BOOLEAN NOT NULL DEFAULT FALSE,
			link_url TEXT NOT NULL,
			link_domain TEXT,
			page_url TEXT,
			same_origin BOOLEAN NOT NULL DEFAULT FALSE,
			new_tab BOOLEAN NOT NULL DEFAULT FALSE,
			held BOOLEAN NOT NULL DEFAULT FALSE,
			reported BOOLEAN NOT NULL DEFAULT FALSE,
			ip_address TEXT,
			user_agent TEXT,
			referer TEXT,
			country TEXT,
			device TEXT,
			traffic_source TEXT,
			occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, idColumn),
		`CREATE INDEX IF NOT EXISTS idx_click_events_occurred_at ON click_events (occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_click_events_partner ON click_events (partner) WHERE partner IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS click_stats_daily (
			date DATE NOT NULL,
			category TEXT NOT NULL,
			partner TEXT NOT NULL DEFAULT '',
			click_count BIGINT NOT NULL DEFAULT 0,
			unique_clients BIGINT NOT NULL DEFAULT 0,
			held_count BIGINT NOT NULL DEFAULT 0,
			new_tab_count BIGINT NOT NULL DEFAULT 0,
			promo_count BIGINT NOT NULL DEFAULT 0,
			reported_count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (date, category, partner)
		)`,
		`CREATE TABLE IF NOT EXISTS click_stats_weekly (
			week_start DATE NOT NULL,
			week_end DATE NOT NULL,
			category TEXT NOT NULL,
			partner TEXT NOT NULL DEFAULT '',
			click_count BIGINT NOT NULL DEFAULT 0,
			unique_clients BIGINT NOT NULL DEFAULT 0,
			held_count BIGINT NOT NULL DEFAULT 0,
			new_tab_count BIGINT NOT NULL DEFAULT 0,
			promo_count BIGINT NOT NULL DEFAULT 0,
			reported_count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (week_start, category, partner)
		)`,
	}
}

// EnsureSchema creates the click tables and indexes if needed. Safe to
// run on every startup. driver is the database/sql driver name the
// connection was opened with ("postgres" or "sqlite3").
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	for _, stmt := range schemaStatements(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring click schema: %w", err)
		}
	}
	return nil
}
