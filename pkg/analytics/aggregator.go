package analytics

import (
	"context"
	"database/sql"
	"time"
)

// Aggregator computes daily/weekly click statistics
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates a new aggregator
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// AggregateClickStatsDaily computes daily stats per category and partner
func (a *Aggregator) AggregateClickStatsDaily(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO click_stats_daily (
			date, category, partner,
			click_count, unique_clients,
			held_count, new_tab_count, promo_count, reported_count
		)
		SELECT
			$1::date AS date,
			category,
			COALESCE(partner, '') AS partner,
			COUNT(*) AS click_count,
			COUNT(DISTINCT client_id) AS unique_clients,
			COUNT(*) FILTER (WHERE held) AS held_count,
			COUNT(*) FILTER (WHERE new_tab) AS new_tab_count,
			COUNT(*) FILTER (WHERE promo) AS promo_count,
			COUNT(*) FILTER (WHERE reported) AS reported_count
		FROM click_events
		WHERE occurred_at >= $1::date
		  AND occurred_at < $1::date + INTERVAL '1 day'
		GROUP BY category, COALESCE(partner, '')
		ON CONFLICT (date, category, partner) DO UPDATE SET
			click_count = EXCLUDED.click_count,
			unique_clients = EXCLUDED.unique_clients,
			held_count = EXCLUDED.held_count,
			new_tab_count = EXCLUDED.new_tab_count,
			promo_count = EXCLUDED.promo_count,
			reported_count = EXCLUDED.reported_count
	`
	_, err := a.db.ExecContext(ctx, query, date)
	return err
}

// AggregateClickStatsWeekly computes weekly stats per category and partner
func (a *Aggregator) AggregateClickStatsWeekly(ctx context.Context, weekStart time.Time) error {
	weekEnd := weekStart.AddDate(0, 0, 7)

	query := `
		INSERT INTO click_stats_weekly (
			week_start, week_end, category, partner,
			click_count, unique_clients,
			held_count, new_tab_count, promo_count, reported_count
		)
		SELECT
			$1::date AS week_start,
			$2::date AS week_end,
			category,
			partner,
			SUM(click_count) AS click_count,
			SUM(unique_clients) AS unique_clients,
			SUM(held_count) AS held_count,
			SUM(new_tab_count) AS new_tab_count,
			SUM(promo_count) AS promo_count,
			SUM(reported_count) AS reported_count
		FROM click_stats_daily
		WHERE date >= $1::date AND date < $2::date
		GROUP BY category, partner
		ON CONFLICT (week_start, category, partner) DO UPDATE SET
			click_count = EXCLUDED.click_count,
			unique_clients = EXCLUDED.unique_clients,
			held_count = EXCLUDED.held_count,
			new_tab_count = EXCLUDED.new_tab_count,
			promo_count = EXCLUDED.promo_count,
			reported_count = EXCLUDED.reported_count
	`
	_, err := a.db.ExecContext(ctx, query, weekStart, weekEnd)
	return err
}

// AggregateAll runs all aggregation jobs for a given date
func (a *Aggregator) AggregateAll(ctx context.Context, date time.Time) error {
	if err := a.AggregateClickStatsDaily(ctx, date); err != nil {
		return err
	}

	// Aggregate weekly (if it's Sunday)
	if date.Weekday() == time.Sunday {
		weekStart := date.AddDate(0, 0, -6) // Start of week (7 days ago)
		if err := a.AggregateClickStatsWeekly(ctx, weekStart); err != nil {
			return err
		}
	}

	return nil
}
