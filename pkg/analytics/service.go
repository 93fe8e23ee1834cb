package analytics

import (
	"context"
	"database/sql"
	"time"
)

// Service provides click analytics business logic
type Service struct {
	db *sql.DB
}

// NewService creates a new analytics service
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// OverviewResponse contains high-level KPIs
type OverviewResponse struct {
	TotalClicks24h     int64   `json:"total_clicks_24h"`
	TotalClicks7d      int64   `json:"total_clicks_7d"`
	TotalClicks30d     int64   `json:"total_clicks_30d"`
	CTAClicks24h       int64   `json:"cta_clicks_24h"`
	AffiliateClicks24h int64   `json:"affiliate_clicks_24h"`
	OutboundClicks24h  int64   `json:"outbound_clicks_24h"`
	UniqueClients24h   int64   `json:"unique_clients_24h"`
	UniqueClients7d    int64   `json:"unique_clients_7d"`
	TopPartner         string  `json:"top_partner"`
	HeldRate7d         float64 `json:"held_rate_7d"`
	ReportRate7d       float64 `json:"report_rate_7d"`
}

// GetOverview retrieves high-level KPIs
func (s *Service) GetOverview(ctx context.Context) (*OverviewResponse, error) {
	var overview OverviewResponse

	// Clicks (24h, 7d, 30d)
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN date >= CURRENT_DATE - INTERVAL '1 day' THEN click_count ELSE 0 END), 0) AS clicks_24h,
			COALESCE(SUM(CASE WHEN date >= CURRENT_DATE - INTERVAL '7 days' THEN click_count ELSE 0 END), 0) AS clicks_7d,
			COALESCE(SUM(CASE WHEN date >= CURRENT_DATE - INTERVAL '30 days' THEN click_count ELSE 0 END), 0) AS clicks_30d
		FROM click_stats_daily
	`
	err := s.db.QueryRowContext(ctx, query).Scan(
		&overview.TotalClicks24h,
		&overview.TotalClicks7d,
		&overview.TotalClicks30d,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	// Clicks by category (24h)
	query = `
		SELECT
			COALESCE(SUM(CASE WHEN category = 'cta' THEN click_count ELSE 0 END), 0) AS cta_24h,
			COALESCE(SUM(CASE WHEN category = 'affiliate' THEN click_count ELSE 0 END), 0) AS affiliate_24h,
			COALESCE(SUM(CASE WHEN category = 'outbound' THEN click_count ELSE 0 END), 0) AS outbound_24h
		FROM click_stats_daily
		WHERE date >= CURRENT_DATE - INTERVAL '1 day'
	`
	err = s.db.QueryRowContext(ctx, query).Scan(
		&overview.CTAClicks24h,
		&overview.AffiliateClicks24h,
		&overview.OutboundClicks24h,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	// Unique clients
	query = `
		SELECT
			COUNT(DISTINCT client_id) FILTER (WHERE occurred_at >= NOW() - INTERVAL '24 hours'),
			COUNT(DISTINCT client_id) FILTER (WHERE occurred_at >= NOW() - INTERVAL '7 days')
		FROM click_events
		WHERE client_id IS NOT NULL
	`
	err = s.db.QueryRowContext(ctx, query).Scan(&overview.UniqueClients24h, &overview.UniqueClients7d)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	// Top partner
	query = `
		SELECT partner
		FROM click_stats_daily
		WHERE date >= CURRENT_DATE - INTERVAL '30 days'
		  AND partner <> ''
		GROUP BY partner
		ORDER BY SUM(click_count) DESC
		LIMIT 1
	`
	err = s.db.QueryRowContext(ctx, query).Scan(&overview.TopPartner)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	// Held rate across affiliate clicks
	query = `
		SELECT
			SUM(held_count)::float / NULLIF(SUM(click_count), 0)
		FROM click_stats_daily
		WHERE date >= CURRENT_DATE - INTERVAL '7 days'
		  AND category = 'affiliate'
	`
	var heldRate sql.NullFloat64
	err = s.db.QueryRowContext(ctx, query).Scan(&heldRate)
	if err == nil && heldRate.Valid {
		overview.HeldRate7d = heldRate.Float64
	}

	// Report delivery rate
	query = `
		SELECT
			SUM(reported_count)::float / NULLIF(SUM(click_count), 0)
		FROM click_stats_daily
		WHERE date >= CURRENT_DATE - INTERVAL '7 days'
	`
	var reportRate sql.NullFloat64
	err = s.db.QueryRowContext(ctx, query).Scan(&reportRate)
	if err == nil && reportRate.Valid {
		overview.ReportRate7d = reportRate.Float64
	}

	return &overview, nil
}

// TimeSeriesPoint represents a single data point in a time series
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LinkStats contains click stats for a destination URL
type LinkStats struct {
	LinkURL string `json:"link_url"`
	Clicks  int64  `json:"clicks"`
}

// PartnerStatsResponse contains per-partner analytics
type PartnerStatsResponse struct {
	Partner           string            `json:"partner"`
	TotalClicks       int64             `json:"total_clicks"`
	UniqueClients     int64             `json:"unique_clients"`
	HeldClicks        int64             `json:"held_clicks"`
	ClicksByDay       []TimeSeriesPoint `json:"clicks_by_day"`
	ClicksByPlacement map[string]int64  `json:"clicks_by_placement"`
	TopLinks          []LinkStats       `json:"top_links"`
	PromoShare        float64           `json:"promo_share"`
	LastClickAt       *time.Time        `json:"last_click_at"`
}

// GetPartnerStats retrieves per-partner analytics
func (s *Service) GetPartnerStats(ctx context.Context, partner string, period string) (*PartnerStatsResponse, error) {
	// Convert period to days
	days := 30
	switch period {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}

	var stats PartnerStatsResponse
	stats.Partner = partner

	// Aggregate totals
	query := `
		SELECT
			COALESCE(SUM(click_count), 0),
			COALESCE(SUM(unique_clients), 0),
			COALESCE(SUM(held_count), 0)
		FROM click_stats_daily
		WHERE partner = $1
		  AND date >= CURRENT_DATE - $2::integer * INTERVAL '1 day'
	`
	err := s.db.QueryRowContext(ctx, query, partner, days).Scan(
		&stats.TotalClicks,
		&stats.UniqueClients,
		&stats.HeldClicks,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	// Time series data
	query = `
		SELECT date, SUM(click_count)
		FROM click_stats_daily
		WHERE partner = $1
		  AND date >= CURRENT_DATE - $2::integer * INTERVAL '1 day'
		GROUP BY date
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, partner, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var point TimeSeriesPoint
		var date time.Time
		if err := rows.Scan(&date, &point.Value); err != nil {
			return nil, err
		}
		point.Date = date.Format("2006-01-02")
		stats.ClicksByDay = append(stats.ClicksByDay, point)
	}

	// Clicks by placement
	query = `
		SELECT COALESCE(placement, ''), COUNT(*)
		FROM click_events
		WHERE partner = $1
		  AND occurred_at >= NOW() - $2::integer * INTERVAL '1 day'
		GROUP BY placement
	`
	rows, err = s.db.QueryContext(ctx, query, partner, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.ClicksByPlacement = make(map[string]int64)
	for rows.Next() {
		var placement string
		var count int64
		if err := rows.Scan(&placement, &count); err != nil {
			return nil, err
		}
		stats.ClicksByPlacement[placement] = count
	}

	// Top destination links
	query = `
		SELECT link_url, COUNT(*)
		FROM click_events
		WHERE partner = $1
		  AND occurred_at >= NOW() - $2::integer * INTERVAL '1 day'
		GROUP BY link_url
		ORDER BY COUNT(*) DESC
		LIMIT 10
	`
	rows, err = s.db.QueryContext(ctx, query, partner, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ls LinkStats
		if err := rows.Scan(&ls.LinkURL, &ls.Clicks); err != nil {
			return nil, err
		}
		stats.TopLinks = append(stats.TopLinks, ls)
	}

	// Promoted-link share
	query = `
		SELECT
			COALESCE(SUM(promo_count)::float / NULLIF(SUM(click_count), 0), 0)
		FROM click_stats_daily
		WHERE partner = $1
		  AND date >= CURRENT_DATE - $2::integer * INTERVAL '1 day'
	`
	err = s.db.QueryRowContext(ctx, query, partner, days).Scan(&stats.PromoShare)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	// Last click at
	query = `
		SELECT MAX(occurred_at)
		FROM click_events
		WHERE partner = $1
	`
	var lastClick sql.NullTime
	err = s.db.QueryRowContext(ctx, query, partner).Scan(&lastClick)
	if err == nil && lastClick.Valid {
		stats.LastClickAt = &lastClick.Time
	}

	return &stats, nil
}

// TopPartner represents a partner click ranking entry
type TopPartner struct {
	Partner        string  `json:"partner"`
	TotalClicks    int64   `json:"total_clicks"`
	UniqueClients  int64   `json:"unique_clients"`
	ActiveDays     int     `json:"active_days"`
	AvgDailyClicks float64 `json:"avg_daily_clicks"`
}

// GetTopPartners retrieves top partners by clicks
func (s *Service) GetTopPartners(ctx context.Context, period string, limit int) ([]TopPartner, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	days := 30
	switch period {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}

	query := `
		SELECT
			partner,
			SUM(click_count) AS total_clicks,
			SUM(unique_clients) AS unique_clients,
			COUNT(DISTINCT date) AS active_days,
			AVG(click_count) AS avg_daily_clicks
		FROM click_stats_daily
		WHERE date >= CURRENT_DATE - $1::integer * INTERVAL '1 day'
		  AND partner <> ''
		GROUP BY partner
		HAVING SUM(click_count) > 0
		ORDER BY total_clicks DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []TopPartner
	for rows.Next() {
		var p TopPartner
		if err := rows.Scan(
			&p.Partner,
			&p.TotalClicks,
			&p.UniqueClients,
			&p.ActiveDays,
			&p.AvgDailyClicks,
		); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}

	return partners, nil
}

// DailyClicks represents one day of click counts split by category
type DailyClicks struct {
	Date      string `json:"date"`
	CTA       int64  `json:"cta"`
	Affiliate int64  `json:"affiliate"`
	Outbound  int64  `json:"outbound"`
	Total     int64  `json:"total"`
}

// GetClicksDaily retrieves the per-day click series for a period
func (s *Service) GetClicksDaily(ctx context.Context, period string) ([]DailyClicks, error) {
	days := 30
	switch period {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}

	query := `
		SELECT
			date,
			COALESCE(SUM(click_count) FILTER (WHERE category = 'cta'), 0) AS cta,
			COALESCE(SUM(click_count) FILTER (WHERE category = 'affiliate'), 0) AS affiliate,
			COALESCE(SUM(click_count) FILTER (WHERE category = 'outbound'), 0) AS outbound,
			SUM(click_count) AS total
		FROM click_stats_daily
		WHERE date >= CURRENT_DATE - $1::integer * INTERVAL '1 day'
		GROUP BY date
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []DailyClicks
	for rows.Next() {
		var d DailyClicks
		var date time.Time
		if err := rows.Scan(&date, &d.CTA, &d.Affiliate, &d.Outbound, &d.Total); err != nil {
			return nil, err
		}
		d.Date = date.Format("2006-01-02")
		series = append(series, d)
	}

	return series, nil
}
