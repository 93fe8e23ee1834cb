package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Alerter monitors click statistics and triggers alerts
type Alerter struct {
	db *sql.DB
}

// NewAlerter creates a new Alerter instance
func NewAlerter(db *sql.DB) *Alerter {
	return &Alerter{db: db}
}

// Alert represents an alert notification
type Alert struct {
	Type        string // "report", "volume", "inactive"
	Severity    string // "critical", "warning", "info"
	Title       string
	Message     string
	Details     map[string]interface{}
	TriggeredAt time.Time
}

// ReportAlert flags a partner whose clicks are not reaching analytics
type ReportAlert struct {
	Partner    string
	ClickCount int64
	ReportRate float64
}

// VolumeAlert flags a partner whose click volume collapsed
type VolumeAlert struct {
	Partner         string
	YesterdayClicks int64
	AvgDailyClicks  float64
}

// InactiveAlert flags a partner with no recent clicks
type InactiveAlert struct {
	Partner       string
	LastClickDays int
}

// CheckReportAlerts checks for partners with a low report delivery rate
// over the last 24 hours
func (a *Alerter) CheckReportAlerts(ctx context.Context, minRate float64) ([]ReportAlert, error) {
	query := `
		SELECT
			partner,
			COUNT(*) AS click_count,
			COUNT(*) FILTER (WHERE reported)::float / COUNT(*) AS report_rate
		FROM click_events
		WHERE occurred_at >= NOW() - INTERVAL '24 hours'
		  AND partner IS NOT NULL
		GROUP BY partner
		HAVING COUNT(*) >= 20
		   AND COUNT(*) FILTER (WHERE reported)::float / COUNT(*) < $1
		ORDER BY report_rate ASC
		LIMIT 20
	`

	rows, err := a.db.QueryContext(ctx, query, minRate)
	if err != nil {
		return nil, fmt.Errorf("failed to query report alerts: %w", err)
	}
	defer rows.Close()

	var alerts []ReportAlert
	for rows.Next() {
		var alert ReportAlert
		if err := rows.Scan(&alert.Partner, &alert.ClickCount, &alert.ReportRate); err != nil {
			return nil, fmt.Errorf("failed to scan report alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report alerts: %w", err)
	}

	return alerts, nil
}

// CheckVolumeAlerts checks for partners whose clicks yesterday fell below
// dropRatio times their trailing 7-day average
func (a *Alerter) CheckVolumeAlerts(ctx context.Context, dropRatio float64) ([]VolumeAlert, error) {
	query := `
		SELECT partner, yesterday_clicks, avg_daily_clicks
		FROM (
			SELECT
				partner,
				COALESCE(SUM(click_count) FILTER (WHERE date = CURRENT_DATE - INTERVAL '1 day'), 0) AS yesterday_clicks,
				COALESCE(SUM(click_count) FILTER (WHERE date < CURRENT_DATE - INTERVAL '1 day'), 0)::float / 7 AS avg_daily_clicks
			FROM click_stats_daily
			WHERE date >= CURRENT_DATE - INTERVAL '8 days'
			  AND date < CURRENT_DATE
			  AND partner <> ''
			GROUP BY partner
		) t
		WHERE avg_daily_clicks >= 10
		  AND yesterday_clicks < avg_daily_clicks * $1
		ORDER BY yesterday_clicks ASC
		LIMIT 20
	`

	rows, err := a.db.QueryContext(ctx, query, dropRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to query volume alerts: %w", err)
	}
	defer rows.Close()

	var alerts []VolumeAlert
	for rows.Next() {
		var alert VolumeAlert
		if err := rows.Scan(&alert.Partner, &alert.YesterdayClicks, &alert.AvgDailyClicks); err != nil {
			return nil, fmt.Errorf("failed to scan volume alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volume alerts: %w", err)
	}

	return alerts, nil
}

// CheckInactiveAlerts checks for partners with no clicks at all recently
func (a *Alerter) CheckInactiveAlerts(ctx context.Context, inactiveDays int) ([]InactiveAlert, error) {
	query := `
		SELECT
			partner,
			DATE_PART('day', NOW() - MAX(occurred_at)) AS last_click_days
		FROM click_events
		WHERE partner IS NOT NULL
		GROUP BY partner
		HAVING DATE_PART('day', NOW() - MAX(occurred_at)) > $1
		ORDER BY last_click_days DESC
		LIMIT 20
	`

	rows, err := a.db.QueryContext(ctx, query, inactiveDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive alerts: %w", err)
	}
	defer rows.Close()

	var alerts []InactiveAlert
	for rows.Next() {
		var alert InactiveAlert
		var lastClickDays float64
		if err := rows.Scan(&alert.Partner, &lastClickDays); err != nil {
			return nil, fmt.Errorf("failed to scan inactive alert: %w", err)
		}
		alert.LastClickDays = int(lastClickDays)
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inactive alerts: %w", err)
	}

	return alerts, nil
}

// CheckAllAlerts runs all alert checks and logs results
func (a *Alerter) CheckAllAlerts(ctx context.Context) error {
	log.Println("Running click alert checks...")

	// Check report delivery (threshold: 80% of clicks reported)
	reportAlerts, err := a.CheckReportAlerts(ctx, 0.8)
	if err != nil {
		log.Printf("ERROR: Failed to check report alerts: %v", err)
	} else if len(reportAlerts) > 0 {
		log.Printf("ALERT: Found %d partners with low report delivery:", len(reportAlerts))
		for _, alert := range reportAlerts {
			log.Printf("  - %s: %.0f%% of %d clicks reported",
				alert.Partner, alert.ReportRate*100, alert.ClickCount)
		}
		a.SendAlert(Alert{
			Type:        "report",
			Severity:    "warning",
			Title:       "Low report delivery rate",
			Message:     fmt.Sprintf("%d partners below 80%% delivery in the last 24h", len(reportAlerts)),
			Details:     map[string]interface{}{"partners": len(reportAlerts)},
			TriggeredAt: time.Now(),
		})
	} else {
		log.Println("INFO: No report alerts")
	}

	// Check volume drops (threshold: below half of the trailing average)
	volumeAlerts, err := a.CheckVolumeAlerts(ctx, 0.5)
	if err != nil {
		log.Printf("ERROR: Failed to check volume alerts: %v", err)
	} else if len(volumeAlerts) > 0 {
		log.Printf("ALERT: Found %d partners with collapsed click volume:", len(volumeAlerts))
		for _, alert := range volumeAlerts {
			log.Printf("  - %s: %d clicks yesterday (trailing avg %.1f/day)",
				alert.Partner, alert.YesterdayClicks, alert.AvgDailyClicks)
		}
		a.SendAlert(Alert{
			Type:        "volume",
			Severity:    "warning",
			Title:       "Click volume drop",
			Message:     fmt.Sprintf("%d partners below half their trailing average", len(volumeAlerts)),
			Details:     map[string]interface{}{"partners": len(volumeAlerts)},
			TriggeredAt: time.Now(),
		})
	} else {
		log.Println("INFO: No volume alerts")
	}

	// Check inactive partners (no clicks for 14+ days)
	inactiveAlerts, err := a.CheckInactiveAlerts(ctx, 14)
	if err != nil {
		log.Printf("ERROR: Failed to check inactive alerts: %v", err)
	} else if len(inactiveAlerts) > 0 {
		log.Printf("ALERT: Found %d partners with no recent clicks:", len(inactiveAlerts))
		for _, alert := range inactiveAlerts {
			log.Printf("  - %s: No clicks in %d days",
				alert.Partner, alert.LastClickDays)
		}
	} else {
		log.Println("INFO: No inactive alerts")
	}

	log.Println("Click alert checks completed")
	return nil
}

// SendAlert forwards an alert to external notification systems.
// TODO: post to the ops Slack webhook once the channel is provisioned
func (a *Alerter) SendAlert(alert Alert) error {
	log.Printf("[%s] %s: %s - %s\n",
		alert.Severity, alert.Type, alert.Title, alert.Message)

	return nil
}
