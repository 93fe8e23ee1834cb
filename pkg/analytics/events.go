package analytics

import (
	"context"
	"database/sql"
)

// EventTracker handles click event collection
type EventTracker struct {
	db *sql.DB
}

// NewEventTracker creates a new event tracker
func NewEventTracker(db *sql.DB) *EventTracker {
	return &EventTracker{db: db}
}

// ClickEvent represents one classified click as recorded by the collector
type ClickEvent struct {
	EventID       string // client-generated idempotency token, may be empty
	ClientID      string
	Category      string // 'cta', 'affiliate', 'outbound'
	CTAID         string
	Partner       string
	Placement     string
	Promo         bool
	LinkURL       string
	LinkDomain    string
	PageURL       string
	SameOrigin    bool
	NewTab        bool
	Held          bool
	Reported      bool
	IPAddress     string
	UserAgent     string
	Referer       string
	Country       string
	Device        string
	TrafficSource string
}

// TrackClick records a click event. Rows carrying an event id the store has
// already seen are dropped, so a retried collect request inserts at most once.
func (t *EventTracker) TrackClick(ctx context.Context, event ClickEvent) error {
	query := `
		INSERT INTO click_events (
			event_id, client_id, category,
			cta_id, partner, placement, promo,
			link_url, link_domain, page_url,
			same_origin, new_tab, held, reported,
			ip_address, user_agent, referer,
			country, device, traffic_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err := t.db.ExecContext(ctx, query,
		nullString(event.EventID), nullString(event.ClientID), event.Category,
		nullString(event.CTAID), nullString(event.Partner), nullString(event.Placement),
		event.Promo, event.LinkURL, nullString(event.LinkDomain), nullString(event.PageURL),
		event.SameOrigin, event.NewTab, event.Held, event.Reported,
		nullString(event.IPAddress), nullString(event.UserAgent), nullString(event.Referer),
		nullString(event.Country), nullString(event.Device), nullString(event.TrafficSource),
	)
	return err
}

// Helper function to convert empty strings to NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
