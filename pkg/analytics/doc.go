// Package analytics provides click storage and reporting for the CoinRader site.
//
// # Overview
//
// This package records every classified click the collector accepts and keeps
// pre-aggregated statistics (daily, weekly) per category and partner for the
// dashboard KPIs behind the stats API.
//
// # Key Metrics
//
// Overview KPIs:
//   - Total clicks (24h, 7d, 30d)
//   - Clicks by category (CTA, affiliate, outbound)
//   - Unique clients (24h, 7d)
//   - Top partner
//   - Navigation-hold rate on affiliate clicks
//   - Report delivery rate
//
// Per-Partner Analytics:
//   - Total clicks and unique clients
//   - Clicks by day/placement
//   - Top destination links
//   - Promoted-link share
//
// # Usage Example
//
// Track event:
//
//	tracker.TrackClick(ctx, analytics.ClickEvent{
//		Category:   "affiliate",
//		Partner:    "bitflyer",
//		Placement:  "ranking_1",
//		LinkURL:    "https://bitflyer.com/ja-jp/",
//		LinkDomain: "bitflyer.com",
//	})
//
// Get partner analytics:
//
//	stats, err := service.GetPartnerStats(ctx, "bitflyer", "30d")
//	fmt.Printf("Clicks: %d, Clients: %d, Held: %d\n",
//		stats.TotalClicks, stats.UniqueClients, stats.HeldClicks)
//
// Rank partners:
//
//	top, err := service.GetTopPartners(ctx, "7d", 10)
//	for _, p := range top {
//		fmt.Printf("%s: %d clicks over %d days\n", p.Partner, p.TotalClicks, p.ActiveDays)
//	}
//
// # Aggregation
//
// Batch aggregation runs daily from the poster daemon:
//
//	aggregator.AggregateClickStatsDaily(ctx, date)       // Computes click_stats_daily
//	aggregator.AggregateClickStatsWeekly(ctx, weekStart) // Computes click_stats_weekly
//
// # Related Packages
//
//   - pkg/track: Click classification
//   - pkg/enrich: Device, country and traffic-source enrichment
//   - pkg/observability: Metrics and monitoring
package analytics
