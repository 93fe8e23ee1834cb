// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. Collector settings use the CR_ prefix;
// the market content pipeline keeps the original workflow variable names
// (BASE_URL, CG_DEMO_KEY, ...) so existing deployment secrets keep working.
//
// # Configuration Structure
//
// Server settings:
//
//	CR_HOST="0.0.0.0"
//	CR_PORT="8080"
//	CR_HEALTH_PORT="9090"
//	CR_READ_TIMEOUT="15s"
//	CR_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	CR_DATABASE_URL="postgres://localhost/coinrader"  # or sqlite://clicks.db
//	CR_DATABASE_REPLICA_URLS="postgres://replica1/coinrader"
//	CR_DATABASE_MAX_CONNS="20"
//	CR_REDIS_URL="redis://localhost:6379"
//	CR_S3_ENABLED="true"
//	CR_S3_BUCKET="coinrader-content"
//	CR_DATA_DIR="data"
//
// Click tracking settings:
//
//	CR_RULES_FILE="/etc/coinrader/rules.yaml"  # optional, hot-reloaded
//	CR_GA_MEASUREMENT_ID="G-XXXXXXX"
//	CR_GA_API_SECRET="..."
//	CR_GEOIP_DB="/var/lib/geoip/GeoLite2-Country.mmdb"
//	CR_STATS_TOKEN="..."  # empty disables the stats endpoints
//	CR_RATE_LIMIT_PER_MINUTE="300"
//	CR_RATE_LIMIT_DISTRIBUTED="false"
//
// Market pipeline settings (original names):
//
//	BASE_URL="https://coinrader.net"
//	SITE_URL="https://coinrader.net/"
//	CG_DEMO_KEY="..."
//	MIN_GAINERS_24H_VOLUME_JPY="500000000"
//	SHARE_DIR="share"
//	USE_SHARE_URL_IN_POST="1"
//	WEEK_DAYS="7"
//
// Observability settings:
//
//	CR_LOG_LEVEL="info"  # debug, info, warn, error
//	CR_METRICS_ENABLED="true"
//	CR_OTEL_ENABLED="false"
//	CR_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/ga: Uses GA4 configuration
//   - pkg/observability: Uses observability configuration
package config
