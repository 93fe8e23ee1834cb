package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shoshosho1210/coinrader/pkg/ga"
	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/storage"
	"github.com/shoshosho1210/coinrader/pkg/track"
)

// Config holds all application configuration. The collector and the
// poster load the same struct; the poster additionally reads the
// original market env surface (BASE_URL, CG_DEMO_KEY, ...) kept for
// workflow compatibility.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Click classification configuration
	Track TrackConfig

	// GA4 Measurement Protocol configuration
	GA ga.Config

	// Enrichment configuration
	Enrich EnrichConfig

	// API surface configuration
	API APIConfig

	// Market content pipeline configuration
	Market MarketConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// TrackConfig holds click classification settings
type TrackConfig struct {
	// RulesFile is an optional YAML rules document. Empty means built-in
	// defaults. Changes are hot-reloaded via fsnotify.
	RulesFile string
}

// EnrichConfig holds click enrichment settings
type EnrichConfig struct {
	// GeoIPDB is an optional path to a MaxMind GeoIP2 country database.
	// Empty disables country enrichment.
	GeoIPDB string
}

// APIConfig holds API surface settings
type APIConfig struct {
	// StatsToken protects the analytics endpoints. Empty disables them.
	StatsToken string

	// CORSOrigins lists allowed origins for the collect endpoint.
	CORSOrigins []string

	// MaxBodyBytes caps collect payload size.
	MaxBodyBytes int64

	// Per-IP rate limit on the collect route.
	RateLimitPerMinute int
	RateLimitBurst     int

	// RateLimitDistributed switches the limiter to shared Redis counters
	// so limits hold across collector replicas.
	RateLimitDistributed bool
}

// MarketConfig holds the content pipeline settings. Key names follow the
// original publishing workflow, not the CR_ scheme.
type MarketConfig struct {
	SiteBaseURL         string  // BASE_URL
	ShareSiteURL        string  // SITE_URL
	CoinGeckoAPIKey     string  // CG_DEMO_KEY
	MinGainersVolumeJPY float64 // MIN_GAINERS_24H_VOLUME_JPY
	ShareDir            string  // SHARE_DIR
	UseShareURLInPost   bool    // USE_SHARE_URL_IN_POST
	WeekDays            int     // WEEK_DAYS
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Track:         loadTrackConfig(),
		GA:            loadGAConfig(),
		Enrich:        loadEnrichConfig(),
		API:           loadAPIConfig(),
		Market:        loadMarketConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CR_HOST", "0.0.0.0"),
		Port:            getEnv("CR_PORT", "8080"),
		ReadTimeout:     getEnvDuration("CR_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CR_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("CR_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CR_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("CR_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// Database config
	if dbURL := getEnv("CR_DATABASE_URL", ""); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if replicaURLs := getEnv("CR_DATABASE_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.ReplicaURLs = storage.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("CR_DATABASE_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("CR_DATABASE_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("CR_DATABASE_TIMEOUT", 0); timeout > 0 {
		cfg.ConnTimeout = timeout
	}

	// Redis config
	if redisURL := getEnv("CR_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("CR_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("CR_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("CR_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("CR_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// S3 config
	cfg.S3Enabled = getEnvBool("CR_S3_ENABLED", false)
	if s3Endpoint := getEnv("CR_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("CR_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("CR_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("CR_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("CR_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("CR_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	// Content root + cache config
	if dataDir := getEnv("CR_DATA_DIR", ""); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cacheEnabled := getEnv("CR_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if maxEntries := getEnvInt("CR_CACHE_MAX_ENTRIES", 0); maxEntries > 0 {
		cfg.CacheMaxEntries = maxEntries
	}

	return cfg
}

// loadTrackConfig loads click classification configuration from environment
func loadTrackConfig() TrackConfig {
	return TrackConfig{
		RulesFile: getEnv("CR_RULES_FILE", ""),
	}
}

// loadGAConfig loads GA4 configuration from environment
func loadGAConfig() ga.Config {
	cfg := ga.Config{
		MeasurementID: getEnv("CR_GA_MEASUREMENT_ID", ""),
		APISecret:     getEnv("CR_GA_API_SECRET", ""),
		Endpoint:      getEnv("CR_GA_ENDPOINT", ""),
		Timeout:       getEnvDuration("CR_GA_TIMEOUT", 0),
		QueueSize:     getEnvInt("CR_GA_QUEUE_SIZE", 0),
		Retry:         ga.DefaultRetryConfig(),
	}
	if maxAttempts := getEnvInt("CR_GA_MAX_RETRIES", 0); maxAttempts > 0 {
		cfg.Retry.MaxAttempts = maxAttempts
	}
	return cfg
}

// loadEnrichConfig loads enrichment configuration from environment
func loadEnrichConfig() EnrichConfig {
	return EnrichConfig{
		GeoIPDB: getEnv("CR_GEOIP_DB", ""),
	}
}

// loadAPIConfig loads API surface configuration from environment
func loadAPIConfig() APIConfig {
	return APIConfig{
		StatsToken:           getEnv("CR_STATS_TOKEN", ""),
		CORSOrigins:          splitList(getEnv("CR_CORS_ORIGINS", "https://coinrader.net")),
		MaxBodyBytes:         getEnvInt64("CR_MAX_BODY_BYTES", 64*1024),
		RateLimitPerMinute:   getEnvInt("CR_RATE_LIMIT_PER_MINUTE", 300),
		RateLimitBurst:       getEnvInt("CR_RATE_LIMIT_BURST", 50),
		RateLimitDistributed: getEnvBool("CR_RATE_LIMIT_DISTRIBUTED", false),
	}
}

// loadMarketConfig loads the content pipeline configuration. Defaults
// mirror the original publishing workflow.
func loadMarketConfig() MarketConfig {
	baseURL := strings.TrimRight(getEnv("BASE_URL", "https://coinrader.net"), "/")
	return MarketConfig{
		SiteBaseURL:         baseURL,
		ShareSiteURL:        getEnv("SITE_URL", baseURL+"/"),
		CoinGeckoAPIKey:     strings.TrimSpace(getEnv("CG_DEMO_KEY", "")),
		MinGainersVolumeJPY: getEnvFloat("MIN_GAINERS_24H_VOLUME_JPY", 500000000),
		ShareDir:            getEnv("SHARE_DIR", "share"),
		UseShareURLInPost:   getEnv("USE_SHARE_URL_IN_POST", "1") != "0",
		WeekDays:            getEnvInt("WEEK_DAYS", 7),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CR_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CR_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CR_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CR_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CR_OTEL_SERVICE_NAME", "coinrader-collector"),
		OTelServiceVersion: getEnv("CR_OTEL_SERVICE_VERSION", observability.Version),
		OTelInsecure:       getEnvBool("CR_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// The collect handler can hold a response for the full gate timeout;
	// the write timeout has to leave room for at least the default gate.
	// A rules file can raise the timeout, so the collector re-checks this
	// against the loaded rules at startup.
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < 2*track.DefaultCompletionTimeout {
		return fmt.Errorf("write timeout %v too small to cover held navigation responses", c.Server.WriteTimeout)
	}

	// Validate storage config
	if c.Storage.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Storage.S3Enabled {
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 publishing is enabled")
		}
	}

	// Validate API config
	if c.API.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	if c.API.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limit per minute must be positive")
	}

	// Validate market config
	if c.Market.WeekDays <= 0 {
		return fmt.Errorf("week days must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// splitList parses a comma-separated list, trimming whitespace
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
