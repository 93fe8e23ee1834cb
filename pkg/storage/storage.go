package storage

import "time"

// Config for the storage backends used by the collector and the poster.
type Config struct {
	// Database (click events and rollups)
	DatabaseURL     string
	ReplicaURLs     []string
	MaxConns        int
	MinConns        int
	ConnTimeout     time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Redis (market cache, distributed rate limits, poster locks)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// S3 (published share pages and post archives)
	S3Enabled      bool
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Local content root (market snapshots, share pages, generated posts)
	DataDir string

	// Cache config
	CacheEnabled    bool
	CacheTTL        map[string]time.Duration
	CacheMaxEntries int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxConns:        20,
		MinConns:        2,
		ConnTimeout:     10 * time.Second,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		S3Region:        "ap-northeast-1",
		DataDir:         "data",
		CacheEnabled:    true,
		CacheTTL: map[string]time.Duration{
			"trending":  10 * time.Minute,
			"markets":   5 * time.Minute,
			"global":    10 * time.Minute,
			"fgi":       1 * time.Hour,
			"btc_chart": 30 * time.Minute,
		},
		CacheMaxEntries: 256,
	}
}

// TTLFor returns the cache TTL for a data kind, falling back to a
// conservative default when the kind is not configured.
func (c Config) TTLFor(kind string) time.Duration {
	if ttl, ok := c.CacheTTL[kind]; ok {
		return ttl
	}
	return 5 * time.Minute
}
