package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "complyhub/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	AdminToken    string
	LogLevel      string
	LogFormat     string

	Redis RedisConfig
	Kafka KafkaConfig

	TestSchedulerInterval time.Duration
	StatsCacheTTL         time.Duration
	CatalogImportFile     string
}

// RedisConfig configures the statistics cache connection.
// An empty URL disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event stream. No brokers means audit
// events stay in memory.
type KafkaConfig struct {
	Brokers          []string
	AuditTopic       string
	TopicPartitions  int32
	TopicReplication int16
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:              envOr("COMPLYHUB_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSigningKey:     os.Getenv("JWT_SIGNING_KEY"),
		AdminToken:        os.Getenv("ADMIN_API_TOKEN"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
		CatalogImportFile: os.Getenv("CATALOG_IMPORT_FILE"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:          platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:       envOr("KAFKA_AUDIT_TOPIC", "complyhub.audit"),
			TopicPartitions:  3,
			TopicReplication: 1,
		},
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	var err error
	if cfg.TestSchedulerInterval, err = durationOr("TEST_SCHEDULER_INTERVAL", time.Hour); err != nil {
		return Server{}, err
	}
	if cfg.StatsCacheTTL, err = durationOr("STATS_CACHE_TTL", 5*time.Minute); err != nil {
		return Server{}, err
	}
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Server{}, fmt.Errorf("invalid REDIS_POOL_SIZE %q", v)
		}
		cfg.Redis.PoolSize = n
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// durationOr parses a Go duration; zero disables the feature it controls.
func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}
