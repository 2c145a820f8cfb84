package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-level configuration assembled from the environment.
type Config struct {
	HTTP        HTTPConfig
	Redis       RedisConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Sweep       SweepConfig
	TicketBoard TicketBoardConfig
	LogLevel    string
	// RulesPath points at the YAML rules file. Empty means DefaultRules.
	RulesPath string
}

// HTTPConfig configures the ops listener (/healthz, /metrics).
type HTTPConfig struct {
	Addr string
}

// RedisConfig configures the operational store connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the analytic store and inspection source.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// KafkaConfig configures trigger intake and the status topic.
type KafkaConfig struct {
	Brokers         []string
	ConsumerGroup   string
	InspectionTopic string
	ArchiveTopic    string
	StatusTopic     string
	// DeadLetterTopic receives trigger records that kept failing after
	// MaxAttempts. Empty disables dead-lettering.
	DeadLetterTopic string
	// MaxAttempts bounds in-process redelivery of a failing trigger record.
	MaxAttempts int
}

// SweepConfig configures the periodic overdue sweep.
type SweepConfig struct {
	Interval    time.Duration
	Concurrency int
}

// TicketBoardConfig configures the card integration. Empty BaseURL disables it.
type TicketBoardConfig struct {
	BaseURL string
	APIKey  string
	Token   string
	Timeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr: envString("HTTP_ADDR", ":8080"),
		},
		Redis: RedisConfig{
			URL:          envString("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          envString("DATABASE_URL", "postgres://localhost/propcheck?sslmode=disable"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Brokers:         envList("KAFKA_BROKERS", []string{"localhost:9092"}),
			ConsumerGroup:   envString("KAFKA_CONSUMER_GROUP", "propcheck-deficiency"),
			InspectionTopic: envString("KAFKA_INSPECTION_TOPIC", "inspection-writes"),
			ArchiveTopic:    envString("KAFKA_ARCHIVE_TOPIC", "deficient-item-archive-requests"),
			StatusTopic:     envString("KAFKA_STATUS_TOPIC", "deficient-item-status"),
			DeadLetterTopic: envString("KAFKA_DEAD_LETTER_TOPIC", "deficient-item-triggers-dlq"),
			MaxAttempts:     envInt("TRIGGER_MAX_ATTEMPTS", 3),
		},
		Sweep: SweepConfig{
			Interval:    envDuration("SWEEP_INTERVAL", 15*time.Minute),
			Concurrency: envInt("SWEEP_CONCURRENCY", 4),
		},
		TicketBoard: TicketBoardConfig{
			BaseURL: os.Getenv("TICKETBOARD_URL"),
			APIKey:  os.Getenv("TICKETBOARD_API_KEY"),
			Token:   os.Getenv("TICKETBOARD_TOKEN"),
			Timeout: envDuration("TICKETBOARD_TIMEOUT", 10*time.Second),
		},
		LogLevel:  envString("LOG_LEVEL", "info"),
		RulesPath: os.Getenv("RULES_PATH"),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
