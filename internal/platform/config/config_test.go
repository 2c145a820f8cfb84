package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 15*time.Minute, cfg.Sweep.Interval)
		assert.Equal(t, "deficient-item-triggers-dlq", cfg.Kafka.DeadLetterTopic)
		assert.Empty(t, cfg.TicketBoard.BaseURL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
		t.Setenv("SWEEP_INTERVAL", "1m")
		t.Setenv("SWEEP_CONCURRENCY", "8")
		t.Setenv("REDIS_POOL_SIZE", "not-a-number")
		t.Setenv("KAFKA_DEAD_LETTER_TOPIC", "")

		cfg := FromEnv()
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, time.Minute, cfg.Sweep.Interval)
		assert.Equal(t, 8, cfg.Sweep.Concurrency)
		assert.Equal(t, 10, cfg.Redis.PoolSize, "unparsable values fall back")
		assert.Equal(t, "deficient-item-triggers-dlq", cfg.Kafka.DeadLetterTopic, "empty values fall back")
	})
}
