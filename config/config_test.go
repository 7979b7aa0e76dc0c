package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "BROKER", "REDIS_ADDR", "CART_STRICT_MERGE", "LOCK_WAIT_SECONDS", "SEED_SAMPLE_DATA"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, StoreDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, BrokerNone, cfg.Broker.Kind)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.Business.StrictMerge)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, 5*time.Second, cfg.Business.LockWait)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("BROKER", "rabbitmq")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CART_STRICT_MERGE", "true")
	t.Setenv("LOCK_WAIT_SECONDS", "2")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("ADMIN_TOKEN", "s3cret")

	cfg := Load()
	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, BrokerRabbitMQ, cfg.Broker.Kind)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.KafkaBrokers)
	assert.True(t, cfg.Business.StrictMerge)
	assert.Equal(t, 2*time.Second, cfg.Business.LockWait)
	assert.Zero(t, cfg.Redis.DB)
	assert.Equal(t, "s3cret", cfg.Business.AdminToken)
}
