package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"SERVICE_NAME", "ENV", "HTTP_ADDR", "LOG_LEVEL", "LOG_FILE",
	"STORE_DRIVER", "DATABASE_URL", "CART_DRIVER", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CART_TTL",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"GATEWAY_BASE_URL", "GATEWAY_KEY_ID", "GATEWAY_KEY_SECRET", "GATEWAY_TIMEOUT", "CURRENCY",
	"WEBHOOK_SECRET", "JWT_SECRET",
	"SMTP_ADDR", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"SHUTDOWN_TIMEOUT",
}

// cleanEnv blanks every key so the host environment cannot leak in, then
// applies kv pairs.
func cleanEnv(t *testing.T, kv ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	for i := 0; i+1 < len(kv); i += 2 {
		t.Setenv(kv[i], kv[i+1])
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cleanEnv(t, "WEBHOOK_SECRET", "wh", "JWT_SECRET", "jwt")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "minishop-checkout", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, CartMemory, cfg.CartDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "minishop.checkout.events", cfg.KafkaTopic)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Zero(t, cfg.RedisDB)
	assert.True(t, cfg.GatewaySandboxed())
	assert.Equal(t, []byte("wh"), cfg.WebhookSecret)
}

func TestFromEnv_Overrides(t *testing.T) {
	cleanEnv(t,
		"WEBHOOK_SECRET", "wh", "JWT_SECRET", "jwt",
		"STORE_DRIVER", "SQLite", "DATABASE_URL", "file:checkout.db",
		"CART_DRIVER", "redis", "REDIS_DB", "3", "CART_TTL", "2h",
		"KAFKA_BROKERS", " k1:9092, ,k2:9092 ",
		"GATEWAY_KEY_ID", "rzp_live", "GATEWAY_KEY_SECRET", "secret", "GATEWAY_TIMEOUT", "soon",
		"CURRENCY", "usd",
	)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, CartRedis, cfg.CartDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout, "unparsable duration keeps the default")
	assert.Equal(t, "USD", cfg.Currency)
	assert.False(t, cfg.GatewaySandboxed())
}

func TestFromEnv_ReportsEveryProblem(t *testing.T) {
	cleanEnv(t,
		"STORE_DRIVER", "postgres",
		"CART_DRIVER", "memcached",
		"GATEWAY_KEY_ID", "rzp_live",
		"SMTP_ADDR", "mail:587",
		"CURRENCY", "RUPEE",
	)

	_, err := FromEnv()
	require.Error(t, err)

	for _, want := range []string{
		"WEBHOOK_SECRET",
		"JWT_SECRET",
		"DATABASE_URL",
		"CART_DRIVER",
		"GATEWAY_KEY_SECRET",
		"SMTP_FROM",
		"CURRENCY",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestFromEnv_UnknownStoreDriver(t *testing.T) {
	cleanEnv(t, "WEBHOOK_SECRET", "wh", "JWT_SECRET", "jwt", "STORE_DRIVER", "mongo")

	_, err := FromEnv()
	assert.ErrorContains(t, err, `STORE_DRIVER "mongo"`)
}

func TestHelpers(t *testing.T) {
	cleanEnv(t, "REDIS_DB", "x", "SHUTDOWN_TIMEOUT", "3s")

	assert.Equal(t, 7, EnvIntDefault("REDIS_DB", 7))
	assert.Equal(t, 3*time.Second, EnvDurationDefault("SHUTDOWN_TIMEOUT", time.Second))
	assert.Equal(t, "fallback", EnvDefault("ENV", "fallback"))
	assert.Nil(t, CSV(""))
	assert.NoError(t, MustNonEmpty("x", "X"))
	assert.EqualError(t, MustNonEmpty("", "X"), "missing required env X")
}
