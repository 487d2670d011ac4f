package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5, cfg.Elections.TxMaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.Elections.TxBackoff)
	assert.Equal(t, 720*time.Hour, cfg.Elections.EndedLookback)
	assert.False(t, cfg.Redis.Enabled)
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_DRIVER", "MEMORY")
	v.Set("ELECTION_TX_MAX_RETRIES", -3)
	v.Set("ELECTION_TALLY_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := fromViper(v)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 0, cfg.Elections.TxMaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.Elections.TallyCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)
	assert.NoError(t, cfg.Validate())

	cfg.StorageDriver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "STORAGE_DRIVER")

	cfg = fromViper(v)
	cfg.Env = EnvProduction
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.JWT.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.StorageDriver = StorageDriverMemory
	assert.Error(t, cfg.Validate())

	cfg = fromViper(v)
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}
