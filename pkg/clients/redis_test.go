package clients

import (
	"testing"
	"time"

	"github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(&cfg.RedisCfg{
		Addr:        "localhost:6379",
		User:        "app",
		Password:    "secret",
		DB:          2,
		MaxRetries:  3,
		DialTimeout: time.Second,
		Timeout:     200 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, redisClientName, opts.ClientName)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 200*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.WriteTimeout)
	assert.True(t, opts.ContextTimeoutEnabled)
}

func TestRedisOptions_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *cfg.RedisCfg
	}{
		{name: "nil", cfg: nil},
		{name: "empty addr", cfg: &cfg.RedisCfg{}},
		{name: "negative db", cfg: &cfg.RedisCfg{Addr: "localhost:6379", DB: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := redisOptions(tt.cfg)
			assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	c, err := NewRedisClient(&cfg.RedisCfg{Addr: "localhost:6379"})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "localhost:6379", c.Client.Options().Addr)
}
