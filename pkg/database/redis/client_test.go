package redis

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/aquarium/pkg/logger"
)

func TestConfigValidate(t *testing.T) {
	node := &NodeConfig{Host: "localhost", Port: 6379}
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{"nil", nil, ErrNilConfig},
		{"no mode", &Config{}, ErrInvalidConfig},
		{"two modes", &Config{Standalone: node, Master: node}, ErrInvalidConfig},
		{"standalone", &Config{Standalone: node}, nil},
		{"empty cluster", &Config{Cluster: &ClusterConfig{}}, ErrInvalidConfig},
		{"bad balance", &Config{Master: node, Slaves: []NodeConfig{*node}, SlaveLoadBalance: "lru"}, ErrInvalidSlaveLoadBalance},
		{"round robin", &Config{Master: node, Slaves: []NodeConfig{*node}, SlaveLoadBalance: "round_robin"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSlaveSelection(t *testing.T) {
	node := NodeConfig{Host: "localhost", Port: 6379}
	c, err := NewClient(&Config{
		Master:           &node,
		Slaves:           []NodeConfig{node, node},
		SlaveLoadBalance: "round_robin",
	}, logger.NewNoop())
	require.NoError(t, err)
	defer c.Close()

	first := c.getSlave()
	second := c.getSlave()
	assert.NotSame(t, first, second)
	assert.Same(t, first, c.getSlave())
}

// newIntegrationClient 需要设置 AQUARIUM_TEST_REDIS_ADDR=host:port
func newIntegrationClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("AQUARIUM_TEST_REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("AQUARIUM_TEST_REDIS_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := NewClient(&Config{
		Standalone: &NodeConfig{Host: host, Port: port},
		Pool:       DefaultPoolConfig(),
	}, logger.NewNoop())
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestObjectRoundTripIntegration(t *testing.T) {
	c := newIntegrationClient(t)
	ctx := context.Background()
	key := "aquarium:test:" + strconv.FormatInt(time.Now().UnixNano(), 10)

	type fish struct {
		Name   string  `json:"name"`
		Hunger float64 `json:"hunger"`
	}

	_, err := GetObject[fish](ctx, c, key)
	assert.ErrorIs(t, err, ErrNil)

	require.NoError(t, SetObject(ctx, c, key, fish{Name: "nemo", Hunger: 12.5}, time.Minute))
	got, err := GetObject[fish](ctx, c, key)
	require.NoError(t, err)
	assert.Equal(t, fish{Name: "nemo", Hunger: 12.5}, *got)

	ttl, err := c.TTL(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	n, err := c.Del(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
