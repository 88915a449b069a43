package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/config"
	"preflight/internal/di"
)

func testContainer(t *testing.T) *di.Container {
	t.Helper()
	c, err := di.InitializeContainer(&config.Config{
		Environment: config.Development,
		Logging:     config.LoggingConfig{Level: "error", Format: "console"},
	})
	require.NoError(t, err)
	return c
}

func TestRevalidate(t *testing.T) {
	c := testContainer(t)

	t.Run("valid reload", func(t *testing.T) {
		next := &config.Config{
			Environment: config.Development,
			Resources: config.Resources{
				Cache: &config.CacheConfig{Addr: "localhost:6379"},
			},
		}
		require.NoError(t, revalidate(c, next))
	})

	t.Run("invalid resources are all reported", func(t *testing.T) {
		next := &config.Config{
			Environment: config.Development,
			Resources: config.Resources{
				Cache:   &config.CacheConfig{Addr: "not-an-addr"},
				Network: &config.NetworkConfig{Port: 99999},
			},
		}
		err := revalidate(c, next)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache")
		assert.Contains(t, err.Error(), "network")
	})

	t.Run("broken dependency graph is reported", func(t *testing.T) {
		next := &config.Config{
			Environment: config.Development,
			Resources: config.Resources{
				Cache: &config.CacheConfig{Addr: "localhost:6379", DependsOn: []string{"ghost"}},
			},
		}
		err := revalidate(c, next)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"ghost"`)
	})
}
