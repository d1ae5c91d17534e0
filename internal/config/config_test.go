package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, TariffBackendMemory, cfg.Tariff.Backend)
	assert.Equal(t, time.Second, cfg.Tariff.Refresh)
	assert.Equal(t, time.Second, cfg.Meter.TickInterval)
	assert.Equal(t, 0.01, cfg.Meter.FilterMinKm)
	assert.Equal(t, 1.0, cfg.Meter.FilterMaxKm)
	assert.Equal(t, "in", cfg.Maps.Country)
	assert.Equal(t, 10*time.Second, cfg.Maps.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Maps.AutocompleteDebounce)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("METER_HTTP_ADDR", ":9090")
	t.Setenv("METER_TARIFF_BACKEND", "redis")
	t.Setenv("METER_REDIS_ADDR", "localhost:6379")
	t.Setenv("METER_TARIFF_REFRESH", "5s")
	t.Setenv("METER_FILTER_MIN_KM", "0.001")
	t.Setenv("METER_AUTOCOMPLETE_DEBOUNCE", "150ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, TariffBackendRedis, cfg.Tariff.Backend)
	assert.Equal(t, 5*time.Second, cfg.Tariff.Refresh)
	assert.Equal(t, 0.001, cfg.Meter.FilterMinKm)
	assert.Equal(t, 150*time.Millisecond, cfg.Maps.AutocompleteDebounce)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"redis backend without address", map[string]string{"METER_TARIFF_BACKEND": "redis"}},
		{"postgres backend without dsn", map[string]string{"METER_TARIFF_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"METER_TARIFF_BACKEND": "etcd"}},
		{"inverted bounds", map[string]string{"METER_FILTER_MIN_KM": "2", "METER_FILTER_MAX_KM": "1"}},
		{"zero tick", map[string]string{"METER_TICK_INTERVAL": "0s"}},
		{"tick longer than a second", map[string]string{"METER_TICK_INTERVAL": "5s"}},
		{"tick shorter than a second", map[string]string{"METER_TICK_INTERVAL": "500ms"}},
		{"bad timezone", map[string]string{"METER_TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
