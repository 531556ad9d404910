package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.True(t, cfg.Postgres.RunMigrationsOnStart)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http,dispatcher", cfg.Services)
	assert.Equal(t, 5, cfg.Dispatch.BatchSize)
	assert.Equal(t, 5, cfg.Dispatch.Concurrency)
	assert.Equal(t, 64, cfg.Dispatch.QueueSize)
	assert.Equal(t, 10*time.Minute, cfg.Dispatch.StuckAfter)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
}

func TestAppConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DISPATCH_BATCH_SIZE", "10")
	t.Setenv("DISPATCH_RATE_PER_SECOND", "2.5")
	t.Setenv("SERVICES", "dispatcher")
	t.Setenv("PROVIDER_BASE_URL", " https://provider.example.com/send ")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 10, cfg.Dispatch.BatchSize)
	assert.InDelta(t, 2.5, cfg.Dispatch.RatePerSecond, 1e-9)
	assert.Equal(t, "dispatcher", cfg.Services)
	assert.Equal(t, "https://provider.example.com/send", cfg.Provider.BaseURL)
}

func TestDispatchConfigSanitizeGuardrails(t *testing.T) {
	cfg := DispatchConfig{
		BatchSize:     0,
		Concurrency:   -1,
		QueueSize:     0,
		RatePerSecond: -5,
		StuckAfter:    -time.Minute,
	}
	cfg.Sanitize()

	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Zero(t, cfg.RatePerSecond)
	assert.Equal(t, 10*time.Minute, cfg.StuckAfter)
}

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []ServiceMode
		wantErr bool
	}{
		{name: "both", input: "http,dispatcher", want: []ServiceMode{ServiceModeHTTP, ServiceModeDispatcher}},
		{name: "http only", input: "http", want: []ServiceMode{ServiceModeHTTP}},
		{name: "whitespace tolerated", input: " http , dispatcher ", want: []ServiceMode{ServiceModeHTTP, ServiceModeDispatcher}},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "http,mailer", wantErr: true},
		{name: "only separators", input: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, mode := range tt.want {
				assert.True(t, got[mode], "expected %s enabled", mode)
			}
			assert.Len(t, got, len(tt.want))
		})
	}
}

func TestMetricsConfigSanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	cfg.Sanitize()
	assert.False(t, cfg.IsEnabled())

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125"}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
}
