package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name: "disabled",
			cfg:  Config{},
		},
		{
			name:        "enabled without endpoint",
			cfg:         Config{Enabled: true},
			expectError: true,
		},
		{
			name: "plaintext",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317"},
		},
		{
			name: "TLS with insecure skip verify",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317", TLSInsecure: true},
		},
		{
			name:        "TLS with missing CA certificate",
			cfg:         Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: "/nonexistent/ca.crt"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Enabled, p.Enabled())
			assert.NotNil(t, p.Tracer("test"))
			require.NoError(t, p.Start(context.Background()))
			assert.NoError(t, p.Stop(context.Background()))
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.TracingEnabled = true
	cfg.TracingEndpoint = "otel:4317"
	cfg.TracingTLSInsecure = true

	got := ConfigFrom(cfg, "1.2.3")
	assert.Equal(t, Config{
		Enabled:     true,
		Endpoint:    "otel:4317",
		TLSInsecure: true,
		Version:     "1.2.3",
	}, got)
}
