package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9000
registry:
  initTimeout: 2s
  retryInterval: 15s
orchestrator:
  executionTimeout: 45s
  rateLimit:
    capacity: 3
    refillRate: 0.5
cache:
  maxSize: 25
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep their defaults")
	assert.Equal(t, 2*time.Second, cfg.Registry.InitTimeout)
	assert.Equal(t, 15*time.Second, cfg.Registry.RetryInterval)
	assert.Equal(t, 45*time.Second, cfg.Orchestrator.ExecutionTimeout)
	assert.Equal(t, 3, cfg.Orchestrator.RateLimit.Capacity)
	assert.InDelta(t, 0.5, cfg.Orchestrator.RateLimit.RefillRate, 1e-9)
	assert.Equal(t, 25, cfg.Cache.MaxSize)
	assert.Equal(t, DefaultRoutes(), cfg.Routes)
}

func TestLoadConfig_RoutesReplaceDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
routes:
  - name: only
    primary: ai-client
    fallbackMessage: nope
    fallbackVars:
      contact: "#platform"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "only", cfg.Routes[0].Name)
	assert.Equal(t, "nope", cfg.Routes[0].FallbackMessage)
	assert.Equal(t, map[string]string{"contact": "#platform"}, cfg.Routes[0].FallbackVars)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("server: [unterminated"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*SwitchyardConfig)
		wantErr  bool
		contains string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*SwitchyardConfig) {},
		},
		{
			name:     "zero capacity",
			mutate:   func(c *SwitchyardConfig) { c.Orchestrator.RateLimit.Capacity = 0 },
			wantErr:  true,
			contains: "orchestrator.rateLimit.capacity",
		},
		{
			name:     "unknown primary",
			mutate:   func(c *SwitchyardConfig) { c.Routes[0].Primary = "ghost" },
			wantErr:  true,
			contains: "unknown service",
		},
		{
			name: "duplicate route",
			mutate: func(c *SwitchyardConfig) {
				c.Routes = append(c.Routes, c.Routes[0])
			},
			wantErr:  true,
			contains: "duplicate route name",
		},
		{
			name:     "bad log format",
			mutate:   func(c *SwitchyardConfig) { c.Logging.Format = "xml" },
			wantErr:  true,
			contains: "logging.format",
		},
		{
			name: "max retry shorter than retry",
			mutate: func(c *SwitchyardConfig) {
				c.Registry.MaxRetryInterval = time.Second
			},
			wantErr:  true,
			contains: "registry.maxRetryInterval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)

			var verrs ValidationErrors
			assert.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.HasErrors())
		})
	}
}
