package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")

	cfg := Default()

	assert.Equal(t, DefaultTTL, cfg.TTL)
	assert.Equal(t, ProviderAWS, cfg.Provider)
	assert.Equal(t, DefaultRegion, cfg.DefaultNamespace)
	assert.Equal(t, DefaultDataDir(), cfg.DataDir)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultNamespaceFromEnvironment(t *testing.T) {
	tests := []struct {
		name          string
		region        string
		defaultRegion string
		expected      string
	}{
		{"AWS_REGION wins", "eu-west-1", "ap-south-1", "eu-west-1"},
		{"AWS_DEFAULT_REGION", "", "ap-south-1", "ap-south-1"},
		{"fallback", "", "", DefaultRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AWS_REGION", tt.region)
			t.Setenv("AWS_DEFAULT_REGION", tt.defaultRegion)
			assert.Equal(t, tt.expected, Default().DefaultNamespace)
		})
	}
}

func TestParse(t *testing.T) {
	t.Setenv("AQ_FIXTURE", "/tmp/inventory.yaml")

	cfg, err := Parse([]byte(`
data_dir: /var/lib/aq
default_namespace: eu-central-1
ttl: 1m30s
provider: fixture
fixture: ${AQ_FIXTURE}
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/aq", cfg.DataDir)
	assert.Equal(t, "eu-central-1", cfg.DefaultNamespace)
	assert.Equal(t, 90*time.Second, cfg.TTL)
	assert.Equal(t, ProviderFixture, cfg.Provider)
	assert.Equal(t, "/tmp/inventory.yaml", cfg.FixturePath)
	assert.NoError(t, cfg.Validate())
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("default_namespace: ns\n"))
	require.NoError(t, err)

	assert.Equal(t, "ns", cfg.DefaultNamespace)
	assert.Equal(t, DefaultTTL, cfg.TTL)
	assert.Equal(t, ProviderAWS, cfg.Provider)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("ttl: [1, 2]\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ttl: 10s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, cfg.TTL)

	dir := filepath.Join(home, ".aq")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("ttl: 1h\n"), 0o644))

	cfg, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{DefaultNamespace: "us-east-1", TTL: time.Minute, Provider: ProviderAWS}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero ttl", func(c *Config) { c.TTL = 0 }, "ttl must be positive"},
		{"negative ttl", func(c *Config) { c.TTL = -time.Second }, "ttl must be positive"},
		{"bad namespace", func(c *Config) { c.DefaultNamespace = "us east" }, "default_namespace"},
		{"empty namespace", func(c *Config) { c.DefaultNamespace = "" }, "default_namespace"},
		{"unknown provider", func(c *Config) { c.Provider = "gcp" }, `unknown provider "gcp"`},
		{"fixture without path", func(c *Config) { c.Provider = ProviderFixture }, "fixture is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
