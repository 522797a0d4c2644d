package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 10, c.Window.Size)
	assert.Equal(t, 500*time.Millisecond, c.Upstream.Timeout.Duration)
	assert.Equal(t, `http://20.244.56.144/test`, c.Upstream.BaseURL)
	assert.False(t, c.Events.Enabled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), `averager.toml`)
	err := os.WriteFile(path, []byte(`
[window]
size = 5
dedup-batch = true

[upstream]
timeout = "250ms"
token = "abc"

[events]
enabled = true
bootstrap-servers = ["localhost:9092"]
`), 0o600)
	require.NoError(t, err)

	c, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 5, c.Window.Size)
	assert.True(t, c.Window.DedupBatch)
	assert.Equal(t, 250*time.Millisecond, c.Upstream.Timeout.Duration)
	assert.Equal(t, `abc`, c.Upstream.Token)
	assert.Equal(t, []string{`localhost:9092`}, c.Events.BootstrapServers)
	// untouched keys keep their defaults
	assert.Equal(t, `:9876`, c.Http.Host)
	assert.Equal(t, `averager.window_updates`, c.Events.Topic)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), `missing.toml`))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), `bad.toml`)
	require.NoError(t, os.WriteFile(path, []byte("[upstream]\ntimeout = \"soon\"\n"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: `empty_host`, modify: func(c *Config) { c.Http.Host = `` }},
		{name: `zero_window`, modify: func(c *Config) { c.Window.Size = 0 }},
		{name: `empty_base_url`, modify: func(c *Config) { c.Upstream.BaseURL = `` }},
		{name: `zero_timeout`, modify: func(c *Config) { c.Upstream.Timeout = Duration{} }},
		{name: `events_without_brokers`, modify: func(c *Config) { c.Events.Enabled = true }},
		{name: `events_without_topic`, modify: func(c *Config) {
			c.Events.Enabled = true
			c.Events.Topic = ``
			c.Events.BootstrapServers = []string{`localhost:9092`}
		}},
		{name: `create_topic_without_partitions`, modify: func(c *Config) {
			c.Events.Enabled = true
			c.Events.BootstrapServers = []string{`localhost:9092`}
			c.Events.CreateTopic = true
			c.Events.Partitions = 0
		}},
		{name: `unknown_log_level`, modify: func(c *Config) { c.Log.Level = `LOUD` }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_String_MasksToken(t *testing.T) {
	c := NewConfig()
	c.Upstream.Token = `very-secret`
	out := c.String()
	assert.False(t, strings.Contains(out, `very-secret`))
	assert.True(t, strings.Contains(out, `window.size`))
}
