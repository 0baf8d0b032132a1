// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3000, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)

	assert.Equal(t, 10, cfg.Crew.MaxIterations)
	assert.Equal(t, 6000, cfg.Crew.ContextTokenBudget)
	assert.True(t, cfg.Crew.Verbose)
	assert.Empty(t, cfg.Crew.AgentsPath, "empty path selects the embedded definitions")

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)

	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, "https://html.duckduckgo.com/html/", cfg.Search.Endpoint)
	assert.Equal(t, 5, cfg.Search.MaxResults)

	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "tripcrew", cfg.Telemetry.ServiceName)

	assert.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  cors_allowed_origins: ["https://trips.example.com"]

crew:
  agents_path: "configs/agents.yaml"
  max_iterations: 5
  verbose: false

llm:
  provider: gemini
  model: gemini-2.0-flash
  api_key: from-yaml
  temperature: 0.2

redis:
  enabled: true
  addr: "redis.example.com:6379"
  db: 1

database:
  enabled: true
  driver: postgres
  port: 5433

log:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://trips.example.com"}, cfg.Server.CORSAllowedOrigins)

	assert.Equal(t, "configs/agents.yaml", cfg.Crew.AgentsPath)
	assert.Equal(t, 5, cfg.Crew.MaxIterations)
	assert.False(t, cfg.Crew.Verbose)
	assert.Equal(t, 6000, cfg.Crew.ContextTokenBudget, "unset fields keep defaults")

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "from-yaml", cfg.LLM.APIKey)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("TRIPCREW_SERVER_HTTP_PORT", "7777")
	t.Setenv("TRIPCREW_SERVER_API_KEYS", "k1, k2,")
	t.Setenv("TRIPCREW_CREW_CONTEXT_TOKEN_BUDGET", "1234")
	t.Setenv("TRIPCREW_CREW_TIMEOUT", "90s")
	t.Setenv("TRIPCREW_LLM_MODEL", "gpt-4o")
	t.Setenv("TRIPCREW_LLM_TEMPERATURE", "0.9")
	t.Setenv("TRIPCREW_SEARCH_ENABLED", "false")
	t.Setenv("TRIPCREW_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, 1234, cfg.Crew.ContextTokenBudget)
	assert.Equal(t, 90*time.Second, cfg.Crew.Timeout)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.9, cfg.LLM.Temperature)
	assert.False(t, cfg.Search.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
server:
  http_port: 8888
llm:
  model: yaml-model
  base_url: https://gateway.example.com/v1
`), 0o644))

	t.Setenv("TRIPCREW_SERVER_HTTP_PORT", "9999")
	t.Setenv("TRIPCREW_LLM_MODEL", "env-model")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	assert.Equal(t, "https://gateway.example.com/v1", cfg.LLM.BaseURL)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("TRIPCREW_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIPCREW_SERVER_HTTP_PORT")
}

func TestLoader_ProviderKeyFallback(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		t.Setenv("TRIPCREW_LLM_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "sk-from-env")

		cfg, err := NewLoader().Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	})

	t.Run("gemini", func(t *testing.T) {
		t.Setenv("TRIPCREW_LLM_PROVIDER", "gemini")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "google-key")

		cfg, err := NewLoader().Load()
		require.NoError(t, err)
		assert.Equal(t, "google-key", cfg.LLM.APIKey)
	})

	t.Run("explicit key wins", func(t *testing.T) {
		t.Setenv("TRIPCREW_LLM_API_KEY", "explicit")
		t.Setenv("OPENAI_API_KEY", "sk-from-env")

		cfg, err := NewLoader().Load()
		require.NoError(t, err)
		assert.Equal(t, "explicit", cfg.LLM.APIKey)
	})
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("TRIPCREW_LLM_PROVIDER", "anthropic")

	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown llm provider "anthropic"`)
}

func TestLoader_NonExistentFile(t *testing.T) {
	_, err := NewLoader().WithConfigPath("/non/existent/path/config.yaml").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "failed to read config file")

	// 未指定路径时只用默认值与环境变量
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  http_port: [invalid\n"), 0o644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid default config", modify: func(*Config) {}},
		{name: "negative HTTP port", modify: func(c *Config) { c.Server.HTTPPort = -1 }, wantErr: "invalid HTTP port"},
		{name: "HTTP port too large", modify: func(c *Config) { c.Server.HTTPPort = 70000 }, wantErr: "invalid HTTP port"},
		{name: "bad metrics port", modify: func(c *Config) { c.Server.MetricsPort = 70000 }, wantErr: "invalid metrics port"},
		{name: "unknown provider", modify: func(c *Config) { c.LLM.Provider = "bard" }, wantErr: "unknown llm provider"},
		{name: "temperature too high", modify: func(c *Config) { c.LLM.Temperature = 3 }, wantErr: "temperature"},
		{name: "negative retries", modify: func(c *Config) { c.LLM.MaxRetries = -1 }, wantErr: "max_retries"},
		{name: "zero max iterations", modify: func(c *Config) { c.Crew.MaxIterations = 0 }, wantErr: "max_iterations"},
		{name: "zero token budget", modify: func(c *Config) { c.Crew.ContextTokenBudget = 0 }, wantErr: "context_token_budget"},
		{name: "zero search results", modify: func(c *Config) { c.Search.MaxResults = 0 }, wantErr: "search.max_results"},
		{name: "search disabled ignores results", modify: func(c *Config) {
			c.Search.Enabled = false
			c.Search.MaxResults = 0
		}},
		{name: "unknown db driver", modify: func(c *Config) {
			c.Database.Enabled = true
			c.Database.Driver = "oracle"
		}, wantErr: "unknown database driver"},
		{name: "db disabled ignores driver", modify: func(c *Config) { c.Database.Driver = "oracle" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
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

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name    string
		config  DatabaseConfig
		wantDSN string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver: "postgres", Host: "localhost", Port: 5432,
				User: "user", Password: "pass", Name: "trips", SSLMode: "disable",
			},
			wantDSN: "host=localhost port=5432 user=user password=pass dbname=trips sslmode=disable",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306, User: "user", Password: "pass", Name: "trips",
			},
			wantDSN: "user:pass@tcp(db:3306)/trips?parseTime=true&multiStatements=true",
		},
		{
			name:    "sqlite",
			config:  DatabaseConfig{Driver: "sqlite", Name: "/var/lib/tripcrew.db"},
			wantDSN: "/var/lib/tripcrew.db",
		},
		{name: "unknown", config: DatabaseConfig{Driver: "unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantDSN, tt.config.DSN())
		})
	}
}
