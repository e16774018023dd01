package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/venuescope/internal/model"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, setDefaults(v, model.DefaultConfig()))
	bindEnv(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.OpenAlex.Timeout, cfg.OpenAlex.Timeout)
	assert.Equal(t, def.Search.MaxResults, cfg.Search.MaxResults)
	assert.Equal(t, def.Explain.TTL, cfg.Explain.TTL)
	assert.Equal(t, def.Explain.Tiers, cfg.Explain.Tiers)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("VENUESCOPE_SEARCH_MAX_RESULTS", "7")
	t.Setenv("VENUESCOPE_OPENALEX_TIMEOUT", "3s")
	t.Setenv("VENUESCOPE_LLM_PROVIDER", "openai")
	t.Setenv("VENUESCOPE_LLM_API_KEY", "sk-env")
	t.Setenv("VENUESCOPE_STORE_DRIVER", "sqlite")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, 3*time.Second, cfg.OpenAlex.Timeout)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
explain:
  tiers:
    - name: free
      daily_limit: 2
scoring:
  top_tier_h_index: 90
`), 0o644))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []model.Tier{{Name: "free", DailyLimit: 2}}, cfg.Explain.Tiers)
	assert.Equal(t, 90, cfg.Scoring.TopTierHIndex)
	assert.Equal(t, model.DefaultConfig().Scoring.TopicWeight, cfg.Scoring.TopicWeight)
}

func TestLoadConfigRejectsBadStore(t *testing.T) {
	v := newTestViper(t)
	v.Set("store.driver", "mongo")
	_, err := loadConfig(v)
	assert.ErrorContains(t, err, "unknown store driver")

	v.Set("store.driver", "redis")
	_, err = loadConfig(v)
	assert.ErrorContains(t, err, "redis_addr")
}

func TestApplyEnvFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "openai"
	applyEnvFallbacks(cfg)
	assert.Equal(t, "sk-fallback", cfg.LLM.APIKey)

	cfg.LLM.APIKey = "sk-explicit"
	applyEnvFallbacks(cfg)
	assert.Equal(t, "sk-explicit", cfg.LLM.APIKey)

	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	applyEnvFallbacks(cfg)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestRedactConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"
	cfg.Store.RedisPassword = "hunter2"
	cfg.Trust.RemoteSources = []model.RemoteSource{
		{Name: "listing", URL: "https://list.example", APIKey: "k"},
		{Name: "open", URL: "https://open.example"},
	}

	out := redactConfig(*cfg)
	assert.Equal(t, redacted, out.LLM.APIKey)
	assert.Equal(t, redacted, out.Store.RedisPassword)
	assert.Equal(t, redacted, out.Trust.RemoteSources[0].APIKey)
	assert.Empty(t, out.Trust.RemoteSources[1].APIKey)

	// the original is untouched
	assert.Equal(t, "k", cfg.Trust.RemoteSources[0].APIKey)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".venuescope", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "VENUESCOPE_<SECTION>_<KEY>")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, model.DefaultConfig().Server.Addr, cfg.Server.Addr)

	assert.ErrorContains(t, writeDefaultConfig(path), "already exists")
}
