package model

import "time"

// Config is the complete venuescope configuration
type Config struct {
	OpenAlex OpenAlexConfig `yaml:"openalex" mapstructure:"openalex"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Trust    TrustConfig    `yaml:"trust" mapstructure:"trust"`
	Explain  ExplainConfig  `yaml:"explain" mapstructure:"explain"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OpenAlexConfig configures the bibliographic graph client
type OpenAlexConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Mailto         string        `yaml:"mailto" mapstructure:"mailto"` // Polite pool contact
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int           `yaml:"burst" mapstructure:"burst"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy      string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy     string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy        string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`

	// Consecutive catalog failures that open the circuit, and how long it stays open
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// SearchConfig configures the search orchestrator
type SearchConfig struct {
	MaxResults       int           `yaml:"max_results" mapstructure:"max_results"`             // Venues returned and verified
	CatalogLimit     int           `yaml:"catalog_limit" mapstructure:"catalog_limit"`         // Candidates fetched from the catalog
	SimilarWorks     int           `yaml:"similar_works" mapstructure:"similar_works"`         // Top-K works for the signature
	SignatureTopics  int           `yaml:"signature_topics" mapstructure:"signature_topics"`   // Max topic labels in a signature
	AbstractPrefix   int           `yaml:"abstract_prefix" mapstructure:"abstract_prefix"`     // Abstract runes sent to the lookup
	SignatureTimeout time.Duration `yaml:"signature_timeout" mapstructure:"signature_timeout"` // Soft failure on expiry
	CatalogTimeout   time.Duration `yaml:"catalog_timeout" mapstructure:"catalog_timeout"`     // Hard failure on expiry
}

// ScoringConfig holds the relevance weights and category thresholds
type ScoringConfig struct {
	TopicWeight        float64 `yaml:"topic_weight" mapstructure:"topic_weight"`
	AuthorityWeight    float64 `yaml:"authority_weight" mapstructure:"authority_weight"`
	OpenAccessBonus    float64 `yaml:"open_access_bonus" mapstructure:"open_access_bonus"`
	WorksScale         float64 `yaml:"works_scale" mapstructure:"works_scale"`
	HIndexScale        float64 `yaml:"h_index_scale" mapstructure:"h_index_scale"`
	TopTierHIndex      int     `yaml:"top_tier_h_index" mapstructure:"top_tier_h_index"`
	BroadAudienceWorks int     `yaml:"broad_audience_works" mapstructure:"broad_audience_works"`
	EmergingWorks      int     `yaml:"emerging_works" mapstructure:"emerging_works"`
	EmergingCitedness  float64 `yaml:"emerging_citedness" mapstructure:"emerging_citedness"`
	MinRelevanceScore  float64 `yaml:"min_relevance_score" mapstructure:"min_relevance_score"`
}

// TrustConfig configures the trust verifier and its sources
type TrustConfig struct {
	Workers          int            `yaml:"workers" mapstructure:"workers"` // Max concurrent source checks per request
	SourceTimeout    time.Duration  `yaml:"source_timeout" mapstructure:"source_timeout"`
	VerdictTTL       time.Duration  `yaml:"verdict_ttl" mapstructure:"verdict_ttl"`
	AllowListFile    string         `yaml:"allow_list_file,omitempty" mapstructure:"allow_list_file"`
	DenyListFile     string         `yaml:"deny_list_file,omitempty" mapstructure:"deny_list_file"`
	SuspiciousTLDs   []string       `yaml:"suspicious_tlds" mapstructure:"suspicious_tlds"`
	FreeHostDomains  []string       `yaml:"free_host_domains" mapstructure:"free_host_domains"`
	RemoteSources    []RemoteSource `yaml:"remote_sources,omitempty" mapstructure:"remote_sources"`
	RemoteRatePerSec float64        `yaml:"remote_rate_per_sec" mapstructure:"remote_rate_per_sec"`
	HomepageScan     bool           `yaml:"homepage_scan" mapstructure:"homepage_scan"` // Fetch and scan venue homepages
	UserAgent        string         `yaml:"user_agent" mapstructure:"user_agent"`       // Sent with homepage and robots.txt fetches
}

// RemoteSource is an HTTP authority-list service
type RemoteSource struct {
	Name       string  `yaml:"name" mapstructure:"name"`
	URL        string  `yaml:"url" mapstructure:"url"`
	APIKey     string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	RatePerSec float64 `yaml:"rate_per_sec,omitempty" mapstructure:"rate_per_sec"` // Overrides remote_rate_per_sec for this host
}

// ExplainConfig configures the explanation cache and quotas
type ExplainConfig struct {
	TTL               time.Duration `yaml:"ttl" mapstructure:"ttl"`
	AbstractPrefix    int           `yaml:"abstract_prefix" mapstructure:"abstract_prefix"` // Runes of abstract in the cache key
	GenerationTimeout time.Duration `yaml:"generation_timeout" mapstructure:"generation_timeout"`
	Timezone          string        `yaml:"timezone" mapstructure:"timezone"` // IANA zone defining "today"
	DefaultTier       string        `yaml:"default_tier" mapstructure:"default_tier"`
	Tiers             []Tier        `yaml:"tiers" mapstructure:"tiers"`
	SweepInterval     time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	MemoryFrontTTL    time.Duration `yaml:"memory_front_ttl" mapstructure:"memory_front_ttl"`
}

// FindTier returns the named tier, falling back to the default tier
func (c ExplainConfig) FindTier(name string) (Tier, bool) {
	for _, t := range c.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	for _, t := range c.Tiers {
		if t.Name == c.DefaultTier {
			return t, false
		}
	}
	return Tier{Name: c.DefaultTier, DailyLimit: 0}, false
}

// LLMConfig configures the generative explanation provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, or "" to disable
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig selects where explanation entries and quota counters live
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // memory, sqlite, redis
	Path          string `yaml:"path" mapstructure:"path"`     // sqlite database file
	RedisAddr     string `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit       int           `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per IP per window, 0 disables
	RateWindow      time.Duration `yaml:"rate_window" mapstructure:"rate_window"`
}

// LogConfig configures zerolog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OpenAlex: OpenAlexConfig{
			BaseURL:        "https://api.openalex.org",
			UserAgent:      "venuescope/0.1 (+https://github.com/ppiankov/venuescope)",
			Timeout:        15 * time.Second,
			RequestsPerSec: 8,
			Burst:          4,
			MaxRetries:     3,

			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:       20,
			CatalogLimit:     50,
			SimilarWorks:     25,
			SignatureTopics:  10,
			AbstractPrefix:   1000,
			SignatureTimeout: 8 * time.Second,
			CatalogTimeout:   12 * time.Second,
		},
		Scoring: ScoringConfig{
			TopicWeight:        10,
			AuthorityWeight:    4,
			OpenAccessBonus:    2,
			WorksScale:         5000,
			HIndexScale:        100,
			TopTierHIndex:      150,
			BroadAudienceWorks: 20000,
			EmergingWorks:      500,
			EmergingCitedness:  1.0,
			MinRelevanceScore:  0.5,
		},
		Trust: TrustConfig{
			Workers:          8,
			SourceTimeout:    4 * time.Second,
			VerdictTTL:       6 * time.Hour,
			SuspiciousTLDs:   []string{"xyz", "top", "buzz", "click", "icu", "online", "site"},
			FreeHostDomains:  []string{"blogspot.com", "wordpress.com", "weebly.com", "wixsite.com", "sites.google.com"},
			RemoteRatePerSec: 5,
			UserAgent:        "venuescope/0.1 (+https://github.com/ppiankov/venuescope)",
		},
		Explain: ExplainConfig{
			TTL:               7 * 24 * time.Hour,
			AbstractPrefix:    500,
			GenerationTimeout: 45 * time.Second,
			Timezone:          "UTC",
			DefaultTier:       "free",
			Tiers: []Tier{
				{Name: "free", DailyLimit: 5},
				{Name: "pro", DailyLimit: 50},
				{Name: "unlimited", DailyLimit: -1},
			},
			SweepInterval:  time.Hour,
			MemoryFrontTTL: 30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   30,
			MaxTokens: 400,
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   "venuescope.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
