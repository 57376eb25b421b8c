package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// defaultDataDir returns ~/Documents/my-writing-style, falling back to a
// relative path if the home directory cannot be resolved (§6).
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./my-writing-style"
	}
	return filepath.Join(home, "Documents", "my-writing-style")
}

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Filter     FilterConfig     `yaml:"filter" mapstructure:"filter"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Embed      EmbedConfig      `yaml:"embed" mapstructure:"embed"`
	Cluster    ClusterConfig    `yaml:"cluster" mapstructure:"cluster"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin" mapstructure:"linkedin"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Fetcher    FetcherConfig    `yaml:"fetcher" mapstructure:"fetcher"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the single-user, file-based data directory that holds
// every artefact the pipeline reads and writes (§3, §6).
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AnthropicConfig holds Anthropic API settings, used for the optional
// non-interactive per-cluster analysis fan-out (§11.7).
type AnthropicConfig struct {
	Key                 string `yaml:"key" mapstructure:"key"`
	Model               string `yaml:"model" mapstructure:"model"`
	MaxBatchSize        int    `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	SmallBatchThreshold int    `yaml:"small_batch_threshold" mapstructure:"small_batch_threshold"`
}

// OpenRouterConfig holds the OpenAI-compatible client settings used by the
// Validator's external-LLM reply-generation backend (§4.9, §11.7).
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing, including the batch discount
// and prompt-cache multipliers (§4.6).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// FilterConfig tunes the quality-score thresholds applied by EmailFilter
// (§4.2, E1).
type FilterConfig struct {
	MinWordCount        int     `yaml:"min_word_count" mapstructure:"min_word_count"`
	QualityThreshold    float64 `yaml:"quality_threshold" mapstructure:"quality_threshold"`
	LengthWeight        float64 `yaml:"length_weight" mapstructure:"length_weight"`
	OriginalityWeight   float64 `yaml:"originality_weight" mapstructure:"originality_weight"`
	VocabularyWeight    float64 `yaml:"vocabulary_weight" mapstructure:"vocabulary_weight"`
	BoilerplateMaxRatio float64 `yaml:"boilerplate_max_ratio" mapstructure:"boilerplate_max_ratio"`
	BroadcastThreshold  int     `yaml:"broadcast_threshold" mapstructure:"broadcast_threshold"`
}

// EnrichConfig tunes the heuristics EmailEnricher uses to classify
// recipient, audience, and seniority (§4.3, E2).
type EnrichConfig struct {
	SmallGroupMaxRecipients int      `yaml:"small_group_max_recipients" mapstructure:"small_group_max_recipients"`
	TeamMaxRecipients       int      `yaml:"team_max_recipients" mapstructure:"team_max_recipients"`
	InternalDomains         []string `yaml:"internal_domains" mapstructure:"internal_domains"`
	ExecutiveTitleMarkers   []string `yaml:"executive_title_markers" mapstructure:"executive_title_markers"`
	ReportTitleMarkers      []string `yaml:"report_title_markers" mapstructure:"report_title_markers"`
}

// EmbedConfig selects and tunes the embedding backend (§4.4).
type EmbedConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "feature_hash" or "chromem"
	ModelID string `yaml:"model_id" mapstructure:"model_id"`
}

// ClusterConfig tunes the density-based and partitional clustering
// algorithms (§4.5, E3).
type ClusterConfig struct {
	Algorithm        string  `yaml:"algorithm" mapstructure:"algorithm"` // "density" or "partitional"
	Seed             int64   `yaml:"seed" mapstructure:"seed"`
	DensityEpsilon   float64 `yaml:"density_epsilon" mapstructure:"density_epsilon"`
	DensityMinPoints int     `yaml:"density_min_points" mapstructure:"density_min_points"`
	PartitionalK     int     `yaml:"partitional_k" mapstructure:"partitional_k"`
	MaxNoiseRatio    float64 `yaml:"max_noise_ratio" mapstructure:"max_noise_ratio"`
}

// BatchConfig configures the caller-LLM batch round-trip contract (§4.6,
// §4.7, E4).
type BatchConfig struct {
	MaxMembersPerCluster int     `yaml:"max_members_per_cluster" mapstructure:"max_members_per_cluster"`
	CoverageTarget       float64 `yaml:"coverage_target" mapstructure:"coverage_target"`
}

// LinkedInConfig tunes the LinkedIn post unifier (§4.8, E5).
type LinkedInConfig struct {
	MinEngagementWeight   float64 `yaml:"min_engagement_weight" mapstructure:"min_engagement_weight"`
	RepostEditorialRatio  float64 `yaml:"repost_editorial_ratio" mapstructure:"repost_editorial_ratio"`
	PositiveExampleCount  int     `yaml:"positive_example_count" mapstructure:"positive_example_count"`
}

// ValidationConfig tunes the held-out validation composite score: canonical
// weights are 0.5 tone, 0.2 greeting, 0.2 closing, 0.1 contraction-rate
// match (§4.9, E6).
type ValidationConfig struct {
	HoldoutFraction     float64 `yaml:"holdout_fraction" mapstructure:"holdout_fraction"`
	ToneWeight          float64 `yaml:"tone_weight" mapstructure:"tone_weight"`
	GreetingWeight      float64 `yaml:"greeting_weight" mapstructure:"greeting_weight"`
	ClosingWeight       float64 `yaml:"closing_weight" mapstructure:"closing_weight"`
	ContractionWeight   float64 `yaml:"contraction_weight" mapstructure:"contraction_weight"`
	AcceptThreshold     float64 `yaml:"accept_threshold" mapstructure:"accept_threshold"`
	CoverageRetryTarget float64 `yaml:"coverage_retry_target" mapstructure:"coverage_retry_target"`
}

// FetcherConfig configures the subprocess MCP fetchers for Gmail and
// LinkedIn data acquisition (§5, §11.9).
type FetcherConfig struct {
	GmailCommand       []string `yaml:"gmail_command" mapstructure:"gmail_command"`
	LinkedInCommand    []string `yaml:"linkedin_command" mapstructure:"linkedin_command"`
	TimeoutSecs        int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	LinkedInFanoutMax  int      `yaml:"linkedin_fanout_max" mapstructure:"linkedin_fanout_max"`
	LinkedInScrapeRate float64  `yaml:"linkedin_scrape_rate" mapstructure:"linkedin_scrape_rate"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks required configuration fields based on run mode.
// Supported modes: "preprocess", "analysis", "linkedin", "validate".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Data.Dir == "" {
		errs = append(errs, "data.dir is required")
	}

	switch mode {
	case "preprocess":
		// EmailFilter/EmailEnricher/Embedder run entirely offline; no
		// external credentials required.
	case "analysis":
		// BatchPreparer/BatchIngester exchange JSON through the data
		// directory; no external credentials required.
	case "linkedin":
		// LinkedInUnifier runs entirely offline against fetched posts.
	case "validate":
		if c.OpenRouter.Key == "" && c.Anthropic.Key == "" {
			errs = append(errs, "either openrouter.key or anthropic.key is required for validation's external-LLM backend")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Cluster.MaxNoiseRatio < 0 || c.Cluster.MaxNoiseRatio > 1 {
		errs = append(errs, "cluster.max_noise_ratio must be between 0.0 and 1.0")
	}
	if c.Batch.CoverageTarget < 0 || c.Batch.CoverageTarget > 1 {
		errs = append(errs, "batch.coverage_target must be between 0.0 and 1.0")
	}
	if c.Filter.QualityThreshold < 0 || c.Filter.QualityThreshold > 1 {
		errs = append(errs, "filter.quality_threshold must be between 0.0 and 1.0")
	}
	if c.Validation.HoldoutFraction <= 0 || c.Validation.HoldoutFraction >= 1 {
		errs = append(errs, "validation.holdout_fraction must be between 0.0 and 1.0, exclusive")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WRITING_STYLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// WRITING_STYLE_DATA overrides data.dir directly, per the flat env var
	// name the pipeline documents (rather than the nested WRITING_STYLE_DATA_DIR
	// AutomaticEnv would otherwise derive).
	_ = v.BindEnv("data.dir", "WRITING_STYLE_DATA")

	// Defaults
	v.SetDefault("data.dir", defaultDataDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_batch_size", 100)
	v.SetDefault("anthropic.small_batch_threshold", 3)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "anthropic/claude-sonnet-4.5")

	v.SetDefault("filter.min_word_count", 20)
	v.SetDefault("filter.quality_threshold", 0.35)
	v.SetDefault("filter.length_weight", 0.3)
	v.SetDefault("filter.originality_weight", 0.4)
	v.SetDefault("filter.vocabulary_weight", 0.3)
	v.SetDefault("filter.boilerplate_max_ratio", 0.6)
	v.SetDefault("filter.broadcast_threshold", 20)

	v.SetDefault("enrich.small_group_max_recipients", 3)
	v.SetDefault("enrich.team_max_recipients", 12)
	v.SetDefault("enrich.internal_domains", []string{})
	v.SetDefault("enrich.executive_title_markers", []string{"ceo", "cto", "cfo", "coo", "founder", "president", "vp", "vice president", "chief"})
	v.SetDefault("enrich.report_title_markers", []string{"intern", "associate", "analyst", "coordinator", "assistant"})

	v.SetDefault("embed.backend", "feature_hash")
	v.SetDefault("embed.model_id", "feature-hash-384")

	v.SetDefault("cluster.algorithm", "density")
	v.SetDefault("cluster.seed", 42)
	v.SetDefault("cluster.density_epsilon", 0.35)
	v.SetDefault("cluster.density_min_points", 4)
	v.SetDefault("cluster.partitional_k", 8)
	v.SetDefault("cluster.max_noise_ratio", 0.3)

	v.SetDefault("batch.max_members_per_cluster", 25)
	v.SetDefault("batch.coverage_target", 0.8)

	v.SetDefault("linkedin.min_engagement_weight", 0.1)
	v.SetDefault("linkedin.repost_editorial_ratio", 0.3)
	v.SetDefault("linkedin.positive_example_count", 5)

	v.SetDefault("validation.holdout_fraction", 0.2)
	v.SetDefault("validation.tone_weight", 0.5)
	v.SetDefault("validation.greeting_weight", 0.2)
	v.SetDefault("validation.closing_weight", 0.2)
	v.SetDefault("validation.contraction_weight", 0.1)
	v.SetDefault("validation.accept_threshold", 0.7)
	v.SetDefault("validation.coverage_retry_target", 0.8)

	v.SetDefault("fetcher.timeout_secs", 60)
	v.SetDefault("fetcher.linkedin_fanout_max", 5)
	v.SetDefault("fetcher.linkedin_scrape_rate", 2.0)

	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.input", 1.00)
	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.output", 5.00)
	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.batch_discount", 0.5)
	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.cache_write_mul", 1.25)
	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.cache_read_mul", 0.1)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.input", 3.00)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.output", 15.00)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.batch_discount", 0.5)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.cache_write_mul", 1.25)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.cache_read_mul", 0.1)
	v.SetDefault("pricing.anthropic.claude-opus-4-6.input", 15.00)
	v.SetDefault("pricing.anthropic.claude-opus-4-6.output", 75.00)
	v.SetDefault("pricing.anthropic.claude-opus-4-6.batch_discount", 0.5)
	v.SetDefault("pricing.anthropic.claude-opus-4-6.cache_write_mul", 1.25)
	v.SetDefault("pricing.anthropic.claude-opus-4-6.cache_read_mul", 0.1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
