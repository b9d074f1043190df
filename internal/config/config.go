package config

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config holds every tunable of the finder. It is built once at start-up and
// passed by value (or read-only pointer) into each component.
type Config struct {
	LogLevel  string `toml:"log_level" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" default:"console" validate:"oneof=console json"`

	Paths     PathsConfig     `toml:"paths"`
	Market    MarketConfig    `toml:"market"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Premium   PremiumConfig   `toml:"premium"`
	Sanitizer SanitizerConfig `toml:"sanitizer"`
	Report    ReportConfig    `toml:"report"`
}

// PathsConfig locates the on-disk inputs and outputs.
type PathsConfig struct {
	DBPath          string `toml:"db_path" default:"data/cs2_skins.db" validate:"required"`
	PriceFeedPath   string `toml:"price_feed_path" default:"data/price.json"`
	OverridesPath   string `toml:"overrides_path" default:"data/manual_overrides.json"`
	ModelParamsPath string `toml:"model_params_path" default:"data/model_params.json"`
	ReportDir       string `toml:"report_dir" default:"reports" validate:"required"`
}

// MarketConfig covers currency conversion, selling fees and the remote feeds.
type MarketConfig struct {
	CurrencyRate   float64 `toml:"currency_rate" default:"0.1439" validate:"gt=0"`
	NetFeeFactor   float64 `toml:"net_fee_factor" default:"0.95" validate:"gt=0,lte=1"`
	FeedURL        string  `toml:"feed_url"`
	CatalogURL     string  `toml:"catalog_url" default:"https://raw.githubusercontent.com/ByMykel/CSGO-API/main/public/api/en/skins.json"`
	UserAgent      string  `toml:"user_agent" default:"tradeup-finder/1.0"`
	TimeoutSeconds int     `toml:"timeout_seconds" default:"30" validate:"gt=0"`

	// HistoryRetentionDays prunes price history after each update; 0 keeps all.
	HistoryRetentionDays int `toml:"history_retention_days" default:"0" validate:"gte=0"`
}

// ScannerConfig drives the trade-up search.
type ScannerConfig struct {
	MinROI              float64  `toml:"min_roi" default:"10"`
	MinProfit           float64  `toml:"min_profit" default:"0.5"`
	MinInputAdjFloat    float64  `toml:"min_input_adj_float" default:"0.05" validate:"gte=0,lte=1"`
	MinNeededAdj        float64  `toml:"min_needed_adj" default:"0.001" validate:"gte=0,lte=1"`
	MinOutputPrice      float64  `toml:"min_output_price" default:"0.5" validate:"gte=0"`
	MaxOutputPrice      float64  `toml:"max_output_price" default:"2000" validate:"gtfield=MinOutputPrice"`
	EnableStatTrak      bool     `toml:"enable_stattrak" default:"true"`
	FillerPoolSize      int      `toml:"filler_pool_size" default:"50" validate:"gt=0"`
	MaxInputRarity      int      `toml:"max_input_rarity" default:"5" validate:"gte=1,lte=6"`
	ExcludedCollections []string `toml:"excluded_collections" default:"[\"Limited Edition\"]"`
	MaxResults          int      `toml:"max_results" default:"0" validate:"gte=0"`
	Workers             int      `toml:"workers" default:"4" validate:"gte=1,lte=64"`
}

// PremiumConfig shapes the near-boundary overpay heuristic.
type PremiumConfig struct {
	Deadzone     float64 `toml:"deadzone" default:"0.20" validate:"gte=0,lt=1"`
	BSDeadzone   float64 `toml:"bs_deadzone" default:"0.0" validate:"gte=0,lt=1"`
	PenaltyRatio float64 `toml:"penalty_ratio" default:"0.8" validate:"gte=0,lte=1"`
}

// SanitizerConfig controls the fair-value estimators and anomaly rules.
type SanitizerConfig struct {
	AnomalyThreshold   float64 `toml:"anomaly_threshold" default:"5.0" validate:"gt=0"`
	InversionRatio     float64 `toml:"inversion_ratio" default:"1.5" validate:"gt=0"`
	ScarcityExponent   float64 `toml:"scarcity_exponent" default:"1.0"`
	MinSamplesForStats int     `toml:"min_samples_for_stats" default:"3" validate:"gte=1"`
	OutlierSigma       float64 `toml:"outlier_sigma" default:"2.5" validate:"gte=0"`
	CollectionWeight   float64 `toml:"collection_weight" default:"0.6" validate:"gte=0,lte=1"`
	RatioRule          bool    `toml:"ratio_rule" default:"true"`
	InversionRule      bool    `toml:"inversion_rule" default:"true"`
}

// ReportConfig names the report file and the optional object-store upload.
type ReportConfig struct {
	FileName string   `toml:"file_name" default:"mix_results.json" validate:"required"`
	S3       S3Config `toml:"s3"`
}

// S3Config points at an S3-compatible bucket used to archive reports.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region" default:"us-east-1"`
	Bucket         string `toml:"bucket" validate:"required_if=Enabled true"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Prefix         string `toml:"prefix" default:"reports/"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Default returns a Config populated from the struct-tag defaults.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	return cfg
}

var validate = validator.New()

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
