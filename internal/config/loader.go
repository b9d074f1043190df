package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment override key.
const EnvPrefix = "TRADEUP_"

// Load builds the configuration from defaults, the optional TOML file at path,
// a .env file in the working directory and TRADEUP_* environment variables,
// in that order. A missing file is not an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.LogFormat, "LOG_FORMAT")

	// ── Paths ──
	setStr(&cfg.Paths.DBPath, "DB_PATH")
	setStr(&cfg.Paths.PriceFeedPath, "PRICE_FEED_PATH")
	setStr(&cfg.Paths.OverridesPath, "OVERRIDES_PATH")
	setStr(&cfg.Paths.ModelParamsPath, "MODEL_PARAMS_PATH")
	setStr(&cfg.Paths.ReportDir, "REPORT_DIR")

	// ── Market ──
	setFloat64(&cfg.Market.CurrencyRate, "CURRENCY_RATE")
	setFloat64(&cfg.Market.NetFeeFactor, "NET_FEE_FACTOR")
	setStr(&cfg.Market.FeedURL, "FEED_URL")
	setStr(&cfg.Market.CatalogURL, "CATALOG_URL")
	setStr(&cfg.Market.UserAgent, "USER_AGENT")
	setInt(&cfg.Market.TimeoutSeconds, "HTTP_TIMEOUT_SECONDS")
	setInt(&cfg.Market.HistoryRetentionDays, "HISTORY_RETENTION_DAYS")

	// ── Scanner ──
	setFloat64(&cfg.Scanner.MinROI, "MIN_ROI")
	setFloat64(&cfg.Scanner.MinProfit, "MIN_PROFIT")
	setFloat64(&cfg.Scanner.MinInputAdjFloat, "MIN_INPUT_ADJ_FLOAT")
	setFloat64(&cfg.Scanner.MinNeededAdj, "MIN_NEEDED_ADJ")
	setFloat64(&cfg.Scanner.MinOutputPrice, "MIN_OUTPUT_PRICE")
	setFloat64(&cfg.Scanner.MaxOutputPrice, "MAX_OUTPUT_PRICE")
	setBool(&cfg.Scanner.EnableStatTrak, "ENABLE_STATTRAK")
	setInt(&cfg.Scanner.Workers, "WORKERS")
	setInt(&cfg.Scanner.MaxResults, "MAX_RESULTS")
	setInt(&cfg.Scanner.FillerPoolSize, "FILLER_POOL_SIZE")
	setInt(&cfg.Scanner.MaxInputRarity, "MAX_INPUT_RARITY")
	setStringSlice(&cfg.Scanner.ExcludedCollections, "EXCLUDED_COLLECTIONS")

	// ── Premium ──
	setFloat64(&cfg.Premium.Deadzone, "PREMIUM_DEADZONE")
	setFloat64(&cfg.Premium.BSDeadzone, "PREMIUM_BS_DEADZONE")
	setFloat64(&cfg.Premium.PenaltyRatio, "PREMIUM_PENALTY_RATIO")

	// ── Sanitizer ──
	setFloat64(&cfg.Sanitizer.AnomalyThreshold, "ANOMALY_THRESHOLD")
	setFloat64(&cfg.Sanitizer.InversionRatio, "INVERSION_RATIO")
	setFloat64(&cfg.Sanitizer.ScarcityExponent, "SCARCITY_EXPONENT")
	setInt(&cfg.Sanitizer.MinSamplesForStats, "MIN_SAMPLES_FOR_STATS")
	setFloat64(&cfg.Sanitizer.CollectionWeight, "COLLECTION_WEIGHT")
	setFloat64(&cfg.Sanitizer.OutlierSigma, "OUTLIER_SIGMA")
	setBool(&cfg.Sanitizer.RatioRule, "RATIO_RULE")
	setBool(&cfg.Sanitizer.InversionRule, "INVERSION_RULE")

	// ── Report ──
	setStr(&cfg.Report.FileName, "REPORT_FILE_NAME")

	// ── S3 ──
	setBool(&cfg.Report.S3.Enabled, "S3_ENABLED")
	setStr(&cfg.Report.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.Report.S3.Region, "S3_REGION")
	setStr(&cfg.Report.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.Report.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.Report.S3.SecretKey, "S3_SECRET_KEY")
	setStr(&cfg.Report.S3.Prefix, "S3_PREFIX")
	setBool(&cfg.Report.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		*dst = cleaned
	}
}
