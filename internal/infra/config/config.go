package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	StorageMode        string

	PMSBaseURL     string
	PMSQuoteURL    string
	PMSTimeout     time.Duration
	RetryBackoff   []time.Duration
	SnapshotTTL    time.Duration
	QuoteTokenTTL  time.Duration
	DefaultNightly int64

	CleaningFeeCents  int64
	PetFeeCents       int64
	TaxPercent        float64
	ChannelFeePercent float64
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staybook"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		PMSBaseURL:       getEnv("PMS_BASE_URL", "http://localhost:8000"),
		PMSQuoteURL:      getEnv("PMS_QUOTE_URL", ""),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	pmsTimeout, err := parseDurationEnv("PMS_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.PMSTimeout = pmsTimeout

	snapshotTTL, err := parseDurationEnv("SNAPSHOT_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SnapshotTTL = snapshotTTL

	quoteTTL, err := parseDurationEnv("QUOTE_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.QuoteTokenTTL = quoteTTL

	retryStr := getEnv("PMS_RETRY_BACKOFF", "250ms,1s,3s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PMS_RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	defaultNightly, err := parseInt64Env("DEFAULT_NIGHTLY_CENTS", 9900)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultNightly = defaultNightly

	cleaning, err := parseInt64Env("CLEANING_FEE_CENTS", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.CleaningFeeCents = cleaning

	petFee, err := parseInt64Env("PET_FEE_CENTS", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.PetFeeCents = petFee

	tax, err := parseFloatEnv("TAX_PERCENT", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.TaxPercent = tax

	channel, err := parseFloatEnv("CHANNEL_FEE_PERCENT", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.ChannelFeePercent = channel

	if cfg.PMSQuoteURL == "" {
		cfg.PMSQuoteURL = strings.TrimSuffix(cfg.PMSBaseURL, "/") + "/quotes"
	}
	if cfg.StorageMode == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseInt64Env(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	var v int64
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return v, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	var v float64
	if _, err := fmt.Sscanf(raw, "%g", &v); err != nil {
		return 0, fmt.Errorf("invalid %s number: %q", key, raw)
	}
	return v, nil
}
