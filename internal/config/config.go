package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FailOn is the data-quality severity threshold that aborts a run.
type FailOn string

const (
	// FailOnError aborts only when at least one ERROR-severity issue exists.
	FailOnError FailOn = "ERROR"
	// FailOnWarn aborts when any issue exists, regardless of severity.
	FailOnWarn FailOn = "WARN"
	// FailOnNever always continues past data-quality issues.
	FailOnNever FailOn = "NEVER"
)

// ParseFailOn normalizes and validates a fail-on threshold. An invalid
// value is a configuration error and must be rejected before any input
// file is read.
func ParseFailOn(s string) (FailOn, error) {
	switch FailOn(strings.ToUpper(strings.TrimSpace(s))) {
	case FailOnError:
		return FailOnError, nil
	case FailOnWarn:
		return FailOnWarn, nil
	case FailOnNever:
		return FailOnNever, nil
	default:
		return "", fmt.Errorf("fail_on must be one of: ERROR, WARN, NEVER (got %q)", s)
	}
}

// Config is the immutable run configuration. It is built once at startup
// and passed into the pipeline entry point; nothing reads process-wide
// state after this.
type Config struct {
	BaseCurrency      string
	AllowedCurrencies []string
	RawDir            string
	CuratedDir        string
	ReferenceDir      string
	FailOn            FailOn

	// Optional sinks. Empty values disable them.
	Warehouse WarehouseConfig
	Bucket    string // GCS bucket for artifact uploads
}

// WarehouseConfig identifies the BigQuery destination for curated tables.
type WarehouseConfig struct {
	ProjectID string
	Dataset   string
}

// Load reads configuration from an optional file plus FINETL_* environment
// overrides and returns an immutable Config. path may be empty, in which
// case defaults and environment values apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_currency", "USD")
	v.SetDefault("allowed_currencies", []string{"USD", "TZS", "EUR"})
	v.SetDefault("raw_dir", "data/raw")
	v.SetDefault("curated_dir", "data/curated")
	v.SetDefault("reference_dir", "data/reference")
	v.SetDefault("fail_on", string(FailOnError))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	failOn, err := ParseFailOn(v.GetString("fail_on"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		BaseCurrency:      strings.ToUpper(v.GetString("base_currency")),
		AllowedCurrencies: v.GetStringSlice("allowed_currencies"),
		RawDir:            v.GetString("raw_dir"),
		CuratedDir:        v.GetString("curated_dir"),
		ReferenceDir:      v.GetString("reference_dir"),
		FailOn:            failOn,
		Warehouse: WarehouseConfig{
			ProjectID: v.GetString("warehouse.project_id"),
			Dataset:   v.GetString("warehouse.dataset"),
		},
		Bucket: v.GetString("bucket"),
	}

	for i, c := range cfg.AllowedCurrencies {
		cfg.AllowedCurrencies[i] = strings.ToUpper(c)
	}
	if !contains(cfg.AllowedCurrencies, cfg.BaseCurrency) {
		return nil, fmt.Errorf("config: base currency %s missing from allowed currencies %v",
			cfg.BaseCurrency, cfg.AllowedCurrencies)
	}

	return cfg, nil
}

func contains(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}
