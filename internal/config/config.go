package config

import (
	"encoding/json"
	"os"

	"kiwoom-signal-monitor-go/internal/models"
)

// Defaults applied when the config file omits a field. The 60s refresh
// interval matches the backend's Kiwoom rate budget (20 requests/minute).
const (
	DefaultRefreshIntervalSec = 60
	DefaultRequestTimeoutSec  = 10
	DefaultSellFeeRate        = 0.0035  // 0.35%, simulated-account commission
	DefaultTaxRate            = 0.00557 // 0.557% transaction tax
)

// LoadConfig reads and parses the JSON config file, filling in defaults for
// omitted fields.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	config := &models.Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	applyDefaults(config)

	// backend_url may still come from the environment; the caller validates
	// the merged result.
	return config, nil
}

// Default returns a config usable without a file, for the -config-less case.
// The backend URL must still come from the environment.
func Default() *models.Config {
	config := &models.Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *models.Config) {
	if config.RefreshIntervalSec <= 0 {
		config.RefreshIntervalSec = DefaultRefreshIntervalSec
	}
	if config.RequestTimeoutSec <= 0 {
		config.RequestTimeoutSec = DefaultRequestTimeoutSec
	}
	if config.SellFeeRate <= 0 {
		config.SellFeeRate = DefaultSellFeeRate
	}
	if config.TaxRate <= 0 {
		config.TaxRate = DefaultTaxRate
	}
	if config.LogConfig.Level == "" {
		config.LogConfig.Level = "info"
	}
	if config.LogConfig.Output == "" {
		config.LogConfig.Output = "console"
	}
}
