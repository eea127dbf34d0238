package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"db"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Functions struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"functions"`
	Notify struct {
		WSEndpoint string `yaml:"ws_endpoint"`
	} `yaml:"notify"`
	Bridge struct {
		TerminalEndpoint string `yaml:"terminal_endpoint"`
	} `yaml:"bridge"`
	Checkout struct {
		MerchantID            string `yaml:"merchant_id"`
		DefaultCurrency       string `yaml:"default_currency"`
		PendingTimeoutSeconds int64  `yaml:"pending_timeout_seconds"`
	} `yaml:"checkout"`
	Devices struct {
		FreshnessMinutes    int64 `yaml:"freshness_minutes"`
		PollIntervalSeconds int64 `yaml:"poll_interval_seconds"`
	} `yaml:"devices"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.Functions.BaseURL == "" {
		return nil, errors.New("functions.base_url is required")
	}
	if cfg.Checkout.MerchantID == "" {
		return nil, errors.New("checkout.merchant_id is required")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Checkout.DefaultCurrency == "" {
		cfg.Checkout.DefaultCurrency = "JMD"
	}
	if cfg.Checkout.PendingTimeoutSeconds <= 0 {
		cfg.Checkout.PendingTimeoutSeconds = 60
	}
	if cfg.Devices.FreshnessMinutes <= 0 {
		cfg.Devices.FreshnessMinutes = 5
	}
	if cfg.Devices.PollIntervalSeconds <= 0 {
		cfg.Devices.PollIntervalSeconds = 30
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		cfg.DB.MaxConns = int32(atoi64Or(int64(cfg.DB.MaxConns), v))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FUNCTIONS_BASE_URL"); v != "" {
		cfg.Functions.BaseURL = v
	}
	if v := os.Getenv("FUNCTIONS_API_KEY"); v != "" {
		cfg.Functions.APIKey = v
	}
	if v := os.Getenv("NOTIFY_WS_ENDPOINT"); v != "" {
		cfg.Notify.WSEndpoint = v
	}
	if v := os.Getenv("BRIDGE_TERMINAL_ENDPOINT"); v != "" {
		cfg.Bridge.TerminalEndpoint = v
	}
	if v := os.Getenv("CHECKOUT_MERCHANT_ID"); v != "" {
		cfg.Checkout.MerchantID = v
	}
	if v := os.Getenv("CHECKOUT_DEFAULT_CURRENCY"); v != "" {
		cfg.Checkout.DefaultCurrency = v
	}
	if v := os.Getenv("CHECKOUT_PENDING_TIMEOUT_SECONDS"); v != "" {
		cfg.Checkout.PendingTimeoutSeconds = atoi64Or(cfg.Checkout.PendingTimeoutSeconds, v)
	}
	if v := os.Getenv("DEVICES_FRESHNESS_MINUTES"); v != "" {
		cfg.Devices.FreshnessMinutes = atoi64Or(cfg.Devices.FreshnessMinutes, v)
	}
	if v := os.Getenv("DEVICES_POLL_INTERVAL_SECONDS"); v != "" {
		cfg.Devices.PollIntervalSeconds = atoi64Or(cfg.Devices.PollIntervalSeconds, v)
	}
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
