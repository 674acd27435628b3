package prometheus

import "github.com/kelseyhightower/envconfig"

// Config controls the /metrics endpoint.
type Config struct {
	Enabled bool   `envconfig:"PROMETHEUS_ENABLED" default:"true"`
	Path    string `envconfig:"PROMETHEUS_PATH" default:"/metrics"`
}

// LoadConfig loads Prometheus configuration from SPLITR_PROMETHEUS_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("splitr", &cfg)
	return cfg, err
}
