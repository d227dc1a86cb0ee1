package types

import (
	"fmt"
	"time"
)

// Config representa a configuração completa do adaptador. É construída uma
// única vez na inicialização (env + arquivo opcional + flags) e passada aos
// componentes; não existe estado global.
type Config struct {
	// Sumo Logic (origem)
	SumoAccessKey  string `json:"-" yaml:"-" toml:"-"`
	SumoSecretKey  string `json:"-" yaml:"-" toml:"-"`
	SumoOrgID      string `json:"sumo_org_id" yaml:"sumo_org_id" toml:"sumo_org_id"`
	SumoDeployment string `json:"sumo_deployment" yaml:"sumo_deployment" toml:"sumo_deployment"`

	// CloudZero (destino)
	CZAuthKey  string `json:"-" yaml:"-" toml:"-"`
	CZStreamID string `json:"cz_stream_connection_id" yaml:"cz_stream_connection_id" toml:"cz_stream_connection_id"`
	CZURL      string `json:"cz_url" yaml:"cz_url" toml:"cz_url"`

	// Taxas de crédito por categoria e conversão para moeda.
	Rates         RateConfig `json:"rates" yaml:"rates" toml:"rates"`
	CostPerCredit float64    `json:"cost_per_credit" yaml:"cost_per_credit" toml:"cost_per_credit"`
	Currency      string     `json:"currency" yaml:"currency" toml:"currency"`

	// Janela de consulta do modo padrão, em horas.
	QueryTimeHours float64 `json:"query_time_hours" yaml:"query_time_hours" toml:"query_time_hours"`

	// Checkpoint: bucket S3 (serverless) ou diretório local.
	CheckpointS3Bucket string `json:"checkpoint_s3_bucket" yaml:"checkpoint_s3_bucket" toml:"checkpoint_s3_bucket"`
	CheckpointDir      string `json:"checkpoint_dir" yaml:"checkpoint_dir" toml:"checkpoint_dir"`

	ContinueOnError bool   `json:"continue_on_error" yaml:"continue_on_error" toml:"continue_on_error"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// RateConfig holds the per-category credit rates. All rates must be positive.
type RateConfig struct {
	LogContinuous     float64 `json:"log_continuous" yaml:"log_continuous" toml:"log_continuous"`
	LogFrequent       float64 `json:"log_frequent" yaml:"log_frequent" toml:"log_frequent"`
	LogInfrequent     float64 `json:"log_infrequent" yaml:"log_infrequent" toml:"log_infrequent"`
	LogInfrequentScan float64 `json:"log_infrequent_scan" yaml:"log_infrequent_scan" toml:"log_infrequent_scan"`
	MetricsDatapoints float64 `json:"metrics" yaml:"metrics" toml:"metrics"`
	TraceSpansIngest  float64 `json:"tracing" yaml:"tracing" toml:"tracing"`
}

// Validate confere os invariantes de configuração que não dependem de rede.
func (c *Config) Validate() error {
	if c.SumoAccessKey == "" {
		return fmt.Errorf("SUMO_ACCESS_KEY not set")
	}
	if c.SumoSecretKey == "" {
		return fmt.Errorf("SUMO_SECRET_KEY not set")
	}
	if c.SumoOrgID == "" {
		return fmt.Errorf("SUMO_ORG_ID not set")
	}
	if c.SumoDeployment == "" {
		return fmt.Errorf("SUMO_DEPLOYMENT not set")
	}
	if c.CZAuthKey == "" {
		return fmt.Errorf("CZ_AUTH_KEY not set")
	}
	if c.CZStreamID == "" {
		return fmt.Errorf("CZ_ANYCOST_STREAM_CONNECTION_ID not set")
	}
	if c.CostPerCredit <= 0 {
		return fmt.Errorf("cost_per_credit must be a positive decimal, got %v", c.CostPerCredit)
	}
	if c.QueryTimeHours <= 0 {
		return fmt.Errorf("query_time_hours must be positive, got %v", c.QueryTimeHours)
	}
	return c.Rates.Validate()
}

// Validate rejeita taxas não-positivas.
func (r *RateConfig) Validate() error {
	rates := map[string]float64{
		"log_continuous":      r.LogContinuous,
		"log_frequent":        r.LogFrequent,
		"log_infrequent":      r.LogInfrequent,
		"log_infrequent_scan": r.LogInfrequentScan,
		"metrics":             r.MetricsDatapoints,
		"tracing":             r.TraceSpansIngest,
	}
	for name, rate := range rates {
		if rate <= 0 {
			return fmt.Errorf("credit rate %s must be a positive decimal, got %v", name, rate)
		}
	}
	return nil
}

// QueryWindow devolve a duração da janela do modo padrão.
func (c *Config) QueryWindow() time.Duration {
	return time.Duration(c.QueryTimeHours * float64(time.Hour))
}
