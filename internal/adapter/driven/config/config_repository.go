package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

// Taxas padrão de créditos por categoria, em créditos por GB (logs/traces)
// ou por 1k datapoints (métricas).
const (
	defaultLogContinuousRate     = 20.0
	defaultLogFrequentRate       = 9.0
	defaultLogInfrequentRate     = 0.4
	defaultLogInfrequentScanRate = 0.016
	defaultMetricsRate           = 3.0
	defaultTracingRate           = 14.0
	defaultCostPerCredit         = 0.15
	defaultQueryTimeHours        = 24.0
)

// ConfigRepositoryImpl implementa o ConfigRepository.
type ConfigRepositoryImpl struct{}

// NewConfigRepository cria uma nova implementação do ConfigRepository.
func NewConfigRepository() repository.ConfigRepository {
	return &ConfigRepositoryImpl{}
}

// LoadFromEnv monta a configuração base a partir das variáveis de ambiente.
// A ausência de credenciais é detectada depois, em Config.Validate, para que
// um arquivo de configuração ainda possa completá-las.
func (r *ConfigRepositoryImpl) LoadFromEnv() (*types.Config, error) {
	cfg := &types.Config{
		SumoAccessKey:      os.Getenv("SUMO_ACCESS_KEY"),
		SumoSecretKey:      os.Getenv("SUMO_SECRET_KEY"),
		SumoOrgID:          os.Getenv("SUMO_ORG_ID"),
		SumoDeployment:     os.Getenv("SUMO_DEPLOYMENT"),
		CZAuthKey:          os.Getenv("CZ_AUTH_KEY"),
		CZStreamID:         os.Getenv("CZ_ANYCOST_STREAM_CONNECTION_ID"),
		CZURL:              envString("CZ_URL", "https://api.cloudzero.com"),
		Currency:           envString("CURRENCY", "USD"),
		CheckpointS3Bucket: os.Getenv("CHECKPOINT_S3_BUCKET"),
		CheckpointDir:      envString("CHECKPOINT_DIR", "."),
		LogLevel:           envString("LOGGING_LEVEL", "INFO"),
	}

	var err error
	if cfg.Rates.LogContinuous, err = envFloat("LOG_CONTINUOUS_CREDIT_RATE", defaultLogContinuousRate); err != nil {
		return nil, err
	}
	if cfg.Rates.LogFrequent, err = envFloat("LOG_FREQUENT_CREDIT_RATE", defaultLogFrequentRate); err != nil {
		return nil, err
	}
	if cfg.Rates.LogInfrequent, err = envFloat("LOG_INFREQUENT_CREDIT_RATE", defaultLogInfrequentRate); err != nil {
		return nil, err
	}
	if cfg.Rates.LogInfrequentScan, err = envFloat("LOG_INFREQUENT_SCAN_CREDIT_RATE", defaultLogInfrequentScanRate); err != nil {
		return nil, err
	}
	if cfg.Rates.MetricsDatapoints, err = envFloat("METRICS_CREDIT_RATE", defaultMetricsRate); err != nil {
		return nil, err
	}
	if cfg.Rates.TraceSpansIngest, err = envFloat("TRACING_CREDIT_RATE", defaultTracingRate); err != nil {
		return nil, err
	}
	if cfg.CostPerCredit, err = envFloat("COST_PER_CREDIT", defaultCostPerCredit); err != nil {
		return nil, err
	}

	// QUERY_TIME_DAYS é o atalho legado; QUERY_TIME_HOURS tem precedência.
	days, err := envFloat("QUERY_TIME_DAYS", 1)
	if err != nil {
		return nil, err
	}
	if cfg.QueryTimeHours, err = envFloat("QUERY_TIME_HOURS", days*24); err != nil {
		return nil, err
	}

	cfg.ContinueOnError, err = envBool("CONTINUE_ON_ERROR", true)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigFile carrega um arquivo de configuração TOML, YAML ou JSON por
// cima da configuração base.
func (r *ConfigRepositoryImpl) LoadConfigFile(filePath string, base *types.Config) (*types.Config, error) {
	fileExtension := strings.ToLower(filepath.Ext(filePath))

	// Verifica se o arquivo existe
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := *base

	switch fileExtension {
	case ".toml":
		if err := toml.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", fileExtension)
	}

	return &config, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid value for %s: %q", key, v)
}
