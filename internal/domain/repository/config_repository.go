package repository

import (
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

// ConfigRepository defines the interface for loading configuration.
type ConfigRepository interface {
	// LoadFromEnv monta a configuração a partir das variáveis de ambiente,
	// aplicando os defaults documentados.
	LoadFromEnv() (*types.Config, error)
	// LoadConfigFile carrega um arquivo TOML, YAML ou JSON por cima da
	// configuração base.
	LoadConfigFile(filePath string, base *types.Config) (*types.Config, error)
}
