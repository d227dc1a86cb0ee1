package main

import (
	"fmt"
	"os"

	"github.com/finops-adapters/sumo-anycost-go/internal/adapter/driven/config"
	"github.com/finops-adapters/sumo-anycost-go/internal/adapter/driven/export"
	"github.com/finops-adapters/sumo-anycost-go/internal/adapter/driving/cli"
	"github.com/finops-adapters/sumo-anycost-go/pkg/console"
	"github.com/finops-adapters/sumo-anycost-go/pkg/version"
)

func main() {
	// Inicializa os repositórios
	configRepo := config.NewConfigRepository()
	exportRepo := export.NewExportRepository()
	consoleImpl := console.NewConsole()

	// Inicializa o aplicativo CLI
	app := cli.NewCLIApp(version.Version, configRepo, exportRepo, consoleImpl)

	// Executa o aplicativo
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
