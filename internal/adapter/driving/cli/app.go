package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/finops-adapters/sumo-anycost-go/internal/adapter/driven/checkpoint"
	"github.com/finops-adapters/sumo-anycost-go/internal/adapter/driven/cloudzero"
	"github.com/finops-adapters/sumo-anycost-go/internal/adapter/driven/sumologic"
	"github.com/finops-adapters/sumo-anycost-go/internal/application/usecase"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
	"github.com/finops-adapters/sumo-anycost-go/pkg/version"
)

// CLIApp representa a aplicação de linha de comando.
type CLIApp struct {
	rootCmd    *cobra.Command
	configRepo repository.ConfigRepository
	exportRepo repository.ExportRepository
	console    types.ConsoleInterface
	version    string
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp(versionStr string, configRepo repository.ConfigRepository, exportRepo repository.ExportRepository, console types.ConsoleInterface) *CLIApp {
	app := &CLIApp{
		configRepo: configRepo,
		exportRepo: exportRepo,
		console:    console,
		version:    versionStr,
	}

	formattedVersion := version.FormatVersion()

	rootCmd := &cobra.Command{
		Use:     "sumo-anycost",
		Short:   "Stream Sumo Logic usage to CloudZero AnyCost",
		Long:    "Extracts Sumo Logic usage by category, converts it to CloudZero CBF billing records and streams them to an AnyCost connection. Runs a single trailing window by default; use the backfill flags to reprocess a date range.",
		Version: formattedVersion,
		RunE:    app.runCommand,
	}

	rootCmd.SetVersionTemplate(`{{printf "Sumo AnyCost adapter version: %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	rootCmd.PersistentFlags().String("start", "", "Backfill start date (YYYY-MM-DD, inclusive)")
	rootCmd.PersistentFlags().String("end", "", "Backfill end date (YYYY-MM-DD, inclusive)")
	rootCmd.PersistentFlags().Int("days", 0, "Backfill the N complete days ending yesterday")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Write payloads to the dry_run directory instead of sending them")
	rootCmd.PersistentFlags().Bool("resume", false, "Resume an interrupted backfill from its checkpoint")
	rootCmd.PersistentFlags().String("resume-from", "", "Resume skipping every day before this date (YYYY-MM-DD, implies --resume)")
	rootCmd.PersistentFlags().Bool("auto-resume", false, "Resume silently when a matching checkpoint exists")
	rootCmd.PersistentFlags().StringP("report-name", "n", "", "Specify the base name for the report file (without extension)")
	rootCmd.PersistentFlags().StringSliceP("report-type", "y", []string{"csv"}, "Specify report types: csv, json, pdf")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "Directory to save the report files (default: current directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Log errors only, suppress the banner")

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

// parseArgs converte as flags em um CLIArgs validado.
func (app *CLIApp) parseArgs() (*types.CLIArgs, error) {
	configFile, _ := app.rootCmd.Flags().GetString("config-file")
	start, _ := app.rootCmd.Flags().GetString("start")
	end, _ := app.rootCmd.Flags().GetString("end")
	days, _ := app.rootCmd.Flags().GetInt("days")
	dryRun, _ := app.rootCmd.Flags().GetBool("dry-run")
	resume, _ := app.rootCmd.Flags().GetBool("resume")
	resumeFrom, _ := app.rootCmd.Flags().GetString("resume-from")
	autoResume, _ := app.rootCmd.Flags().GetBool("auto-resume")
	reportName, _ := app.rootCmd.Flags().GetString("report-name")
	reportType, _ := app.rootCmd.Flags().GetStringSlice("report-type")
	dir, _ := app.rootCmd.Flags().GetString("dir")
	verbose, _ := app.rootCmd.Flags().GetBool("verbose")
	quiet, _ := app.rootCmd.Flags().GetBool("quiet")

	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	if days < 0 {
		return nil, fmt.Errorf("--days must be positive")
	}
	if resumeFrom != "" {
		resume = true
	}
	for _, rt := range reportType {
		switch strings.ToLower(rt) {
		case "csv", "json", "pdf":
		default:
			return nil, fmt.Errorf("unsupported report type %q: expected csv, json or pdf", rt)
		}
	}

	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = cwd
	} else {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = absDir
	}

	args := &types.CLIArgs{
		ConfigFile:    configFile,
		BackfillStart: start,
		BackfillEnd:   end,
		Days:          days,
		DryRun:        dryRun,
		Resume:        resume,
		ResumeDate:    resumeFrom,
		AutoResume:    autoResume,
		ReportName:    reportName,
		ReportType:    reportType,
		Dir:           dir,
		Verbose:       verbose,
		Quiet:         quiet,
	}

	return args, nil
}

// loadConfig monta a configuração final: env + arquivo opcional + flags.
func (app *CLIApp) loadConfig(args *types.CLIArgs) (*types.Config, error) {
	cfg, err := app.configRepo.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	if args.ConfigFile != "" {
		cfg, err = app.configRepo.LoadConfigFile(args.ConfigFile, cfg)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// configureLogging ajusta o logrus conforme flags e configuração.
func configureLogging(cfg *types.Config, args *types.CLIArgs) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	if args.Verbose {
		level = log.DebugLevel
	}
	if args.Quiet {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

// runCommand é o ponto de entrada principal para o comando CLI.
func (app *CLIApp) runCommand(cmd *cobra.Command, _ []string) error {
	cliArgs, err := app.parseArgs()
	if err != nil {
		return err
	}

	if !cliArgs.Quiet {
		displayWelcomeBanner(app.version)
		go version.CheckLatestVersion(app.version)
	}

	cfg, err := app.loadConfig(cliArgs)
	if err != nil {
		return err
	}
	configureLogging(cfg, cliArgs)

	// Ctrl-C interrompe a execução; o checkpoint do backfill preserva o
	// progresso já gravado.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := sumologic.NewClient(cfg.SumoAccessKey, cfg.SumoSecretKey, cfg.SumoDeployment)
	if err != nil {
		return err
	}

	var sink repository.IngestSink
	if cliArgs.DryRun {
		sink = cloudzero.NewDryRunSink(app.exportRepo)
	} else {
		sink = cloudzero.NewClient(cfg.CZAuthKey, cfg.CZURL, cfg.CZStreamID)
	}

	pipeline := usecase.NewPipelineUseCase(source, sink, app.exportRepo, app.console, cfg)

	if !cliArgs.BackfillRequested() {
		return pipeline.RunSingleWindow(ctx, cliArgs)
	}

	store, err := app.checkpointStore(ctx, cfg)
	if err != nil {
		return err
	}
	backfill := usecase.NewBackfillUseCase(pipeline, store, app.console, cfg)
	return backfill.Run(ctx, cliArgs)
}

// checkpointStore escolhe o backend de checkpoint: S3 quando um bucket está
// configurado, arquivo local caso contrário.
func (app *CLIApp) checkpointStore(ctx context.Context, cfg *types.Config) (repository.CheckpointStore, error) {
	if cfg.CheckpointS3Bucket != "" {
		return checkpoint.NewS3Store(ctx, cfg.CheckpointS3Bucket, "checkpoints")
	}
	return checkpoint.NewFileStore(cfg.CheckpointDir), nil
}
