package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

// PipelineUseCase executa o pipeline de extração, transformação e envio para
// uma janela única de tempo.
type PipelineUseCase struct {
	source      repository.UsageSource
	sink        repository.IngestSink
	exportRepo  repository.ExportRepository
	transformer *Transformer
	console     types.ConsoleInterface
	config      *types.Config

	// now é injetável para os testes.
	now func() time.Time
}

// NewPipelineUseCase creates a new pipeline use case.
func NewPipelineUseCase(
	source repository.UsageSource,
	sink repository.IngestSink,
	exportRepo repository.ExportRepository,
	console types.ConsoleInterface,
	config *types.Config,
) *PipelineUseCase {
	return &PipelineUseCase{
		source:      source,
		sink:        sink,
		exportRepo:  exportRepo,
		transformer: NewTransformer(config),
		console:     console,
		config:      config,
		now:         time.Now,
	}
}

// RunSingleWindow processa a janela padrão [now - query_time, now) para todas
// as categorias. Qualquer erro não recuperado aborta a execução: o modo de
// janela única roda agendado e o scheduler é quem re-tenta.
func (uc *PipelineUseCase) RunSingleWindow(ctx context.Context, args *types.CLIArgs) error {
	window := entity.TrailingWindow(uc.now(), uc.config.QueryWindow())
	started := uc.now()

	uc.console.LogInfo("Processing usage window %s", window.String())

	day := entity.DayStats{Date: window.Date()}
	for _, spec := range entity.Categories() {
		stats, err := uc.processCategory(ctx, spec, window)
		if err != nil {
			return fmt.Errorf("processing category %s: %w", spec.Name, err)
		}
		day.Categories = append(day.Categories, stats)
	}
	day.Duration = uc.now().Sub(started)

	summary := entity.RunSummary{
		Mode:       "single-window",
		DryRun:     args.DryRun,
		RangeStart: window.Date(),
		RangeEnd:   window.Date(),
		Duration:   day.Duration,
		Days:       []entity.DayStats{day},
	}
	uc.displaySummary(summary)
	uc.exportReports(summary, args)
	return nil
}

// processCategory executa fetch, normalize e send de uma categoria/janela.
// Em dry run o sink injetado grava em disco; o fluxo é o mesmo. Batches
// rejeitados individualmente não são erro fatal; o resultado carrega a
// contagem de falhas.
func (uc *PipelineUseCase) processCategory(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow) (entity.CategoryStats, error) {
	stats := entity.CategoryStats{Category: spec.Name}

	status := uc.console.Status(fmt.Sprintf("Fetching %s usage for %s", spec.Name, window.Date()))
	defer status.Stop()

	raw, err := uc.source.FetchUsage(ctx, spec, window)
	if err != nil {
		return stats, fmt.Errorf("fetching usage: %w", err)
	}

	records, skipped := uc.transformer.Normalize(spec, raw)
	if skipped > 0 {
		uc.console.LogWarning("Category %s: skipped %d malformed rows", spec.Name, skipped)
	}
	if len(records) == 0 {
		log.WithFields(log.Fields{"category": spec.Name, "window": window.String()}).
			Info("no billable usage in window")
		return stats, nil
	}

	status.Update(fmt.Sprintf("Streaming %d %s records", len(records), spec.Name))
	result, err := uc.sink.SendBillingData(ctx, spec, window, records)
	if err != nil {
		return stats, fmt.Errorf("streaming billing data: %w", err)
	}
	if result.FailedBatches > 0 {
		uc.console.LogWarning("Category %s: %d of %d batches rejected", spec.Name, result.FailedBatches, result.BatchCount)
	}

	stats.Records = result.AcceptedCount
	stats.Batches = result.BatchCount
	stats.EstimatedCost = estimateCost(records)
	return stats, nil
}

// estimateCost soma o custo dos registros para o resumo da execução.
func estimateCost(records []entity.BillingRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		cost, err := decimal.NewFromString(r.Cost)
		if err != nil {
			continue
		}
		total = total.Add(cost)
	}
	return total
}

// displaySummary imprime a tabela final da execução.
func (uc *PipelineUseCase) displaySummary(summary entity.RunSummary) {
	table := uc.console.CreateTable()
	table.AddColumn("Date")
	table.AddColumn("Category")
	table.AddColumn("Records")
	table.AddColumn("Batches")
	table.AddColumn("Est. Cost")
	table.AddColumn("Status")

	for _, day := range summary.Days {
		for _, cat := range day.Categories {
			status := "ok"
			if cat.Failed {
				status = "FAILED"
			}
			table.AddRow(day.Date, string(cat.Category), cat.Records, cat.Batches, "$"+cat.EstimatedCost.StringFixed(2), status)
		}
	}
	uc.console.Println(table.Render())

	mode := summary.Mode
	if summary.DryRun {
		mode += " (dry run)"
	}
	uc.console.LogInfo("Mode: %s | Records: %d | Estimated cost: $%s | Duration: %s",
		mode, summary.TotalRecords(), summary.TotalEstimatedCost().StringFixed(2),
		entity.FormatDuration(summary.Duration))
	if failed := summary.FailedCategories(); failed > 0 {
		uc.console.LogWarning("%d day/category pairs failed", failed)
	}
}

// exportReports exporta o resumo nos formatos pedidos, no padrão dos demais
// relatórios da ferramenta.
func (uc *PipelineUseCase) exportReports(summary entity.RunSummary, args *types.CLIArgs) {
	if args.ReportName == "" {
		return
	}
	for _, reportType := range args.ReportType {
		switch reportType {
		case "pdf":
			pdfPath, err := uc.exportRepo.ExportSummaryToPDF(summary, args.ReportName, args.Dir)
			if err != nil {
				uc.console.LogError("Failed to export report to PDF: %s", err)
			} else {
				uc.console.LogSuccess("Successfully exported report to PDF: %s", pdfPath)
			}
		case "csv":
			csvPath, err := uc.exportRepo.ExportSummaryToCSV(summary, args.ReportName, args.Dir)
			if err != nil {
				uc.console.LogError("Failed to export report to CSV: %s", err)
			} else {
				uc.console.LogSuccess("Successfully exported report to CSV: %s", csvPath)
			}
		case "json":
			jsonPath, err := uc.exportRepo.ExportSummaryToJSON(summary, args.ReportName, args.Dir)
			if err != nil {
				uc.console.LogError("Failed to export report to JSON: %s", err)
			} else {
				uc.console.LogSuccess("Successfully exported report to JSON: %s", jsonPath)
			}
		}
	}
}
