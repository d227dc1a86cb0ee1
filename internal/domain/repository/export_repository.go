package repository

import (
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

// ExportRepository grava artefatos locais: payloads de dry-run e relatórios
// de resumo da execução.
type ExportRepository interface {
	// WriteDryRunPayload persiste o payload que seria enviado ao destino,
	// um arquivo por batch.
	WriteDryRunPayload(batch []entity.BillingRecord, operation, service, date string, chunk, totalChunks int) (string, error)

	ExportSummaryToCSV(summary entity.RunSummary, filename, outputDir string) (string, error)
	ExportSummaryToJSON(summary entity.RunSummary, filename, outputDir string) (string, error)
	ExportSummaryToPDF(summary entity.RunSummary, filename, outputDir string) (string, error)
}
