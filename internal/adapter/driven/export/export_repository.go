package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
)

// ExportRepositoryImpl implementa o ExportRepository.
type ExportRepositoryImpl struct {
	// DryRunDir é o diretório dos payloads de dry-run ("dry_run" por padrão).
	DryRunDir string
}

// NewExportRepository cria uma nova implementação do ExportRepository.
func NewExportRepository() repository.ExportRepository {
	return &ExportRepositoryImpl{DryRunDir: "dry_run"}
}

// --- Payloads de Dry-Run ---

// dryRunPayload é o envelope gravado em disco no lugar do POST de ingestão.
type dryRunPayload struct {
	Operation   string                 `json:"operation"`
	Service     string                 `json:"service"`
	Date        string                 `json:"date"`
	Chunk       int                    `json:"chunk"`
	TotalChunks int                    `json:"total_chunks"`
	RecordCount int                    `json:"record_count"`
	Data        []entity.BillingRecord `json:"data"`
}

// WriteDryRunPayload grava o payload que seria enviado ao destino. Batches
// múltiplos de um mesmo dia/categoria ganham o sufixo _chunkN.
func (r *ExportRepositoryImpl) WriteDryRunPayload(batch []entity.BillingRecord, operation, service, date string, chunk, totalChunks int) (string, error) {
	dir := r.DryRunDir
	if dir == "" {
		dir = "dry_run"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating dry-run directory '%s': %w", dir, err)
	}

	filename := fmt.Sprintf("%s_%s.json", date, service)
	if totalChunks > 1 {
		filename = fmt.Sprintf("%s_%s_chunk%d.json", date, service, chunk)
	}
	outputFilename := filepath.Join(dir, filename)

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating dry-run file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	payload := dryRunPayload{
		Operation:   operation,
		Service:     service,
		Date:        date,
		Chunk:       chunk,
		TotalChunks: totalChunks,
		RecordCount: len(batch),
		Data:        batch,
	}
	if err := encoder.Encode(payload); err != nil {
		return "", fmt.Errorf("error encoding dry-run payload: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// --- Funções de Exportação do Resumo da Execução ---

func (r *ExportRepositoryImpl) ExportSummaryToCSV(summary entity.RunSummary, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "csv")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{
		"Date", "Category", "Records", "Batches", "Estimated Cost", "Status", "Error",
	}
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, day := range summary.Days {
		for _, cat := range day.Categories {
			status := "ok"
			if cat.Failed {
				status = "failed"
			}
			record := []string{
				day.Date,
				string(cat.Category),
				fmt.Sprintf("%d", cat.Records),
				fmt.Sprintf("%d", cat.Batches),
				cat.EstimatedCost.StringFixed(2),
				status,
				cat.Error,
			}
			if err := writer.Write(record); err != nil {
				return "", fmt.Errorf("error writing CSV record: %w", err)
			}
		}
	}

	return filepath.Abs(outputFilename)
}

func (r *ExportRepositoryImpl) ExportSummaryToJSON(summary entity.RunSummary, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "json")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return "", fmt.Errorf("error encoding JSON data: %w", err)
	}

	return filepath.Abs(outputFilename)
}

func (r *ExportRepositoryImpl) ExportSummaryToPDF(summary entity.RunSummary, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "pdf")
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerColor := [3]int{40, 40, 40}
	headerTextColor := [3]int{255, 255, 255}
	sectionTitleColor := [3]int{0, 0, 0}
	bodyTextColor := [3]int{50, 50, 50}
	lineColor := [3]int{200, 200, 200}

	drawSectionTitle := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(sectionTitleColor[0], sectionTitleColor[1], sectionTitleColor[2])
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)

		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(4)
	}

	pdf.AddPage()

	// Cabeçalho
	title := "Usage Billing Report"
	if summary.DryRun {
		title += " (dry run)"
	}
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr(fmt.Sprintf("  %s", title)), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("  Period: %s to %s  |  Mode: %s", summary.RangeStart, summary.RangeEnd, summary.Mode)), "", 1, "L", true, 0, "")
	pdf.Ln(10)

	// Resumo geral
	drawSectionTitle("Run Summary")
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	overview := fmt.Sprintf(
		"Days processed: %d\nDays skipped (resume): %d\nTotal records: %d\nFailed categories: %d\nEstimated cost: $%s\nDuration: %s",
		len(summary.Days), summary.SkippedDays, summary.TotalRecords(),
		summary.FailedCategories(), summary.TotalEstimatedCost().StringFixed(2),
		entity.FormatDuration(summary.Duration),
	)
	pdf.MultiCell(190, 5, tr(overview), "", "L", false)
	pdf.Ln(8)

	// Detalhe por dia/categoria
	drawSectionTitle("Daily Breakdown")
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(28, 7, "Date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(62, 7, "Category", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Records", "B", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, "Batches", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Est. Cost", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Status", "B", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, day := range summary.Days {
		for _, cat := range day.Categories {
			if pdf.GetY() > 270 {
				pdf.AddPage()
			}
			status := "ok"
			if cat.Failed {
				pdf.SetTextColor(192, 0, 0)
				status = "failed"
			}
			pdf.CellFormat(28, 6, day.Date, "", 0, "L", false, 0, "")
			pdf.CellFormat(62, 6, tr(string(cat.Category)), "", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%d", cat.Records), "", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%d", cat.Batches), "", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, "$"+cat.EstimatedCost.StringFixed(2), "", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, status, "", 1, "L", false, 0, "")
			pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		}
	}

	// Rodapé
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	footerText := fmt.Sprintf("Generated by Sumo AnyCost Adapter | %s", time.Now().Format("2006-01-02"))
	pdf.CellFormat(0, 10, tr(footerText), "", 0, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(outputFilename); err != nil {
		return "", fmt.Errorf("error writing PDF file: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// --- Funções Auxiliares ---

// generateFilename cria um nome de arquivo único com timestamp e garante que o diretório exista.
func generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
	return filepath.Join(dir, filename), nil
}
