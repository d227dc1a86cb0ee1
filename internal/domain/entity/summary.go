package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStats resume o processamento de uma categoria em um dia.
type CategoryStats struct {
	Category      UsageCategory   `json:"category"`
	Records       int             `json:"records"`
	Batches       int             `json:"batches"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Failed        bool            `json:"failed"`
	Error         string          `json:"error,omitempty"`
}

// DayStats agrega as estatísticas de todas as categorias de um dia.
type DayStats struct {
	Date       string          `json:"date"`
	Duration   time.Duration   `json:"duration"`
	Categories []CategoryStats `json:"categories"`
}

// Records soma os registros emitidos no dia.
func (d DayStats) Records() int {
	total := 0
	for _, c := range d.Categories {
		total += c.Records
	}
	return total
}

// Succeeded/Failed contam categorias por resultado.
func (d DayStats) Succeeded() int {
	n := 0
	for _, c := range d.Categories {
		if !c.Failed {
			n++
		}
	}
	return n
}

func (d DayStats) Failed() int {
	return len(d.Categories) - d.Succeeded()
}

// EstimatedCost soma o custo estimado do dia.
func (d DayStats) EstimatedCost() decimal.Decimal {
	total := decimal.Zero
	for _, c := range d.Categories {
		total = total.Add(c.EstimatedCost)
	}
	return total
}

// RunSummary é o resumo final de uma execução (janela única ou backfill),
// usado para exibição e exportação de relatório.
type RunSummary struct {
	Mode        string        `json:"mode"`
	DryRun      bool          `json:"dry_run"`
	RangeStart  string        `json:"range_start"`
	RangeEnd    string        `json:"range_end"`
	Duration    time.Duration `json:"duration"`
	Days        []DayStats    `json:"days"`
	SkippedDays int           `json:"skipped_days,omitempty"`
}

// TotalRecords soma os registros de todos os dias.
func (s RunSummary) TotalRecords() int {
	total := 0
	for _, d := range s.Days {
		total += d.Records()
	}
	return total
}

// TotalEstimatedCost soma o custo estimado de todos os dias.
func (s RunSummary) TotalEstimatedCost() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.Days {
		total = total.Add(d.EstimatedCost())
	}
	return total
}

// FailedCategories conta pares dia/categoria com falha.
func (s RunSummary) FailedCategories() int {
	n := 0
	for _, d := range s.Days {
		n += d.Failed()
	}
	return n
}

// FormatDuration renders a duration in the operator-friendly short form.
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%.1fm", s/60)
	default:
		hours := int(s) / 3600
		minutes := (int(s) % 3600) / 60
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}
