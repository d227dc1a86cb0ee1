package entity

import (
	"fmt"
	"sort"
	"time"
)

// CategoryStatus é o estado de um par dia/categoria dentro de um backfill.
type CategoryStatus string

const (
	StatusCompleted CategoryStatus = "completed"
	StatusFailed    CategoryStatus = "failed"
)

// DayCheckpoint registra o progresso de um único dia do backfill.
type DayCheckpoint struct {
	Completed  bool                             `json:"completed"`
	Attempts   int                              `json:"attempts"`
	Categories map[UsageCategory]CategoryStatus `json:"categories"`
}

// BackfillCheckpoint é o marcador de progresso persistido de um backfill.
// Pertence exclusivamente ao orquestrador; é atualizado após cada dia.
type BackfillCheckpoint struct {
	RunID       string                    `json:"run_id"`
	RangeStart  string                    `json:"range_start"`
	RangeEnd    string                    `json:"range_end"`
	StartedAt   time.Time                 `json:"started_at"`
	LastUpdated time.Time                 `json:"last_updated"`
	DryRun      bool                      `json:"dry_run"`
	Days        map[string]*DayCheckpoint `json:"days"`
}

// NewBackfillCheckpoint cria um checkpoint vazio para o intervalo dado.
func NewBackfillCheckpoint(runID string, rangeStart, rangeEnd time.Time, dryRun bool) *BackfillCheckpoint {
	return &BackfillCheckpoint{
		RunID:      runID,
		RangeStart: rangeStart.UTC().Format("2006-01-02"),
		RangeEnd:   rangeEnd.UTC().Format("2006-01-02"),
		StartedAt:  time.Now().UTC(),
		DryRun:     dryRun,
		Days:       map[string]*DayCheckpoint{},
	}
}

// Key identifica o checkpoint pelo intervalo coberto.
func (c *BackfillCheckpoint) Key() string {
	return CheckpointKey(c.RangeStart, c.RangeEnd)
}

// CheckpointKey derives the stable checkpoint identity for a date range.
func CheckpointKey(rangeStart, rangeEnd string) string {
	compact := func(date string) string {
		out := make([]byte, 0, 8)
		for i := 0; i < len(date); i++ {
			if date[i] != '-' {
				out = append(out, date[i])
			}
		}
		return string(out)
	}
	return fmt.Sprintf("backfill_state_%s_to_%s", compact(rangeStart), compact(rangeEnd))
}

// Matches verifica se o checkpoint corresponde ao intervalo solicitado.
func (c *BackfillCheckpoint) Matches(rangeStart, rangeEnd time.Time) bool {
	return c.RangeStart == rangeStart.UTC().Format("2006-01-02") &&
		c.RangeEnd == rangeEnd.UTC().Format("2006-01-02")
}

func (c *BackfillCheckpoint) day(date string) *DayCheckpoint {
	d, ok := c.Days[date]
	if !ok {
		d = &DayCheckpoint{Categories: map[UsageCategory]CategoryStatus{}}
		c.Days[date] = d
	}
	return d
}

// MarkCategory registra o resultado de um par dia/categoria.
func (c *BackfillCheckpoint) MarkCategory(date string, cat UsageCategory, status CategoryStatus) {
	d := c.day(date)
	d.Categories[cat] = status
	c.LastUpdated = time.Now().UTC()
}

// MarkDayAttempt incrementa o contador de tentativas do dia.
func (c *BackfillCheckpoint) MarkDayAttempt(date string) {
	c.day(date).Attempts++
}

// MarkDayCompleted marca o dia como concluído somente se nenhuma categoria
// falhou; dias com falhas permanecem elegíveis para re-tentativa no resume.
func (c *BackfillCheckpoint) MarkDayCompleted(date string) bool {
	d := c.day(date)
	for _, status := range d.Categories {
		if status == StatusFailed {
			return false
		}
	}
	d.Completed = true
	c.LastUpdated = time.Now().UTC()
	return true
}

// DayCompleted indica se o dia já foi totalmente processado.
func (c *BackfillCheckpoint) DayCompleted(date string) bool {
	d, ok := c.Days[date]
	return ok && d.Completed
}

// CategoryCompleted indica se um par dia/categoria já concluiu.
func (c *BackfillCheckpoint) CategoryCompleted(date string, cat UsageCategory) bool {
	d, ok := c.Days[date]
	if !ok {
		return false
	}
	return d.Categories[cat] == StatusCompleted
}

// LastCompletedDay devolve a última data concluída, em ordem cronológica.
func (c *BackfillCheckpoint) LastCompletedDay() (string, bool) {
	dates := make([]string, 0, len(c.Days))
	for date, d := range c.Days {
		if d.Completed {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return "", false
	}
	sort.Strings(dates)
	return dates[len(dates)-1], true
}

// Complete verifica se todos os dias do intervalo foram concluídos.
func (c *BackfillCheckpoint) Complete() bool {
	start, err := time.Parse("2006-01-02", c.RangeStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("2006-01-02", c.RangeEnd)
	if err != nil {
		return false
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !c.DayCompleted(d.Format("2006-01-02")) {
			return false
		}
	}
	return true
}

// CompletedCount conta os dias concluídos.
func (c *BackfillCheckpoint) CompletedCount() int {
	n := 0
	for _, d := range c.Days {
		if d.Completed {
			n++
		}
	}
	return n
}
