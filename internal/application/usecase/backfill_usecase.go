package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

const (
	dateLayout = "2006-01-02"

	// minBackfillYear é o ano mínimo aceito para datas de backfill.
	minBackfillYear = 2020
	// maxBackfillDays é o maior intervalo aceito, em dias.
	maxBackfillDays = 1000
	// warnBackfillDays: intervalos maiores geram aviso, não erro.
	warnBackfillDays = 365
)

// BackfillUseCase orquestra o reprocessamento de um intervalo de dias, com
// checkpoint persistido para retomada após interrupção.
type BackfillUseCase struct {
	pipeline    *PipelineUseCase
	checkpoints repository.CheckpointStore
	console     types.ConsoleInterface
	config      *types.Config

	now func() time.Time
}

// NewBackfillUseCase creates a new backfill use case.
func NewBackfillUseCase(
	pipeline *PipelineUseCase,
	checkpoints repository.CheckpointStore,
	console types.ConsoleInterface,
	config *types.Config,
) *BackfillUseCase {
	return &BackfillUseCase{
		pipeline:    pipeline,
		checkpoints: checkpoints,
		console:     console,
		config:      config,
		now:         time.Now,
	}
}

// ResolveRange valida os argumentos de backfill e devolve o intervalo de
// datas (inclusivas) a processar.
func (uc *BackfillUseCase) ResolveRange(args *types.CLIArgs) (time.Time, time.Time, error) {
	today := uc.now().UTC().Truncate(24 * time.Hour)

	var start, end time.Time
	switch {
	case args.Days > 0:
		if args.BackfillStart != "" || args.BackfillEnd != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--days cannot be combined with --start/--end")
		}
		// --days N cobre os N dias completos até ontem
		end = today.AddDate(0, 0, -1)
		start = end.AddDate(0, 0, -(args.Days - 1))
	case args.BackfillStart != "" && args.BackfillEnd != "":
		var err error
		start, err = time.Parse(dateLayout, args.BackfillStart)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", args.BackfillStart)
		}
		end, err = time.Parse(dateLayout, args.BackfillEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", args.BackfillEnd)
		}
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("backfill requires either --days or both --start and --end")
	}

	if start.Year() < minBackfillYear {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is before %d", start.Format(dateLayout), minBackfillYear)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", start.Format(dateLayout), end.Format(dateLayout))
	}
	if end.After(today) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is in the future", end.Format(dateLayout))
	}

	span := int(end.Sub(start).Hours()/24) + 1
	if span > maxBackfillDays {
		return time.Time{}, time.Time{}, fmt.Errorf("range of %d days exceeds the maximum of %d", span, maxBackfillDays)
	}
	if span > warnBackfillDays {
		uc.console.LogWarning("Backfilling %d days; this will take a while", span)
	}

	return start, end, nil
}

// Run executa o backfill completo. Dias já concluídos em um checkpoint
// anterior são pulados no resume; a categoria é a unidade de retomada.
func (uc *BackfillUseCase) Run(ctx context.Context, args *types.CLIArgs) error {
	start, end, err := uc.ResolveRange(args)
	if err != nil {
		return err
	}

	checkpoint, err := uc.loadOrCreateCheckpoint(ctx, args, start, end)
	if err != nil {
		return err
	}

	windows := entity.DayWindows(start, end)
	uc.console.LogInfo("Backfilling %d days: %s to %s", len(windows), start.Format(dateLayout), end.Format(dateLayout))
	if args.DryRun {
		uc.console.LogInfo("Dry run: payloads will be written to disk, nothing will be sent")
	}

	summary := entity.RunSummary{
		Mode:       "backfill",
		DryRun:     args.DryRun,
		RangeStart: start.Format(dateLayout),
		RangeEnd:   end.Format(dateLayout),
	}
	runStarted := uc.now()

	progress := uc.console.ProgressWithTotal(len(windows))

	var processedDurations []time.Duration
	for i, window := range windows {
		date := window.Date()

		if checkpoint.DayCompleted(date) {
			summary.SkippedDays++
			log.WithField("date", date).Debug("day already completed, skipping")
			progress.Increment()
			continue
		}

		if err := ctx.Err(); err != nil {
			progress.Stop()
			uc.saveCheckpoint(ctx, checkpoint, args.DryRun)
			return err
		}

		dayStarted := uc.now()
		checkpoint.MarkDayAttempt(date)

		day := entity.DayStats{Date: date}
		for _, spec := range entity.Categories() {
			if checkpoint.CategoryCompleted(date, spec.Name) {
				log.WithFields(log.Fields{"date": date, "category": spec.Name}).
					Debug("category already completed, skipping")
				continue
			}

			stats, err := uc.pipeline.processCategory(ctx, spec, window)
			if err != nil {
				stats.Failed = true
				stats.Error = err.Error()
				checkpoint.MarkCategory(date, spec.Name, entity.StatusFailed)
				day.Categories = append(day.Categories, stats)

				if fatal := uc.abortOn(err); fatal != nil {
					progress.Stop()
					uc.saveCheckpoint(ctx, checkpoint, args.DryRun)
					return fatal
				}
				uc.console.LogError("Failed %s on %s: %s", spec.Name, date, err)
				continue
			}

			checkpoint.MarkCategory(date, spec.Name, entity.StatusCompleted)
			day.Categories = append(day.Categories, stats)
		}

		day.Duration = uc.now().Sub(dayStarted)
		summary.Days = append(summary.Days, day)
		checkpoint.MarkDayCompleted(date)
		uc.saveCheckpoint(ctx, checkpoint, args.DryRun)

		processedDurations = append(processedDurations, day.Duration)
		if remaining := len(windows) - i - 1; remaining > 0 {
			uc.console.LogInfo("Completed %s in %s | ETA: %s",
				date, entity.FormatDuration(day.Duration),
				entity.FormatDuration(averageDuration(processedDurations)*time.Duration(remaining)))
		}
		progress.Increment()
	}
	progress.Stop()

	summary.Duration = uc.now().Sub(runStarted)
	uc.pipeline.displaySummary(summary)
	uc.pipeline.exportReports(summary, args)

	if checkpoint.Complete() && !args.DryRun {
		if err := uc.checkpoints.Delete(ctx, checkpoint.Key()); err != nil {
			uc.console.LogWarning("Could not remove checkpoint: %s", err)
		} else {
			uc.console.LogSuccess("Backfill complete, checkpoint removed")
		}
	} else if failed := summary.FailedCategories(); failed > 0 {
		uc.console.LogWarning("Backfill finished with %d failed day/category pairs; re-run with --resume to retry them", failed)
	}

	return nil
}

// loadOrCreateCheckpoint resolve o checkpoint da execução conforme os modos
// de resume pedidos. Uma data de resume vale com ou sem checkpoint gravado:
// sem estado anterior, os dias antes dela ainda são marcados como concluídos.
func (uc *BackfillUseCase) loadOrCreateCheckpoint(ctx context.Context, args *types.CLIArgs, start, end time.Time) (*entity.BackfillCheckpoint, error) {
	if args.ResumeDate != "" {
		resumeDay, err := time.Parse(dateLayout, args.ResumeDate)
		if err != nil {
			return nil, fmt.Errorf("invalid resume date %q: expected YYYY-MM-DD", args.ResumeDate)
		}
		if resumeDay.Before(start) || resumeDay.After(end) {
			return nil, fmt.Errorf("resume date %s is outside the range %s to %s",
				args.ResumeDate, start.Format(dateLayout), end.Format(dateLayout))
		}
	}

	var checkpoint *entity.BackfillCheckpoint
	if args.Resume || args.AutoResume {
		key := entity.CheckpointKey(start.Format(dateLayout), end.Format(dateLayout))
		loaded, err := uc.checkpoints.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoint: %w", err)
		}
		switch {
		case loaded == nil:
			if args.Resume {
				uc.console.LogWarning("No checkpoint found for this range, starting from scratch")
			}
		case !loaded.Matches(start, end):
			uc.console.LogWarning("Checkpoint range does not match the requested range, starting fresh")
		default:
			uc.console.LogInfo("Resuming run %s: %d of %d days already completed",
				loaded.RunID, loaded.CompletedCount(), len(entity.DayWindows(start, end)))
			checkpoint = loaded
		}
	}
	if checkpoint == nil {
		checkpoint = entity.NewBackfillCheckpoint(uuid.NewString(), start, end, args.DryRun)
	}

	if args.ResumeDate != "" {
		// marca explicitamente tudo antes da data pedida como concluído
		for _, w := range entity.DayWindows(start, end) {
			if w.Date() < args.ResumeDate {
				for _, spec := range entity.Categories() {
					checkpoint.MarkCategory(w.Date(), spec.Name, entity.StatusCompleted)
				}
				checkpoint.MarkDayCompleted(w.Date())
			}
		}
	}

	return checkpoint, nil
}

// saveCheckpoint persiste o progresso; em dry run nada é gravado.
func (uc *BackfillUseCase) saveCheckpoint(ctx context.Context, checkpoint *entity.BackfillCheckpoint, dryRun bool) {
	if dryRun {
		return
	}
	if err := uc.checkpoints.Save(ctx, checkpoint); err != nil {
		uc.console.LogWarning("Could not save checkpoint: %s", err)
	}
}

// abortOn devolve um erro fatal quando a execução não deve continuar:
// credenciais inválidas abortam sempre, qualquer erro aborta quando
// continue_on_error está desligado.
func (uc *BackfillUseCase) abortOn(err error) error {
	var auth *types.AuthError
	if errors.As(err, &auth) {
		return fmt.Errorf("aborting backfill: %w", err)
	}
	if !uc.config.ContinueOnError {
		return fmt.Errorf("aborting backfill (continue_on_error disabled): %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func averageDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}
