package entity

import (
	"fmt"
	"time"
)

// TimeWindow é um intervalo semiaberto [Start, End) em UTC.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow constrói uma janela validada. Start deve preceder End.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	start = start.UTC()
	end = end.UTC()
	if !start.Before(end) {
		return TimeWindow{}, fmt.Errorf("invalid time window: start %s is not before end %s", start, end)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// DayWindow devolve a janela do dia UTC inteiro que contém t.
func DayWindow(t time.Time) TimeWindow {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return TimeWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// TrailingWindow devolve a janela [now-d, now).
func TrailingWindow(now time.Time, d time.Duration) TimeWindow {
	now = now.UTC()
	return TimeWindow{Start: now.Add(-d), End: now}
}

// Duration é o tamanho da janela.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Date é a data UTC do início da janela no formato YYYY-MM-DD.
func (w TimeWindow) Date() string {
	return w.Start.Format("2006-01-02")
}

// String renders the window bounds in the source API's timestamp format.
func (w TimeWindow) String() string {
	const layout = "2006-01-02T15:04:05Z"
	return fmt.Sprintf("[%s, %s)", w.Start.Format(layout), w.End.Format(layout))
}

// DayWindows divide [start, end] (datas inclusivas) em janelas de um dia,
// em ordem cronológica ascendente.
func DayWindows(start, end time.Time) []TimeWindow {
	var windows []TimeWindow
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end.UTC()); d = d.AddDate(0, 0, 1) {
		windows = append(windows, DayWindow(d))
	}
	return windows
}
