package cloudzero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
	"github.com/finops-adapters/sumo-anycost-go/pkg/retry"
)

func fastRetry() retry.Policy {
	return retry.Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleep:       func(time.Duration) {},
	}
}

func testWindow(t *testing.T) entity.TimeWindow {
	t.Helper()
	return entity.DayWindow(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
}

func decodePayload(t *testing.T, r *http.Request) streamPayload {
	t.Helper()
	var payload streamPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Errorf("decoding payload: %v", err)
	}
	return payload
}

func TestSendBillingDataPostsBatch(t *testing.T) {
	spec := entity.Categories()[0]
	var gotPath, gotAuth string
	var gotPayload streamPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotPayload = decodePayload(t, r)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewClient("api-key", server.URL, "conn-123", WithRetryPolicy(fastRetry()))
	records := makeRecords(10)

	result, err := sink.SendBillingData(context.Background(), spec, testWindow(t), records)
	if err != nil {
		t.Fatalf("SendBillingData: %v", err)
	}

	if want := "/v2/connections/billing/anycost/conn-123/billing_drops"; gotPath != want {
		t.Errorf("posted to %s, want %s", gotPath, want)
	}
	if gotAuth != "api-key" {
		t.Errorf("Authorization = %q, want the raw key", gotAuth)
	}
	if gotPayload.Operation != "replace_hourly" {
		t.Errorf("operation = %q, want replace_hourly", gotPayload.Operation)
	}
	if len(gotPayload.Data) != 10 {
		t.Errorf("payload carried %d records, want 10", len(gotPayload.Data))
	}
	if result.AcceptedCount != 10 || result.BatchCount != 1 || result.FailedBatches != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestSendBillingDataEmptyInput(t *testing.T) {
	sink := NewClient("api-key", "http://unused.invalid", "conn-123")
	result, err := sink.SendBillingData(context.Background(), entity.Categories()[0], testWindow(t), nil)
	if err != nil {
		t.Fatalf("SendBillingData with no records: %v", err)
	}
	if result.BatchCount != 0 || result.AcceptedCount != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestSendBillingDataRejectedBatchContinues(t *testing.T) {
	spec := entity.Categories()[0]
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"malformed line item"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// teto pequeno para forçar múltiplos batches
	sink := NewClient("api-key", server.URL, "conn-123",
		WithRetryPolicy(fastRetry()), WithMaxBatchSize(16*1024))
	records := makeRecords(200)

	result, err := sink.SendBillingData(context.Background(), spec, testWindow(t), records)
	if err != nil {
		t.Fatalf("a rejected batch must not abort the siblings: %v", err)
	}
	if result.BatchCount < 2 {
		t.Fatalf("expected multiple batches, got %d", result.BatchCount)
	}
	if result.FailedBatches != 1 {
		t.Errorf("FailedBatches = %d, want 1", result.FailedBatches)
	}
	if result.AcceptedCount >= len(records) {
		t.Errorf("accepted %d records, the rejected batch should be missing", result.AcceptedCount)
	}
}

func TestSendBillingDataResplitsOn413(t *testing.T) {
	spec := entity.Categories()[0]
	var sizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodePayload(t, r)
		sizes = append(sizes, len(payload.Data))
		if len(payload.Data) > 2 {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewClient("api-key", server.URL, "conn-123", WithRetryPolicy(fastRetry()))
	records := makeRecords(4)

	result, err := sink.SendBillingData(context.Background(), spec, testWindow(t), records)
	if err != nil {
		t.Fatalf("expected the re-split halves to succeed: %v", err)
	}
	if result.AcceptedCount != 4 {
		t.Errorf("accepted %d records, want 4", result.AcceptedCount)
	}
	if want := []int{4, 2, 2}; len(sizes) != len(want) {
		t.Errorf("posts carried %v records, want %v", sizes, want)
	}
}

func TestSendBillingDataAuthErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sink := NewClient("bad-key", server.URL, "conn-123", WithRetryPolicy(fastRetry()))

	_, err := sink.SendBillingData(context.Background(), entity.Categories()[0], testWindow(t), makeRecords(3))
	var authErr *types.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Platform != "cloudzero" {
		t.Errorf("Platform = %q, want cloudzero", authErr.Platform)
	}
}

func TestSendBillingDataRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewClient("api-key", server.URL, "conn-123", WithRetryPolicy(fastRetry()))

	result, err := sink.SendBillingData(context.Background(), entity.Categories()[0], testWindow(t), makeRecords(3))
	if err != nil {
		t.Fatalf("expected retry to recover from a 503: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 posts, got %d", calls)
	}
	if result.AcceptedCount != 3 {
		t.Errorf("accepted %d records, want 3", result.AcceptedCount)
	}
}

func TestDryRunSinkWritesChunkedPayloads(t *testing.T) {
	exportRepo := &fakeExportRepo{}
	sink := &DryRunSink{exportRepo: exportRepo, operation: OperationReplaceHourly, maxBatch: 16 * 1024}

	records := makeRecords(200)
	result, err := sink.SendBillingData(context.Background(), entity.Categories()[0], testWindow(t), records)
	if err != nil {
		t.Fatalf("SendBillingData: %v", err)
	}
	if !result.DryRun {
		t.Error("result should be flagged as dry run")
	}
	if len(exportRepo.writes) != result.BatchCount {
		t.Fatalf("wrote %d files for %d batches", len(exportRepo.writes), result.BatchCount)
	}
	total := 0
	for _, w := range exportRepo.writes {
		if w.date != "2024-05-01" {
			t.Errorf("payload date = %q, want 2024-05-01", w.date)
		}
		if w.operation != "replace_hourly" {
			t.Errorf("payload operation = %q", w.operation)
		}
		total += w.records
	}
	if total != len(records) {
		t.Errorf("dry-run files carried %d records, want %d", total, len(records))
	}
}

type dryRunWrite struct {
	records   int
	operation string
	service   string
	date      string
	chunk     int
	total     int
}

type fakeExportRepo struct {
	writes []dryRunWrite
}

func (f *fakeExportRepo) WriteDryRunPayload(batch []entity.BillingRecord, operation, service, date string, chunk, totalChunks int) (string, error) {
	f.writes = append(f.writes, dryRunWrite{
		records:   len(batch),
		operation: operation,
		service:   service,
		date:      date,
		chunk:     chunk,
		total:     totalChunks,
	})
	return fmt.Sprintf("dry_run/%s_%s_chunk%d.json", date, strings.ReplaceAll(service, " ", "_"), chunk), nil
}

func (f *fakeExportRepo) ExportSummaryToCSV(entity.RunSummary, string, string) (string, error) {
	return "", nil
}

func (f *fakeExportRepo) ExportSummaryToJSON(entity.RunSummary, string, string) (string, error) {
	return "", nil
}

func (f *fakeExportRepo) ExportSummaryToPDF(entity.RunSummary, string, string) (string, error) {
	return "", nil
}
