package cloudzero

import (
	"fmt"
	"testing"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

func makeRecords(n int) []entity.BillingRecord {
	records := make([]entity.BillingRecord, n)
	for i := range records {
		records[i] = entity.BillingRecord{
			UsageStart:  "2024-05-01T00:00:00Z",
			ResourceID:  fmt.Sprintf("sourcecategory:app|service-%04d", i),
			UsageFamily: "Continuous",
			LineItem:    "Usage",
			Service:     "Logs continuous ingest",
			UsageUnits:  "credits",
			UsageAmount: "12.345678",
			Cost:        "1.851852",
		}
	}
	return records
}

func TestChunkBySizePreservesAllRecords(t *testing.T) {
	records := makeRecords(500)
	batches := chunkBySize(records, "replace_hourly", 16*1024)

	if len(batches) < 2 {
		t.Fatalf("expected multiple batches for a small ceiling, got %d", len(batches))
	}

	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	if total != len(records) {
		t.Fatalf("expected %d records across batches, got %d", len(records), total)
	}

	// ordem de chegada preservada
	i := 0
	for _, batch := range batches {
		for _, record := range batch {
			if record.ResourceID != records[i].ResourceID {
				t.Fatalf("record %d out of order: got %s, want %s", i, record.ResourceID, records[i].ResourceID)
			}
			i++
		}
	}
}

func TestChunkBySizeRespectsCeiling(t *testing.T) {
	records := makeRecords(200)
	maxSize := 8 * 1024
	batches := chunkBySize(records, "replace_hourly", maxSize)

	for i, batch := range batches {
		if size := payloadSize(batch, "replace_hourly"); size > maxSize && len(batch) > 1 {
			t.Fatalf("batch %d serializes to %d bytes, over the %d ceiling", i, size, maxSize)
		}
	}
}

func TestChunkBySizeSingleOversizedRecord(t *testing.T) {
	records := makeRecords(1)
	batches := chunkBySize(records, "replace_hourly", 10)

	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("an oversized record must still become its own batch, got %d batches", len(batches))
	}
}

func TestChunkBySizeEmptyInput(t *testing.T) {
	if batches := chunkBySize(nil, "replace_hourly", SafePayloadSize); batches != nil {
		t.Fatalf("expected nil batches for empty input, got %d", len(batches))
	}
}
