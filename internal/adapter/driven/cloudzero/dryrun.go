package cloudzero

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
)

// DryRunSink grava em disco exatamente os batches que o cliente real
// enviaria, com o mesmo chunking, sem tocar a API de ingestão.
type DryRunSink struct {
	exportRepo repository.ExportRepository
	operation  Operation
	maxBatch   int
}

// NewDryRunSink cria um sink de dry-run com o batching padrão do cliente.
func NewDryRunSink(exportRepo repository.ExportRepository) repository.IngestSink {
	return &DryRunSink{
		exportRepo: exportRepo,
		operation:  OperationReplaceHourly,
		maxBatch:   SafePayloadSize,
	}
}

// SendBillingData implementa repository.IngestSink gravando um arquivo por
// batch em vez de postar.
func (s *DryRunSink) SendBillingData(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow, records []entity.BillingRecord) (entity.StreamResult, error) {
	if len(records) == 0 {
		return entity.StreamResult{DryRun: true}, nil
	}

	batches := chunkBySize(records, string(s.operation), s.maxBatch)
	result := entity.StreamResult{BatchCount: len(batches), DryRun: true}

	for i, batch := range batches {
		result.TotalBytes += payloadSize(batch, string(s.operation))
		path, err := s.exportRepo.WriteDryRunPayload(batch, string(s.operation), string(spec.Name), window.Date(), i+1, len(batches))
		if err != nil {
			return result, err
		}
		result.AcceptedCount += len(batch)
		log.WithFields(log.Fields{"category": spec.Name, "file": path, "records": len(batch)}).
			Debug("dry-run payload written")
	}
	return result, nil
}
