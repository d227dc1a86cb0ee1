package repository

import (
	"context"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

// IngestSink defines the interface for the destination ingestion API.
type IngestSink interface {
	// SendBillingData serializa os registros em batches limitados por
	// tamanho e envia cada um com semântica replace-for-range para a
	// categoria/janela cobertas. Re-enviar a mesma janela é seguro.
	SendBillingData(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow, records []entity.BillingRecord) (entity.StreamResult, error)
}
