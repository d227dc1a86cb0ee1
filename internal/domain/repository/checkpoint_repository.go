package repository

import (
	"context"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

// CheckpointStore persists backfill progress so an interrupted run can be
// resumed. Implementations: local JSON file, S3 object.
type CheckpointStore interface {
	// Load devolve o checkpoint identificado por key, ou (nil, nil) quando
	// não existe.
	Load(ctx context.Context, key string) (*entity.BackfillCheckpoint, error)
	Save(ctx context.Context, checkpoint *entity.BackfillCheckpoint) error
	// Delete remove o checkpoint após a conclusão do backfill.
	Delete(ctx context.Context, key string) error
}
