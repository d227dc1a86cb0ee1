// Package checkpoint fornece as implementações do CheckpointStore: arquivo
// JSON local para execuções em máquina própria, e objeto S3 para execuções
// serverless sem filesystem durável.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
)

// FileStore persiste checkpoints como arquivos ocultos no diretório
// configurado, um arquivo por intervalo de backfill.
type FileStore struct {
	dir string
}

// NewFileStore cria um store no diretório informado ("." quando vazio).
func NewFileStore(dir string) repository.CheckpointStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, "."+key+".json")
}

// Load implementa repository.CheckpointStore. Um arquivo ausente não é erro;
// um arquivo corrompido é tratado como ausente, com aviso, para não travar o
// backfill.
func (s *FileStore) Load(ctx context.Context, key string) (*entity.BackfillCheckpoint, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint file: %w", err)
	}

	var cp entity.BackfillCheckpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		log.WithField("file", s.path(key)).WithError(err).
			Warn("checkpoint file is corrupted, starting fresh")
		return nil, nil
	}
	return &cp, nil
}

// Save grava o checkpoint atomicamente (escrita em temporário + rename).
func (s *FileStore) Save(ctx context.Context, checkpoint *entity.BackfillCheckpoint) error {
	raw, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return err
	}

	target := s.path(checkpoint.Key())
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replacing checkpoint file: %w", err)
	}
	return nil
}

// Delete remove o arquivo do checkpoint; ausência não é erro.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
