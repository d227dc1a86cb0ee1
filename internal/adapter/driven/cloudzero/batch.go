package cloudzero

import (
	"encoding/json"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

const (
	// MaxPayloadSize é o limite rígido da API de ingestão.
	MaxPayloadSize = 10 * 1024 * 1024
	// SafePayloadSize é o teto usado na montagem dos batches, deixando
	// folga para o overhead do envelope JSON.
	SafePayloadSize = 8 * 1024 * 1024
)

// streamPayload é o envelope enviado ao endpoint de ingestão.
type streamPayload struct {
	Operation string                 `json:"operation"`
	Data      []entity.BillingRecord `json:"data"`
	Month     string                 `json:"month"`
}

// payloadSize calcula o tamanho serializado do envelope para um batch.
func payloadSize(records []entity.BillingRecord, operation string) int {
	month := ""
	if len(records) > 0 {
		month = records[0].UsageStart
	}
	raw, err := json.Marshal(streamPayload{Operation: operation, Data: records, Month: month})
	if err != nil {
		return 0
	}
	return len(raw)
}

// chunkBySize fatia os registros, na ordem de chegada, em batches cujo
// payload serializado cabe em maxSize. Quando um registro estoura o teto o
// batch corrente é fechado, ainda que contenha um único registro, e um novo
// é iniciado. A união dos batches é exatamente a entrada.
func chunkBySize(records []entity.BillingRecord, operation string, maxSize int) [][]entity.BillingRecord {
	if len(records) == 0 {
		return nil
	}

	var batches [][]entity.BillingRecord
	var current []entity.BillingRecord

	for _, record := range records {
		candidate := append(current, record)
		if payloadSize(candidate, operation) > maxSize && len(current) > 0 {
			batches = append(batches, current)
			current = []entity.BillingRecord{record}
			continue
		}
		current = candidate
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
