package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawUsageRecord is one aggregated row returned by the source search API for
// one category and window. Field values stay as returned strings; parsing
// and validation happen during normalization so a bad row can be skipped
// without aborting the batch.
type RawUsageRecord struct {
	Fields map[string]string
}

// Field devolve o valor de um campo, se presente.
func (r RawUsageRecord) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// BillingRecord é uma linha CBF normalizada, consumida imediatamente pelo
// streamer; nunca é persistida.
type BillingRecord struct {
	UsageStart  string `json:"time/usage_start"`
	ResourceID  string `json:"resource/id"`
	UsageFamily string `json:"resource/usage_family"`
	LineItem    string `json:"lineitem/type"`
	Description string `json:"lineitem/description"`
	Service     string `json:"resource/service"`
	Account     string `json:"resource/account"`
	Region      string `json:"resource/region"`
	UsageUnits  string `json:"usage/units"`
	Operation   string `json:"action/operation"`
	UsageAmount string `json:"usage/amount"`
	Cost        string `json:"cost/cost"`
}

// CBFPrecision é a precisão decimal aceita pela plataforma de destino.
const CBFPrecision = 6

// NewBillingRecord monta um registro CBF a partir dos valores já convertidos.
// credits = quantidade na unidade da taxa × taxa; cost = credits ×
// custo-por-crédito, arredondado para a precisão do destino.
func NewBillingRecord(spec CategorySpec, usageStart time.Time, resource, account, region string, credits, costPerCredit decimal.Decimal) BillingRecord {
	cost := credits.Mul(costPerCredit).Round(CBFPrecision)
	return BillingRecord{
		UsageStart:  usageStart.UTC().Format(time.RFC3339),
		ResourceID:  resource,
		UsageFamily: spec.UsageFamily,
		LineItem:    "Usage",
		Description: spec.Description,
		Service:     spec.Service,
		Account:     account,
		Region:      region,
		UsageUnits:  "credits",
		Operation:   spec.Operation,
		UsageAmount: credits.StringFixed(CBFPrecision),
		Cost:        cost.StringFixed(CBFPrecision),
	}
}

// StreamResult resume o envio de um conjunto de registros ao destino.
type StreamResult struct {
	AcceptedCount int
	BatchCount    int
	FailedBatches int
	// TotalBytes is the serialized payload size across all batches.
	TotalBytes int
	DryRun     bool
}
