package entity

import (
	"strings"

	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

// UsageCategory identifies one billing dimension extracted from the source
// platform.
type UsageCategory string

const (
	CategoryContinuousLogIngest UsageCategory = "continuous-log-ingest"
	CategoryFrequentLogIngest   UsageCategory = "frequent-log-ingest"
	CategoryInfrequentLogIngest UsageCategory = "infrequent-log-ingest"
	CategoryInfrequentLogScan   UsageCategory = "infrequent-log-scan"
	CategoryMetricsDatapoints   UsageCategory = "metrics-datapoints"
	CategoryTraceSpans          UsageCategory = "trace-spans"
)

// Unit is the unit of the raw quantity returned by the source query.
type Unit string

const (
	UnitBytes      Unit = "bytes"
	UnitDatapoints Unit = "datapoints"
)

// CategorySpec descreve uma categoria de uso: a query usada na origem, a
// unidade da quantidade bruta e os campos CBF do registro de billing.
// Adicionar uma categoria é uma mudança de dados, não de código.
type CategorySpec struct {
	Name UsageCategory
	// QueryTemplate is submitted as-is; the window bounds travel as the
	// search-job from/to parameters. Every template aliases its quantity
	// column to "quantity" and its resource column per ResourceDimension.
	QueryTemplate string
	Unit          Unit
	// ResourceDimension is the result column naming the billed resource
	// (source category or user name).
	ResourceDimension string
	// ResourceIDPrefix prefixes the CBF resource/id, e.g. "sourcecategory".
	ResourceIDPrefix string
	UsageFamily      string
	Service          string
	Description      string
	Operation        string
	// ByReceiptTime controls the search-job byReceiptTime parameter.
	ByReceiptTime bool
}

// Rate resolve a taxa de créditos da categoria a partir da configuração.
func (s CategorySpec) Rate(rates types.RateConfig) float64 {
	switch s.Name {
	case CategoryContinuousLogIngest:
		return rates.LogContinuous
	case CategoryFrequentLogIngest:
		return rates.LogFrequent
	case CategoryInfrequentLogIngest:
		return rates.LogInfrequent
	case CategoryInfrequentLogScan:
		return rates.LogInfrequentScan
	case CategoryMetricsDatapoints:
		return rates.MetricsDatapoints
	case CategoryTraceSpans:
		return rates.TraceSpansIngest
	}
	return 0
}

const logVolumeQuery = `_index=sumologic_volume _sourceCategory="sourcecategory_and_tier_volume" | parse regex "(?<data>\{[^\{]+\})" multi | json field=data "field","dataTier","sizeInBytes" as sourcecategory, datatier, bytes | where datatier matches "%TIER%" | where !(sourcecategory matches "*_volume") | timeslice 1h | sum(bytes) as quantity by _timeslice, sourcecategory, datatier`

// categoryTable é a tabela fixa de categorias, em ordem de processamento.
var categoryTable = []CategorySpec{
	{
		Name:              CategoryContinuousLogIngest,
		QueryTemplate:     tierQuery("Continuous"),
		Unit:              UnitBytes,
		ResourceDimension: "sourcecategory",
		ResourceIDPrefix:  "sourcecategory",
		UsageFamily:       "Continuous",
		Service:           "Logs continuous ingest",
		Description:       "Continuous logs ingested by Source Category",
		Operation:         "ingest",
		ByReceiptTime:     true,
	},
	{
		Name:              CategoryFrequentLogIngest,
		QueryTemplate:     tierQuery("Frequent"),
		Unit:              UnitBytes,
		ResourceDimension: "sourcecategory",
		ResourceIDPrefix:  "sourcecategory",
		UsageFamily:       "Frequent",
		Service:           "Logs frequent ingest",
		Description:       "Frequent logs ingested by Source Category",
		Operation:         "ingest",
		ByReceiptTime:     true,
	},
	{
		Name:              CategoryInfrequentLogIngest,
		QueryTemplate:     tierQuery("Infrequent"),
		Unit:              UnitBytes,
		ResourceDimension: "sourcecategory",
		ResourceIDPrefix:  "sourcecategory",
		UsageFamily:       "Infrequent",
		Service:           "Logs infrequent ingest",
		Description:       "Infrequent logs ingested by Source Category",
		Operation:         "ingest",
		ByReceiptTime:     true,
	},
	{
		Name:              CategoryInfrequentLogScan,
		QueryTemplate:     `_view=sumologic_search_usage_per_query !(user_name=*sumologic.com) !(status_message="Query Failed") | json field=scanned_bytes_breakdown "Infrequent" as quantity | timeslice 1h | sum(quantity) as quantity by _timeslice, user_name`,
		Unit:              UnitBytes,
		ResourceDimension: "user_name",
		ResourceIDPrefix:  "username",
		UsageFamily:       "infrequent",
		Service:           "Logs infrequent scan",
		Description:       "Infrequent logs scanned by user",
		Operation:         "scan",
		ByReceiptTime:     false,
	},
	{
		Name:              CategoryMetricsDatapoints,
		QueryTemplate:     `_index=sumologic_volume _sourceCategory="sourcecategory_metrics_volume" datapoints | parse regex "\"(?<sourcecategory>[^\"]+)\"\:\{\"dataPoints\"\:(?<quantity>\d+)\}" multi | timeslice 24h | sum(quantity) as quantity by _timeslice, sourcecategory`,
		Unit:              UnitDatapoints,
		ResourceDimension: "sourcecategory",
		ResourceIDPrefix:  "sourcecategory",
		UsageFamily:       "metrics",
		Service:           "Metrics ingest",
		Description:       "daily 1k datapoints ingested by Source Category",
		Operation:         "ingest",
		ByReceiptTime:     true,
	},
	{
		Name:              CategoryTraceSpans,
		QueryTemplate:     `_index=sumologic_volume _sourceCategory="sourcecategory_tracing_volume" | parse regex "\"(?<sourcecategory>[^\"]+)\"\:(?<data>\{[^\}]*\})" multi | json field=data "billedBytes" as quantity | timeslice 1h | sum(quantity) as quantity by _timeslice, sourcecategory`,
		Unit:              UnitBytes,
		ResourceDimension: "sourcecategory",
		ResourceIDPrefix:  "sourcecategory",
		UsageFamily:       "traces",
		Service:           "Traces ingest",
		Description:       "tracing spans ingested by Source Category",
		Operation:         "ingest",
		ByReceiptTime:     true,
	},
}

func tierQuery(tier string) string {
	return strings.ReplaceAll(logVolumeQuery, "%TIER%", tier)
}

// Categories returns the fixed category table in processing order.
func Categories() []CategorySpec {
	out := make([]CategorySpec, len(categoryTable))
	copy(out, categoryTable)
	return out
}

// CategoryByName procura uma categoria pelo identificador.
func CategoryByName(name UsageCategory) (CategorySpec, bool) {
	for _, spec := range categoryTable {
		if spec.Name == name {
			return spec, true
		}
	}
	return CategorySpec{}, false
}
