package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

// bytesPerGiB é o divisor de bytes para a unidade cobrada em GB.
var bytesPerGiB = decimal.NewFromInt(1 << 30)

// datapointsPerUnit: métricas são cobradas por 1k datapoints.
var datapointsPerUnit = decimal.NewFromInt(1000)

// Transformer converte as linhas brutas da origem em registros CBF. Linhas
// malformadas são puladas e logadas, nunca abortam o batch inteiro.
type Transformer struct {
	rates         types.RateConfig
	costPerCredit decimal.Decimal
	accountID     string
	deployment    string
}

// NewTransformer cria um transformer para a organização configurada. O
// account do CBF é o org ID da origem; a region é o deployment.
func NewTransformer(cfg *types.Config) *Transformer {
	return &Transformer{
		rates:         cfg.Rates,
		costPerCredit: decimal.NewFromFloat(cfg.CostPerCredit),
		accountID:     cfg.SumoOrgID,
		deployment:    cfg.SumoDeployment,
	}
}

// Normalize transforma as linhas brutas de uma categoria em registros CBF.
// Devolve os registros válidos e o número de linhas puladas.
func (t *Transformer) Normalize(spec entity.CategorySpec, raw []entity.RawUsageRecord) ([]entity.BillingRecord, int) {
	rate := decimal.NewFromFloat(spec.Rate(t.rates))
	records := make([]entity.BillingRecord, 0, len(raw))
	skipped := 0

	for _, row := range raw {
		record, err := t.normalizeRow(spec, rate, row)
		if err != nil {
			skipped++
			var malformed *types.MalformedRecordError
			if errors.As(err, &malformed) {
				log.WithFields(log.Fields{"category": spec.Name, "reason": malformed.Reason}).
					Warn("skipping malformed usage row")
			} else {
				log.WithField("category", spec.Name).WithError(err).Warn("skipping unparsable usage row")
			}
			continue
		}
		if record == nil {
			// quantidade zero: sem linha de billing
			continue
		}
		records = append(records, *record)
	}
	return records, skipped
}

// normalizeRow converte uma linha. Devolve (nil, nil) para quantidade zero.
func (t *Transformer) normalizeRow(spec entity.CategorySpec, rate decimal.Decimal, row entity.RawUsageRecord) (*entity.BillingRecord, error) {
	tsRaw, ok := row.Field("_timeslice")
	if !ok {
		return nil, &types.MalformedRecordError{Reason: "missing _timeslice field"}
	}
	millis, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return nil, &types.MalformedRecordError{Reason: fmt.Sprintf("invalid _timeslice %q", tsRaw)}
	}
	usageStart := time.UnixMilli(millis).UTC()

	qtyRaw, ok := row.Field("quantity")
	if !ok {
		return nil, &types.MalformedRecordError{Reason: "missing quantity field"}
	}
	quantity, err := decimal.NewFromString(qtyRaw)
	if err != nil {
		return nil, &types.MalformedRecordError{Reason: fmt.Sprintf("invalid quantity %q", qtyRaw)}
	}
	if quantity.IsZero() {
		return nil, nil
	}
	if quantity.IsNegative() {
		return nil, &types.MalformedRecordError{Reason: fmt.Sprintf("negative quantity %s", quantity)}
	}

	resource, ok := row.Field(spec.ResourceDimension)
	if !ok || resource == "" {
		// alguns deployments devolvem "username" no lugar de "user_name"
		if spec.ResourceDimension == "user_name" {
			resource, ok = row.Field("username")
		}
		if !ok || resource == "" {
			return nil, &types.MalformedRecordError{Reason: fmt.Sprintf("missing %s field", spec.ResourceDimension)}
		}
	}

	// converte a unidade bruta na unidade cobrada
	var billed decimal.Decimal
	switch spec.Unit {
	case entity.UnitBytes:
		billed = quantity.Div(bytesPerGiB)
	case entity.UnitDatapoints:
		billed = quantity.Div(datapointsPerUnit)
	default:
		return nil, &types.MalformedRecordError{Reason: fmt.Sprintf("unknown unit %q", spec.Unit)}
	}

	credits := billed.Mul(rate)
	record := entity.NewBillingRecord(
		spec,
		usageStart,
		resourceID(spec.ResourceIDPrefix, resource),
		t.accountID,
		t.deployment,
		credits,
		t.costPerCredit,
	)
	return &record, nil
}

// resourceID monta o resource/id do CBF: prefixo + nome normalizado, com "/"
// trocado por "|" para não quebrar agrupamentos hierárquicos no destino.
func resourceID(prefix, resource string) string {
	normalized := strings.ToLower(strings.TrimSpace(resource))
	normalized = strings.ReplaceAll(normalized, "/", "|")
	return prefix + ":" + normalized
}
