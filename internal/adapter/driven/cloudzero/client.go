// Package cloudzero implementa o streamer de registros CBF para a API
// AnyCost do destino, com batching limitado por tamanho de payload e
// semântica idempotente de replace por janela.
package cloudzero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
	"github.com/finops-adapters/sumo-anycost-go/pkg/retry"
)

// Operation é o modo de escrita aceito pela API AnyCost.
type Operation string

const (
	// OperationReplaceHourly sobrescreve os dados da janela coberta pelo
	// batch. É o único modo usado pelo pipeline: re-enviar a mesma
	// categoria+janela é seguro (overwrite, não append).
	OperationReplaceHourly Operation = "replace_hourly"
	OperationReplaceDrop   Operation = "replace_drop"
	OperationSum           Operation = "sum"
)

// DefaultURL é o endpoint padrão da API de ingestão.
const DefaultURL = "https://api.cloudzero.com"

// Client é a implementação do IngestSink.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authKey    string
	streamID   string
	operation  Operation
	maxBatch   int
	retry      retry.Policy
}

// Option configura o Client.
type Option func(*Client)

// WithHTTPClient troca o cliente HTTP (testes).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxBatchSize troca o teto de tamanho de batch (testes).
func WithMaxBatchSize(n int) Option {
	return func(c *Client) { c.maxBatch = n }
}

// WithRetryPolicy troca a política de retry dos posts.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient cria um cliente autenticado para o stream connection informado.
func NewClient(authKey, baseURL, streamID string, opts ...Option) repository.IngestSink {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		authKey:    authKey,
		streamID:   streamID,
		operation:  OperationReplaceHourly,
		maxBatch:   SafePayloadSize,
		retry:      retry.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendBillingData implementa repository.IngestSink. Batches rejeitados por
// um 4xx que não seja de tamanho são contabilizados e reportados, mas não
// interrompem os batches restantes.
func (c *Client) SendBillingData(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow, records []entity.BillingRecord) (entity.StreamResult, error) {
	if len(records) == 0 {
		return entity.StreamResult{}, nil
	}

	batches := chunkBySize(records, string(c.operation), c.maxBatch)
	result := entity.StreamResult{BatchCount: len(batches)}

	for i, batch := range batches {
		size := payloadSize(batch, string(c.operation))
		result.TotalBytes += size
		log.WithFields(log.Fields{
			"category": spec.Name,
			"window":   window.String(),
			"batch":    fmt.Sprintf("%d/%d", i+1, len(batches)),
			"records":  len(batch),
			"bytes":    size,
		}).Debug("posting billing batch")

		if err := c.postBatchResplit(ctx, batch); err != nil {
			var rejected *types.IngestionRejectedError
			if errors.As(err, &rejected) {
				result.FailedBatches++
				log.WithFields(log.Fields{"category": spec.Name, "batch": i + 1}).
					WithError(err).Warn("batch rejected by ingestion API")
				continue
			}
			return result, err
		}
		result.AcceptedCount += len(batch)
	}
	return result, nil
}

// postBatchResplit envia um batch. Um 413, que não deveria ocorrer dado o
// batching, força um re-split em dois e uma única nova tentativa por metade.
func (c *Client) postBatchResplit(ctx context.Context, batch []entity.BillingRecord) error {
	err := c.postBatch(ctx, batch)
	var tooLarge *types.PayloadTooLargeError
	if !errors.As(err, &tooLarge) || len(batch) < 2 {
		return err
	}

	log.WithField("records", len(batch)).Warn("payload rejected for size, re-splitting batch")
	mid := len(batch) / 2
	if err := c.postBatch(ctx, batch[:mid]); err != nil {
		return err
	}
	return c.postBatch(ctx, batch[mid:])
}

func (c *Client) postBatch(ctx context.Context, batch []entity.BillingRecord) error {
	payload := streamPayload{
		Operation: string(c.operation),
		Data:      batch,
		Month:     batch[0].UsageStart,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v2/connections/billing/anycost/%s/billing_drops", c.baseURL, c.streamID)

	op := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", c.authKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &transientError{err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 400:
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &types.AuthError{Platform: "cloudzero", StatusCode: resp.StatusCode}
		case resp.StatusCode == http.StatusRequestEntityTooLarge:
			return &types.PayloadTooLargeError{Size: len(raw), Limit: MaxPayloadSize}
		case retry.RetryableStatus(resp.StatusCode):
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &transientError{err: fmt.Errorf("ingestion returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))}
		default:
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &types.IngestionRejectedError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
		}
	}

	return c.retry.Execute(ctx, op, func(err error) bool {
		_, transient := err.(*transientError)
		return transient
	})
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
