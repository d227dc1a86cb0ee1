// Package sumologic implementa o cliente da API de search jobs da origem:
// submissão da query, polling até a conclusão do job e paginação dos
// resultados.
package sumologic

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

const (
	// PageSize é o número de registros por página de resultados.
	PageSize = 1000

	defaultPollInterval = 3 * time.Second
	defaultMaxWait      = 5 * time.Minute

	jobStateDone      = "DONE GATHERING RESULTS"
	jobStateCancelled = "CANCELLED"
	jobStatePaused    = "FORCE PAUSED"
)

// deploymentEndpoints mapeia o nome do deployment para o endpoint da API.
// Há duplicatas porque a maioria dos deployments tem dois nomes.
var deploymentEndpoints = map[string]string{
	"prod": "https://api.sumologic.com/api",
	"us1":  "https://api.sumologic.com/api",
	"us2":  "https://api.us2.sumologic.com/api",
	"eu":   "https://api.eu.sumologic.com/api",
	"dub":  "https://api.eu.sumologic.com/api",
	"ca":   "https://api.ca.sumologic.com/api",
	"mon":  "https://api.ca.sumologic.com/api",
	"de":   "https://api.de.sumologic.com/api",
	"fra":  "https://api.de.sumologic.com/api",
	"au":   "https://api.au.sumologic.com/api",
	"syd":  "https://api.au.sumologic.com/api",
	"jp":   "https://api.jp.sumologic.com/api",
	"tky":  "https://api.jp.sumologic.com/api",
	"kr":   "https://api.kr.sumologic.com/api",
	"fed":  "https://api.fed.sumologic.com/api",
}

// EndpointForDeployment resolve o endpoint da API para um deployment.
func EndpointForDeployment(deployment string) (string, error) {
	endpoint, ok := deploymentEndpoints[strings.ToLower(deployment)]
	if !ok {
		return "", fmt.Errorf("unsupported deployment %q", deployment)
	}
	return endpoint, nil
}

// Client é a implementação do UsageSource sobre a API de search jobs.
// Uma sessão autenticada por processo; as credenciais nunca são logadas.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	accessID     string
	accessKey    string
	pollInterval time.Duration
	maxWait      time.Duration
	retry        retry.Policy
}

// Option configura o Client.
type Option func(*Client)

// WithPollInterval ajusta o intervalo entre consultas de status do job.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxWait limita o tempo total de espera pela conclusão do job.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) { c.maxWait = d }
}

// WithHTTPClient troca o cliente HTTP (testes).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL troca o endpoint resolvido (testes).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRetryPolicy troca a política de retry das chamadas HTTP.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient cria um cliente autenticado para o deployment configurado.
func NewClient(accessID, accessKey, deployment string, opts ...Option) (repository.UsageSource, error) {
	endpoint, err := EndpointForDeployment(deployment)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      endpoint + "/v1",
		accessID:     accessID,
		accessKey:    accessKey,
		pollInterval: defaultPollInterval,
		maxWait:      defaultMaxWait,
		retry:        retry.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchJobRequest struct {
	Query           string `json:"query"`
	From            string `json:"from"`
	To              string `json:"to"`
	TimeZone        string `json:"timeZone"`
	ByReceiptTime   bool   `json:"byReceiptTime"`
	AutoParsingMode string `json:"autoParsingMode"`
}

type searchJobHandle struct {
	ID string `json:"id"`
}

type searchJobStatus struct {
	State       string `json:"state"`
	RecordCount int    `json:"recordCount"`
}

type searchJobRecords struct {
	Records []struct {
		Map map[string]string `json:"map"`
	} `json:"records"`
}

// FetchUsage implementa repository.UsageSource. Um job que termina em
// CANCELLED ou FORCE PAUSED é re-submetido com backoff; o timeout de polling
// não é repetido aqui e escala para o chamador.
func (c *Client) FetchUsage(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow) ([]entity.RawUsageRecord, error) {
	var records []entity.RawUsageRecord
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		records, err = c.runSearchJob(ctx, spec, window)
		return err
	}, func(err error) bool {
		var failed *types.QueryFailedError
		return errors.As(err, &failed)
	})
	return records, err
}

// runSearchJob executa um ciclo completo: submissão, polling e paginação.
func (c *Client) runSearchJob(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow) ([]entity.RawUsageRecord, error) {
	job, err := c.submitJob(ctx, spec, window)
	if err != nil {
		return nil, err
	}

	status, err := c.awaitJob(ctx, job)
	if err != nil {
		return nil, err
	}

	return c.collectRecords(ctx, job, status.RecordCount)
}

func (c *Client) submitJob(ctx context.Context, spec entity.CategorySpec, window entity.TimeWindow) (searchJobHandle, error) {
	const layout = "2006-01-02T15:04:05Z"
	body := searchJobRequest{
		Query:           spec.QueryTemplate,
		From:            window.Start.Format(layout),
		To:              window.End.Format(layout),
		TimeZone:        "UTC",
		ByReceiptTime:   spec.ByReceiptTime,
		AutoParsingMode: "AutoParse",
	}

	var handle searchJobHandle
	err := c.doJSON(ctx, http.MethodPost, "/search/jobs", body, &handle)
	if err != nil {
		return searchJobHandle{}, fmt.Errorf("submitting %s search job: %w", spec.Name, err)
	}
	log.WithFields(log.Fields{"category": spec.Name, "job": handle.ID, "window": window.String()}).
		Debug("search job submitted")
	return handle, nil
}

// awaitJob executa o polling explícito do estado do job, com contagem de
// iterações limitada pelo deadline maxWait.
func (c *Client) awaitJob(ctx context.Context, job searchJobHandle) (searchJobStatus, error) {
	deadline := time.Now().Add(c.maxWait)
	for {
		var status searchJobStatus
		err := c.doJSON(ctx, http.MethodGet, "/search/jobs/"+job.ID, nil, &status)
		if err != nil {
			return searchJobStatus{}, fmt.Errorf("polling search job %s: %w", job.ID, err)
		}

		switch status.State {
		case jobStateDone:
			return status, nil
		case jobStateCancelled, jobStatePaused:
			return searchJobStatus{}, &types.QueryFailedError{JobID: job.ID, State: status.State}
		}

		if time.Now().After(deadline) {
			return searchJobStatus{}, &types.QueryTimeoutError{JobID: job.ID, Waited: c.maxWait}
		}

		select {
		case <-ctx.Done():
			return searchJobStatus{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) collectRecords(ctx context.Context, job searchJobHandle, total int) ([]entity.RawUsageRecord, error) {
	records := make([]entity.RawUsageRecord, 0, total)
	for offset := 0; offset < total; offset += PageSize {
		var page searchJobRecords
		path := fmt.Sprintf("/search/jobs/%s/records?offset=%d&limit=%d", job.ID, offset, PageSize)
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("paging search job %s results: %w", job.ID, err)
		}
		if len(page.Records) == 0 {
			break
		}
		for _, r := range page.Records {
			records = append(records, entity.RawUsageRecord{Fields: r.Map})
		}
	}
	log.WithFields(log.Fields{"job": job.ID, "records": len(records)}).Debug("search job results collected")
	return records, nil
}

// doJSON executa uma chamada HTTP com retry para 429/5xx. Erros 401/403
// viram AuthError e abortam imediatamente.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	op := func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.accessID, c.accessKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &transientError{err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &types.AuthError{Platform: "sumologic", StatusCode: resp.StatusCode}
		}
		if resp.StatusCode >= 400 {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("%s %s returned HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(text)))
			if retry.RetryableStatus(resp.StatusCode) {
				return &transientError{err: err}
			}
			return err
		}
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return c.retry.Execute(ctx, op, func(err error) bool {
		_, transient := err.(*transientError)
		return transient
	})
}

// transientError marca falhas de rede e respostas 429/5xx para o
// classificador de retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
