package types

import (
	"fmt"
	"time"
)

// AuthError indica credenciais inválidas ou expiradas em uma das plataformas.
// Nunca deve ser re-tentado.
type AuthError struct {
	Platform   string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed (HTTP %d): check credentials", e.Platform, e.StatusCode)
}

// QueryTimeoutError indica que um search job não terminou dentro da janela
// máxima de polling.
type QueryTimeoutError struct {
	JobID  string
	Waited time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("search job %s did not complete within %s", e.JobID, e.Waited)
}

// QueryFailedError indica que a plataforma de origem reportou o job como
// cancelado ou com erro.
type QueryFailedError struct {
	JobID string
	State string
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("search job %s ended in state %q", e.JobID, e.State)
}

// MalformedRecordError marks a raw record that could not be normalized.
// The record is skipped; the pipeline continues.
type MalformedRecordError struct {
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed usage record: %s", e.Reason)
}

// PayloadTooLargeError indica que o destino rejeitou um batch por tamanho.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds ingestion limit of %d bytes", e.Size, e.Limit)
}

// IngestionRejectedError is a destination 4xx that is neither an auth nor a
// size failure. Fatal for the affected batch; sibling batches continue.
type IngestionRejectedError struct {
	StatusCode int
	Body       string
}

func (e *IngestionRejectedError) Error() string {
	return fmt.Sprintf("ingestion rejected batch (HTTP %d): %s", e.StatusCode, e.Body)
}

// RetryExhaustedError carrega o último erro observado após esgotar as
// tentativas de retry.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }
