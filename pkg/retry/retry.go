// Package retry implementa o loop explícito de retry com backoff
// exponencial e jitter usado em torno das chamadas de rede do adaptador.
package retry

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

// Classifier decide se um erro vale nova tentativa.
type Classifier func(err error) bool

// Policy descreve o comportamento de backoff. O zero value não é utilizável;
// use Default ou preencha todos os campos.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter é a fração aleatória somada a cada delay (0.2 = até +20%).
	Jitter float64

	// Sleep e Rand são pontos de injeção para testes; nil usa os padrões.
	Sleep func(time.Duration)
	Rand  *rand.Rand
}

// Default é a política aplicada às chamadas de rede do pipeline.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
	}
}

// Execute roda op até obter sucesso, um erro não-retryable, o contexto ser
// cancelado ou as tentativas se esgotarem. O esgotamento devolve um
// *types.RetryExhaustedError embrulhando o último erro observado.
func (p Policy) Execute(ctx context.Context, op func(ctx context.Context) error, retryable Classifier) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	delay := p.BaseDelay
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = op(ctx)
		if last == nil {
			return nil
		}
		if !retryable(last) {
			return last
		}
		if attempt == p.MaxAttempts {
			break
		}

		sleep(p.withJitter(delay))
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return &types.RetryExhaustedError{Attempts: p.MaxAttempts, Last: last}
}

func (p Policy) withJitter(d time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return d
	}
	r := p.Rand
	var f float64
	if r != nil {
		f = r.Float64()
	} else {
		f = rand.Float64()
	}
	return d + time.Duration(f*p.Jitter*float64(d))
}

// RetryableStatus classifica códigos HTTP: 429 e 5xx valem nova tentativa;
// 401/403 são fatais (credenciais); demais 4xx são requisições malformadas e
// também não devem ser repetidos.
func RetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}
