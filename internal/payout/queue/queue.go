package queue

import (
	"context"
	"errors"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

// ErrNotQueued indica que o requestId não está (mais) na fila.
var ErrNotQueued = errors.New("request not queued")

// Deferred é a fila de pagamentos adiados. Entradas só entram no fim e só
// saem por Remove; um requestId aparece no máximo uma vez.
// Append e Remove são atômicos em relação a requisições concorrentes.
type Deferred interface {
	// Append retorna added=false quando o id já está na fila (no-op).
	Append(ctx context.Context, req model.PayoutRequest) (added bool, err error)
	Get(ctx context.Context, requestID string) (model.PayoutRequest, error)
	// Remove retorna removed=false quando o id não está na fila.
	// Só quem recebe removed=true pode seguir para a submissão.
	Remove(ctx context.Context, requestID string) (removed bool, err error)
	List(ctx context.Context) ([]model.PayoutRequest, error)
	Len(ctx context.Context) (int, error)
}
