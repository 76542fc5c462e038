package retrier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

type DeferredLister interface {
	List(ctx context.Context) ([]model.PayoutRequest, error)
}

type CommandPublisher interface {
	PublishCommand(ctx context.Context, c events.Command) error
}

// Retrier é o timer externo: a cada Interval publica um retry_deferred por
// partida adiada. Quem decide pagar ou não é o coordenador.
type Retrier struct {
	Log       *zap.Logger
	Queue     DeferredLister
	Publisher CommandPublisher
	Interval  time.Duration

	OnPublished func()       // métricas
	OnDepth     func(n int)  // métricas (gauge)
	OnError     func(string) // métricas por fase
}

// Run executa um ciclo imediatamente e depois a cada Interval.
func (r *Retrier) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick publica um comando por pedido na fila e devolve quantos publicou.
func (r *Retrier) Tick(ctx context.Context) int {
	reqs, err := r.Queue.List(ctx)
	if err != nil {
		r.Log.Warn("list deferred failed", zap.Error(err))
		r.onError("list")
		return 0
	}
	if r.OnDepth != nil {
		r.OnDepth(len(reqs))
	}

	sent := 0
	for _, req := range reqs {
		cmd := events.Command{
			Type:  events.TypeRetryDeferred,
			Retry: &events.RetryDeferred{GameID: req.GameID},
			Ts:    time.Now().UTC(),
		}
		if err := r.Publisher.PublishCommand(ctx, cmd); err != nil {
			r.Log.Warn("publish retry failed", zap.String("game_id", req.GameID), zap.Error(err))
			r.onError("publish")
			continue
		}
		sent++
		if r.OnPublished != nil {
			r.OnPublished()
		}
	}
	if sent > 0 {
		r.Log.Info("deferred payouts retried", zap.Int("count", sent))
	}
	return sent
}

func (r *Retrier) onError(stage string) {
	if r.OnError != nil {
		r.OnError(stage)
	}
}
