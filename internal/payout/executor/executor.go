package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
	"github.com/radieske/coinflip-payout-engine/internal/payout/policy"
	"github.com/radieske/coinflip-payout-engine/internal/payout/queue"
	"github.com/radieske/coinflip-payout-engine/internal/payout/settle"
)

// Chain é a parte do RPC usada para pagar.
type Chain interface {
	SubmitTransfer(ctx context.Context, t model.Transfer) (txHash string, err error)
	AwaitConfirmation(ctx context.Context, txHash string) (model.Confirmation, error)
}

// Quoter cota a taxa de uma transferência (fee.Estimator).
type Quoter interface {
	Quote(ctx context.Context, transferSize *big.Int) (model.FeeQuote, error)
}

// Executor paga agora ou adia. É dono das mutações na fila de adiados
// e das marcas de jogos já pagos.
type Executor struct {
	log     *zap.Logger
	chain   Chain
	quoter  Quoter
	queue   queue.Deferred
	settled settle.Store
}

// New usa marcas em memória; WithSettlements troca pelo backend compartilhado.
func New(log *zap.Logger, c Chain, q Quoter, dq queue.Deferred) *Executor {
	return &Executor{log: log, chain: c, quoter: q, queue: dq, settled: settle.NewMemory()}
}

func (e *Executor) WithSettlements(s settle.Store) *Executor {
	e.settled = s
	return e
}

// CheckMargin falha com ErrInsufficientMargin quando a taxa consome o wager.
func CheckMargin(req model.PayoutRequest, quote model.FeeQuote) error {
	if policy.Covers(req.Wager(), quote.Fee) {
		return nil
	}
	return fmt.Errorf("%w: fee %s consumes wager %s", model.ErrInsufficientMargin, quote.Fee, req.Wager())
}

// Settled devolve a marca do jogo, se ele já foi pago ou está em conciliação.
func (e *Executor) Settled(ctx context.Context, gameID string) (string, bool, error) {
	return e.settled.Lookup(ctx, gameID)
}

// PayNow submete no máximo uma transferência de wager - fee por jogo.
// Margem insuficiente e jogo já pago falham antes de qualquer chamada à chain.
func (e *Executor) PayNow(ctx context.Context, req model.PayoutRequest, quote model.FeeQuote) model.Outcome {
	if err := CheckMargin(req, quote); err != nil {
		return model.Failure(req.RequestID, err).For(req).WithQuote(quote)
	}
	final := new(big.Int).Sub(req.Wager(), quote.Fee)

	reserved, err := e.settled.Reserve(ctx, req.GameID)
	if err != nil {
		return model.Failure(req.RequestID, fmt.Errorf("%w: settlement store: %v", model.ErrQueueUnavailable, err)).For(req).WithQuote(quote)
	}
	if !reserved {
		return model.Failure(req.RequestID, fmt.Errorf("%w: %s", model.ErrAlreadySettled, req.GameID)).For(req).WithQuote(quote)
	}

	out := e.submit(ctx, req, quote, final)
	e.settle(ctx, req.GameID, out)
	return out
}

// settle grava a marca final. Só uma rejeição comprovada libera o jogo.
func (e *Executor) settle(ctx context.Context, gameID string, out model.Outcome) {
	var err error
	switch {
	case out.Kind == model.OutcomeSuccess:
		err = e.settled.Finalize(ctx, gameID, settle.MarkPaid)
	case out.Reason.NeedsReconciliation():
		err = e.settled.Finalize(ctx, gameID, settle.MarkUnknown)
	default:
		err = e.settled.Release(ctx, gameID)
	}
	if err != nil {
		// a reserva continua valendo, então o jogo segue bloqueado
		e.log.Error("settlement mark not updated", zap.String("game_id", gameID), zap.Error(err))
	}
}

func (e *Executor) submit(ctx context.Context, req model.PayoutRequest, quote model.FeeQuote, final *big.Int) model.Outcome {
	txHash, err := e.chain.SubmitTransfer(ctx, model.Transfer{
		To:            req.Winner,
		Amount:        final,
		GasPrice:      quote.GasPrice,
		GasLimit:      quote.GasUnits,
		CredentialRef: req.CredentialRef,
	})
	if err != nil {
		if errors.Is(err, model.ErrBroadcastUnknown) {
			out := model.Failure(req.RequestID, fmt.Errorf("%w: %v", model.ErrConfirmationUnknown, err))
			out.TxHash = txHash
			return out.For(req).WithQuote(quote)
		}
		return model.Failure(req.RequestID, fmt.Errorf("%w: %v", model.ErrSubmissionRejected, err)).For(req).WithQuote(quote)
	}
	e.log.Info("payout submitted",
		zap.String("game_id", req.GameID),
		zap.String("tx_hash", txHash),
		zap.String("amount_wei", final.String()),
	)

	status, err := e.chain.AwaitConfirmation(ctx, txHash)
	if err != nil {
		out := model.Failure(req.RequestID, fmt.Errorf("%w: %v", model.ErrConfirmationUnknown, err))
		out.TxHash = txHash
		return out.For(req).WithQuote(quote)
	}
	if status == model.Reverted {
		out := model.Failure(req.RequestID, fmt.Errorf("%w: transaction reverted", model.ErrSubmissionRejected))
		out.TxHash = txHash
		return out.For(req).WithQuote(quote)
	}
	return model.Success(req.RequestID, txHash, final).For(req).WithQuote(quote)
}

// Defer enfileira o pedido. Re-adiar um id já enfileirado é no-op.
func (e *Executor) Defer(ctx context.Context, req model.PayoutRequest) (model.Outcome, error) {
	added, err := e.queue.Append(ctx, req)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %v", model.ErrQueueUnavailable, err)
	}
	if !added {
		e.log.Debug("payout already deferred", zap.String("game_id", req.GameID))
	}
	return model.Deferred(req.RequestID).For(req), nil
}

// RetryDeferred roda o pipeline completo para um pedido da fila.
// Em DEFER ou falha do estimador a entrada fica; em qualquer caminho terminal
// a entrada é removida antes, e só quem conseguiu remover continua.
// Os demais recebem ErrNotQueued.
func (e *Executor) RetryDeferred(ctx context.Context, requestID string) (model.Outcome, error) {
	req, err := e.queue.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, queue.ErrNotQueued) || errors.Is(err, model.ErrQueueCorruption) {
			return model.Outcome{}, err
		}
		return model.Outcome{}, fmt.Errorf("%w: %v", model.ErrQueueUnavailable, err)
	}

	quote, err := e.quoter.Quote(ctx, req.Wager())
	if err != nil {
		// sem cotação nada é submetido; a entrada fica para o próximo tick
		e.log.Warn("fee quote failed, payout stays deferred", zap.String("game_id", req.GameID), zap.Error(err))
		return model.Deferred(requestID).For(req).WithErr(err), nil
	}

	if merr := CheckMargin(req, quote); merr != nil {
		if err := e.claim(ctx, requestID); err != nil {
			return model.Outcome{}, err
		}
		return model.Failure(requestID, merr).For(req).WithQuote(quote), nil
	}

	if policy.Decide(req.Wager(), req.ThresholdPercent, quote.Fee) == model.Defer {
		e.log.Debug("payout still deferred",
			zap.String("game_id", req.GameID),
			zap.String("fee_wei", quote.Fee.String()),
		)
		return model.Deferred(requestID).For(req).WithQuote(quote), nil
	}

	if err := e.claim(ctx, requestID); err != nil {
		return model.Outcome{}, err
	}
	return e.PayNow(ctx, req, quote), nil
}

// Cancel remove um pedido adiado antes da submissão.
func (e *Executor) Cancel(ctx context.Context, requestID string) (model.Outcome, error) {
	req, err := e.queue.Get(ctx, requestID)
	if err != nil {
		return model.Outcome{}, err
	}
	if err := e.claim(ctx, requestID); err != nil {
		return model.Outcome{}, err
	}
	return model.Failure(requestID, model.ErrCancelled).For(req), nil
}

// Queued informa se o id está na fila.
func (e *Executor) Queued(ctx context.Context, requestID string) (bool, error) {
	_, err := e.queue.Get(ctx, requestID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, queue.ErrNotQueued):
		return false, nil
	default:
		return false, err
	}
}

func (e *Executor) claim(ctx context.Context, requestID string) error {
	removed, err := e.queue.Remove(ctx, requestID)
	if err != nil {
		if errors.Is(err, model.ErrQueueCorruption) {
			return err
		}
		return fmt.Errorf("%w: %v", model.ErrQueueUnavailable, err)
	}
	if !removed {
		return queue.ErrNotQueued
	}
	return nil
}
