package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/executor"
	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
	"github.com/radieske/coinflip-payout-engine/internal/payout/policy"
	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

var (
	// ErrInFlight: já existe um pipeline ativo para o mesmo id neste processo.
	ErrInFlight       = errors.New("payout already in flight")
	ErrUnknownCommand = errors.New("unknown command")
)

// Emitter publica os eventos de saída para o canal da UI.
type Emitter interface {
	Emit(ctx context.Context, o events.Outcome) error
}

// Recorder guarda a trilha de auditoria de cada execução do pipeline.
type Recorder interface {
	Record(ctx context.Context, o model.Outcome) error
}

// Options agrupa parâmetros opcionais do Coordinator.
// Callbacks de métricas seguem o mesmo padrão do consumer.
type Options struct {
	DefaultThreshold  uint8
	DefaultCredential string
	Recorder          Recorder

	OnTransition func(to State)
	OnOutcome    func(kind model.OutcomeKind, reason model.Reason)
}

// Coordinator é o único ponto de entrada: recebe comandos, conduz
// FeeEstimator -> ThresholdPolicy -> PayoutExecutor e emite um evento por resultado.
type Coordinator struct {
	log    *zap.Logger
	quoter executor.Quoter
	exec   *executor.Executor
	emit   Emitter
	opts   Options

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(log *zap.Logger, q executor.Quoter, ex *executor.Executor, em Emitter, opts Options) *Coordinator {
	return &Coordinator{
		log:      log,
		quoter:   q,
		exec:     ex,
		emit:     em,
		opts:     opts,
		inflight: make(map[string]struct{}),
	}
}

// Run consome comandos até o canal fechar ou o contexto ser cancelado.
// Cada comando roda em sua goroutine; pipelines em andamento não são
// interrompidos pelo cancelamento (uma transferência enviada é irrevogável).
// Retorna imediatamente em caso de corrupção da fila.
func (c *Coordinator) Run(ctx context.Context, cmds <-chan events.Command) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	fatal := make(chan error, 1)
	hctx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-fatal:
			return err
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.Handle(hctx, cmd); err != nil {
					if errors.Is(err, model.ErrQueueCorruption) {
						select {
						case fatal <- err:
						default:
						}
					}
				}
			}()
		}
	}
}

// Handle processa um comando de forma síncrona.
func (c *Coordinator) Handle(ctx context.Context, cmd events.Command) error {
	var err error
	switch {
	case cmd.Type == events.TypePayoutRequested && cmd.Requested != nil:
		err = c.HandleRequested(ctx, *cmd.Requested)
	case cmd.Type == events.TypeRetryDeferred && cmd.Retry != nil:
		err = c.HandleRetry(ctx, cmd.Retry.GameID)
	case cmd.Type == events.TypeCancelDeferred && cmd.Cancel != nil:
		err = c.HandleCancel(ctx, cmd.Cancel.GameID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	if err != nil {
		lvl := c.log.Warn
		if errors.Is(err, model.ErrQueueCorruption) {
			lvl = c.log.Error
		}
		lvl("command not completed",
			zap.String("type", cmd.Type),
			zap.String("game_id", cmd.GameID()),
			zap.Error(err),
		)
	}
	return err
}

// HandleRequested roda o pipeline para um novo pedido de pagamento.
func (c *Coordinator) HandleRequested(ctx context.Context, ev events.PayoutRequested) error {
	req, err := c.buildRequest(ev)
	if err != nil {
		c.finish(ctx, model.Failure(ev.GameID, err))
		return err
	}
	if !c.acquire(req.RequestID) {
		return fmt.Errorf("%w: %s", ErrInFlight, req.RequestID)
	}
	defer c.release(req.RequestID)

	// Jogo já pago (ou em conciliação) não entra de novo no pipeline.
	mark, settled, err := c.exec.Settled(ctx, req.GameID)
	if err != nil {
		err = fmt.Errorf("%w: settlement lookup: %v", model.ErrQueueUnavailable, err)
		c.enter(req.RequestID, "", StateReceived)
		c.enter(req.RequestID, StateReceived, StateQuoting)
		c.enter(req.RequestID, StateQuoting, StateFailed)
		c.finish(ctx, model.Failure(req.RequestID, err).For(req))
		return err
	}
	if settled {
		return fmt.Errorf("%w: %s (%s)", model.ErrAlreadySettled, req.GameID, mark)
	}

	c.enter(req.RequestID, "", StateReceived)

	// Um id já enfileirado não ganha um segundo pipeline: vira retry.
	queued, err := c.exec.Queued(ctx, req.RequestID)
	if err != nil {
		if errors.Is(err, model.ErrQueueCorruption) {
			c.enter(req.RequestID, StateReceived, StateQuoting)
			c.enter(req.RequestID, StateQuoting, StateFailed)
			c.finish(ctx, model.Failure(req.RequestID, err).For(req))
		}
		return err
	}
	if queued {
		c.log.Info("payout already queued, retrying", zap.String("game_id", req.GameID))
		return c.retry(ctx, req.RequestID, StateReceived)
	}

	c.enter(req.RequestID, StateReceived, StateQuoting)
	quote, err := c.quoter.Quote(ctx, req.Wager())
	if err != nil {
		c.enter(req.RequestID, StateQuoting, StateFailed)
		c.finish(ctx, model.Failure(req.RequestID, err).For(req))
		return nil
	}
	if err := executor.CheckMargin(req, quote); err != nil {
		c.enter(req.RequestID, StateQuoting, StateFailed)
		c.finish(ctx, model.Failure(req.RequestID, err).For(req).WithQuote(quote))
		return nil
	}

	decision := policy.Decide(req.Wager(), req.ThresholdPercent, quote.Fee)
	c.log.Info("payout decided",
		zap.String("game_id", req.GameID),
		zap.String("decision", decision.String()),
		zap.String("wager_wei", req.Wager().String()),
		zap.String("fee_wei", quote.Fee.String()),
		zap.Uint8("threshold_percent", req.ThresholdPercent),
	)

	if decision == model.Defer {
		out, err := c.exec.Defer(ctx, req)
		if err != nil {
			c.enter(req.RequestID, StateQuoting, StateFailed)
			c.finish(ctx, model.Failure(req.RequestID, err).For(req).WithQuote(quote))
			return nil
		}
		c.enter(req.RequestID, StateQuoting, StateQueued)
		c.finish(ctx, out.WithQuote(quote))
		return nil
	}

	c.enter(req.RequestID, StateQuoting, StatePaying)
	out := c.exec.PayNow(ctx, req, quote)
	c.enter(req.RequestID, StatePaying, terminalState(out))
	c.finish(ctx, out)
	return nil
}

// HandleRetry reentra em QUOTING para um pedido adiado.
func (c *Coordinator) HandleRetry(ctx context.Context, gameID string) error {
	if !c.acquire(gameID) {
		return fmt.Errorf("%w: %s", ErrInFlight, gameID)
	}
	defer c.release(gameID)
	return c.retry(ctx, gameID, StateQueued)
}

func (c *Coordinator) retry(ctx context.Context, id string, from State) error {
	c.enter(id, from, StateQuoting)
	out, err := c.exec.RetryDeferred(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrQueueCorruption) {
			c.enter(id, StateQuoting, StateFailed)
			c.finish(ctx, model.Failure(id, err))
		}
		return err
	}

	switch {
	case out.Kind == model.OutcomeDeferred:
		c.enter(id, StateQuoting, StateQueued)
	case errors.Is(out.Err, model.ErrInsufficientMargin):
		c.enter(id, StateQuoting, StateFailed)
	default:
		c.enter(id, StateQuoting, StatePaying)
		c.enter(id, StatePaying, terminalState(out))
	}
	c.finish(ctx, out)
	return nil
}

// HandleCancel remove um pedido adiado. Depois da submissão não há cancelamento.
func (c *Coordinator) HandleCancel(ctx context.Context, gameID string) error {
	if !c.acquire(gameID) {
		return fmt.Errorf("%w: %s", ErrInFlight, gameID)
	}
	defer c.release(gameID)

	out, err := c.exec.Cancel(ctx, gameID)
	if err != nil {
		return err
	}
	c.enter(gameID, StateQueued, StateFailed)
	c.finish(ctx, out)
	return nil
}

func (c *Coordinator) buildRequest(ev events.PayoutRequested) (model.PayoutRequest, error) {
	wager, err := model.ParseEther(ev.Amount)
	if err != nil {
		return model.PayoutRequest{}, err
	}
	threshold := c.opts.DefaultThreshold
	if ev.Threshold != nil {
		threshold = *ev.Threshold
	}
	cred := ev.Credential
	if cred == "" {
		cred = c.opts.DefaultCredential
	}
	return model.NewPayoutRequest(ev.GameID, ev.Winner, wager, threshold, cred)
}

// finish emite exatamente um evento para o outcome e registra a auditoria.
func (c *Coordinator) finish(ctx context.Context, out model.Outcome) {
	if err := c.emit.Emit(ctx, ToEvent(out)); err != nil {
		c.log.Error("emit outcome failed", zap.String("game_id", out.RequestID), zap.Error(err))
	}
	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Record(ctx, out); err != nil {
			c.log.Warn("ledger record failed", zap.String("game_id", out.RequestID), zap.Error(err))
		}
	}
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(out.Kind, out.Reason)
	}

	fields := []zap.Field{
		zap.String("game_id", out.RequestID),
		zap.String("outcome", string(out.Kind)),
	}
	if out.TxHash != "" {
		fields = append(fields, zap.String("tx_hash", out.TxHash))
	}
	switch {
	case out.Reason.NeedsReconciliation():
		c.log.Error("payout needs manual reconciliation", append(fields, zap.Error(out.Err))...)
	case out.Kind == model.OutcomeFailure:
		c.log.Warn("payout failed", append(fields, zap.String("reason", string(out.Reason)), zap.Error(out.Err))...)
	case out.Err != nil:
		c.log.Warn("payout stays deferred", append(fields, zap.String("reason", string(out.Reason)), zap.Error(out.Err))...)
	default:
		c.log.Info("payout outcome", fields...)
	}
}

func (c *Coordinator) enter(id string, from, to State) {
	if from != "" && !CanTransition(from, to) {
		c.log.DPanic("illegal transition", zap.String("game_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	}
	c.log.Debug("transition", zap.String("game_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(to)
	}
}

func (c *Coordinator) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

func terminalState(out model.Outcome) State {
	if out.Kind == model.OutcomeSuccess {
		return StateConfirmed
	}
	return StateFailed
}

// ToEvent converte um outcome no evento publicado para a UI.
func ToEvent(out model.Outcome) events.Outcome {
	ev := events.Outcome{GameID: out.RequestID, Ts: time.Now().UTC()}
	switch out.Kind {
	case model.OutcomeSuccess:
		ev.Type = events.TypePayoutSuccess
		ev.Success = &events.PayoutSuccess{
			GameID: out.RequestID,
			TxHash: out.TxHash,
			Amount: model.FormatEther(out.FinalAmount),
		}
	case model.OutcomeDeferred:
		ev.Type = events.TypePayoutDelayed
		ev.Delayed = &events.PayoutDelayed{GameID: out.RequestID, Winner: out.Request.Winner}
	default:
		ev.Type = events.TypePayoutFailure
		ev.Failure = &events.PayoutFailure{
			GameID:              out.RequestID,
			Error:               string(out.Reason),
			TxHash:              out.TxHash,
			NeedsReconciliation: out.Reason.NeedsReconciliation(),
		}
	}
	return ev
}
