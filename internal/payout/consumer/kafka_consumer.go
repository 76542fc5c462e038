package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

var ErrInvalidCommand = errors.New("invalid command")

// MessageReader é a parte do *kafka.Reader usada aqui.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter é a parte do *kafka.Writer usada para a DLQ.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor consome comandos de pagamento do Kafka e os entrega ao coordenador
// Mensagens que não decodificam vão para a DLQ, quando configurada
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	DLQ    MessageWriter

	OnConsumed func(cmdType string) // métricas (counter++)
	OnError    func(stage string)   // métricas por fase
}

// Run lê até o contexto acabar e fecha out ao sair.
func (p *Processor) Run(ctx context.Context, out chan<- events.Command) error {
	defer close(out)
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.onError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		cmd, err := Decode(m.Value)
		if err != nil {
			p.Log.Warn("invalid message", zap.String("key", string(m.Key)), zap.Error(err))
			p.onError("decode")
			p.deadLetter(ctx, m)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed(cmd.Type)
		}

		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	dlq := kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.onError("dlq")
	}
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// Decode valida o envelope de comando e o payload do seu tipo.
func Decode(b []byte) (events.Command, error) {
	var cmd events.Command
	if err := json.Unmarshal(b, &cmd); err != nil {
		return events.Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	switch cmd.Type {
	case events.TypePayoutRequested:
		if cmd.Requested == nil || cmd.Requested.GameID == "" {
			return events.Command{}, fmt.Errorf("%w: payout_requested without game_id", ErrInvalidCommand)
		}
	case events.TypeRetryDeferred:
		if cmd.Retry == nil || cmd.Retry.GameID == "" {
			return events.Command{}, fmt.Errorf("%w: retry_deferred without game_id", ErrInvalidCommand)
		}
	case events.TypeCancelDeferred:
		if cmd.Cancel == nil || cmd.Cancel.GameID == "" {
			return events.Command{}, fmt.Errorf("%w: cancel_deferred without game_id", ErrInvalidCommand)
		}
	default:
		return events.Command{}, fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, cmd.Type)
	}
	return cmd, nil
}
