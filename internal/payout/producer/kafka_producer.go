package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

// MessageWriter é a parte do *kafka.Writer usada pelos publishers.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica outcomes ou comandos, sempre com o game_id como chave.
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// Emit publica um outcome em payout_outcomes.
func (p *KafkaPublisher) Emit(ctx context.Context, o events.Outcome) error {
	if o.Ts.IsZero() {
		o.Ts = time.Now().UTC()
	}
	return p.write(ctx, o.GameID, o)
}

// PublishCommand publica um comando em payout_commands.
func (p *KafkaPublisher) PublishCommand(ctx context.Context, c events.Command) error {
	if c.Ts.IsZero() {
		c.Ts = time.Now().UTC()
	}
	return p.write(ctx, c.GameID(), c)
}

func (p *KafkaPublisher) write(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b, Time: time.Now()})
}
