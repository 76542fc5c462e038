package producer

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

const ChannelOutcomesBroadcast = "payout_outcomes_broadcast"

// WSUpdate é o payload trafegado no pub/sub e lido pelo hub de WebSocket.
type WSUpdate struct {
	GameID  string         `json:"gameId"`
	Payload events.Outcome `json:"payload"`
}

type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelOutcomesBroadcast
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

// Emit publica o outcome para os WS conectados.
func (b *RedisBroadcaster) Emit(ctx context.Context, o events.Outcome) error {
	payload, err := json.Marshal(WSUpdate{GameID: o.GameID, Payload: o})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
