package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

func TestDecode(t *testing.T) {
	cmd, err := Decode([]byte(`{"type":"payout_requested","payout_requested":{"winner":"0xabc","amount":"1.5","game_id":"g1","threshold":0}}`))
	require.NoError(t, err)
	require.NotNil(t, cmd.Requested)
	assert.Equal(t, "g1", cmd.GameID())
	require.NotNil(t, cmd.Requested.Threshold, "zero threshold is explicit")
	assert.Equal(t, uint8(0), *cmd.Requested.Threshold)

	cmd, err = Decode([]byte(`{"type":"payout_requested","payout_requested":{"winner":"0xabc","amount":"1","game_id":"g2"}}`))
	require.NoError(t, err)
	assert.Nil(t, cmd.Requested.Threshold)

	cmd, err = Decode([]byte(`{"type":"retry_deferred","retry_deferred":{"game_id":"g1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "g1", cmd.GameID())

	bad := []string{
		`not json`,
		`{"type":"retry_deferred"}`,
		`{"type":"cancel_deferred","cancel_deferred":{"game_id":""}}`,
		`{"type":"payout_requested","payout_requested":{"winner":"0xabc","amount":"1"}}`,
		`{"type":"bet_placed"}`,
		`{"type":"payout_requested","payout_requested":{"game_id":"g","threshold":300}}`,
	}
	for _, b := range bad {
		_, err := Decode([]byte(b))
		assert.ErrorIs(t, err, ErrInvalidCommand, b)
	}
}

type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

type fakeDLQ struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func TestProcessorRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		{Key: []byte("g1"), Value: []byte(`{"type":"retry_deferred","retry_deferred":{"game_id":"g1"}}`)},
		{Key: []byte("g2"), Value: []byte(`garbage`)},
		{Key: []byte("g3"), Value: []byte(`{"type":"cancel_deferred","cancel_deferred":{"game_id":"g3"}}`)},
	}}
	dlq := &fakeDLQ{}
	var consumed []string
	stages := map[string]int{}

	p := &Processor{
		Log:        zap.NewNop(),
		Reader:     reader,
		DLQ:        dlq,
		OnConsumed: func(typ string) { consumed = append(consumed, typ) },
		OnError:    func(stage string) { stages[stage]++ },
	}

	out := make(chan events.Command, 10)
	err := p.Run(ctx, out)
	require.ErrorIs(t, err, context.Canceled)

	var got []string
	for cmd := range out {
		got = append(got, cmd.GameID())
	}
	assert.Equal(t, []string{"g1", "g3"}, got)
	assert.Equal(t, []string{events.TypeRetryDeferred, events.TypeCancelDeferred}, consumed)
	assert.Equal(t, 1, stages["decode"])
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "g2", string(dlq.msgs[0].Key))
}

func TestProcessorRun_DLQFailureIsCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{cancel: cancel, msgs: []kafka.Message{{Value: []byte(`{}`)}}}
	stages := map[string]int{}
	p := &Processor{
		Log:     zap.NewNop(),
		Reader:  reader,
		DLQ:     &fakeDLQ{err: errors.New("broker down")},
		OnError: func(stage string) { stages[stage]++ },
	}

	_ = p.Run(ctx, make(chan events.Command, 1))
	assert.Equal(t, 1, stages["decode"])
	assert.Equal(t, 1, stages["dlq"])
}
