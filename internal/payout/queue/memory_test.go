package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

func TestMemory(t *testing.T) {
	runDeferredSuite(t, func(*testing.T) Deferred { return NewMemory() })
}

func TestMemory_DetectsCorruption(t *testing.T) {
	q := NewMemory()
	_, err := q.Append(context.Background(), mustRequest(t, "dup"))
	require.NoError(t, err)

	// simula um bug que duplicou o id na ordem
	q.order = append(q.order, "dup")

	_, err = q.Remove(context.Background(), "dup")
	require.ErrorIs(t, err, model.ErrQueueCorruption)
}
