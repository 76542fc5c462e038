package queue

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

const winner = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func mustRequest(t *testing.T, gameID string) model.PayoutRequest {
	t.Helper()
	r, err := model.NewPayoutRequest(gameID, winner, big.NewInt(1_000_000), 5, "hot")
	require.NoError(t, err)
	return r
}

// runDeferredSuite exercita o contrato de Deferred em qualquer backend.
func runDeferredSuite(t *testing.T, newQueue func(t *testing.T) Deferred) {
	ctx := context.Background()

	t.Run("append is idempotent", func(t *testing.T) {
		q := newQueue(t)
		req := mustRequest(t, "game-1")

		added, err := q.Append(ctx, req)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = q.Append(ctx, req)
		require.NoError(t, err)
		assert.False(t, added)

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("order is preserved", func(t *testing.T) {
		q := newQueue(t)
		for _, id := range []string{"a", "b", "c"} {
			_, err := q.Append(ctx, mustRequest(t, id))
			require.NoError(t, err)
		}
		_, err := q.Remove(ctx, "b")
		require.NoError(t, err)
		_, err = q.Append(ctx, mustRequest(t, "b"))
		require.NoError(t, err)

		list, err := q.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, r := range list {
			ids = append(ids, r.RequestID)
		}
		assert.Equal(t, []string{"a", "c", "b"}, ids)
	})

	t.Run("get round trips the request", func(t *testing.T) {
		q := newQueue(t)
		req := mustRequest(t, "game-rt")
		_, err := q.Append(ctx, req)
		require.NoError(t, err)

		got, err := q.Get(ctx, "game-rt")
		require.NoError(t, err)
		assert.Equal(t, req.Winner, got.Winner)
		assert.Equal(t, req.Wager().String(), got.Wager().String())
		assert.Equal(t, req.ThresholdPercent, got.ThresholdPercent)

		_, err = q.Get(ctx, "missing")
		require.ErrorIs(t, err, ErrNotQueued)
	})

	t.Run("remove missing is not an error", func(t *testing.T) {
		q := newQueue(t)
		removed, err := q.Remove(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("concurrent removes claim once", func(t *testing.T) {
		q := newQueue(t)
		_, err := q.Append(ctx, mustRequest(t, "contended"))
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				removed, err := q.Remove(ctx, "contended")
				assert.NoError(t, err)
				if removed {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("concurrent appends store once", func(t *testing.T) {
		q := newQueue(t)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := q.Append(ctx, mustRequest(t, fmt.Sprintf("g-%d", n%4)))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("list stays consistent while entries are claimed", func(t *testing.T) {
		q := newQueue(t)
		for i := 0; i < 50; i++ {
			_, err := q.Append(ctx, mustRequest(t, fmt.Sprintf("l-%d", i)))
			require.NoError(t, err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 50; i++ {
				_, err := q.Remove(ctx, fmt.Sprintf("l-%d", i))
				assert.NoError(t, err)
			}
		}()

		for {
			select {
			case <-done:
				list, err := q.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, list)
				return
			default:
				_, err := q.List(ctx)
				require.NoError(t, err)
			}
		}
	})
}
