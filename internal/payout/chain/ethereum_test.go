package chain

import (
	"context"
	"errors"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

const winner = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

type fakeBackend struct {
	mu       sync.Mutex
	sent     []*types.Transaction
	sendErr  error
	receipts []*types.Receipt // consumidos em ordem; nil = NotFound
	estimate ethereum.CallMsg
	balance  *big.Int
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(11155111), nil }

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.estimate = msg
	return 21000, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return f.sendErr
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	r := f.receipts[0]
	f.receipts = f.receipts[1:]
	if r == nil {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func newClient(t *testing.T, b *fakeBackend, opts Options) *Client {
	t.Helper()
	kr, err := ParseKeyRing(testKey)
	require.NoError(t, err)
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	c, err := New(context.Background(), zap.NewNop(), b, kr, opts)
	require.NoError(t, err)
	return c
}

func transfer() model.Transfer {
	return model.Transfer{
		To:       winner,
		Amount:   big.NewInt(970),
		GasPrice: big.NewInt(2_000_000_000),
		GasLimit: 21000,
	}
}

func TestEstimateFee(t *testing.T) {
	b := &fakeBackend{}
	c := newClient(t, b, Options{})

	price, units, err := c.EstimateFee(context.Background(), big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000_000), price.Int64())
	assert.Equal(t, uint64(21000), units)

	hot, _ := c.HotWallet()
	assert.Equal(t, hot, b.estimate.From)
	assert.Equal(t, int64(1000), b.estimate.Value.Int64())
}

func TestSubmitTransfer_SignsForChain(t *testing.T) {
	b := &fakeBackend{}
	c := newClient(t, b, Options{})

	hash, err := c.SubmitTransfer(context.Background(), transfer())
	require.NoError(t, err)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	assert.Equal(t, tx.Hash().Hex(), hash)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, int64(970), tx.Value().Int64())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, common.HexToAddress(winner), *tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), tx)
	require.NoError(t, err)
	hot, _ := c.HotWallet()
	assert.Equal(t, hot, sender)
}

func TestSubmitTransfer_Errors(t *testing.T) {
	t.Run("transport error is indeterminate", func(t *testing.T) {
		b := &fakeBackend{sendErr: &net.OpError{Op: "write", Net: "tcp", Err: errors.New("broken pipe")}}
		c := newClient(t, b, Options{})

		hash, err := c.SubmitTransfer(context.Background(), transfer())
		require.ErrorIs(t, err, model.ErrBroadcastUnknown)
		assert.NotEmpty(t, hash)
	})

	t.Run("node rejection", func(t *testing.T) {
		b := &fakeBackend{sendErr: errors.New("insufficient funds for gas * price + value")}
		c := newClient(t, b, Options{})

		hash, err := c.SubmitTransfer(context.Background(), transfer())
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrBroadcastUnknown)
		assert.Empty(t, hash)
	})

	t.Run("unknown credential", func(t *testing.T) {
		b := &fakeBackend{}
		c := newClient(t, b, Options{})
		tr := transfer()
		tr.CredentialRef = "nope"

		_, err := c.SubmitTransfer(context.Background(), tr)
		require.ErrorIs(t, err, ErrUnknownCredential)
		assert.Empty(t, b.sent)
	})
}

func TestAwaitConfirmation(t *testing.T) {
	t.Run("polls until receipt", func(t *testing.T) {
		b := &fakeBackend{receipts: []*types.Receipt{nil, nil, {Status: types.ReceiptStatusSuccessful}}}
		c := newClient(t, b, Options{})

		st, err := c.AwaitConfirmation(context.Background(), "0x01")
		require.NoError(t, err)
		assert.Equal(t, model.Confirmed, st)
	})

	t.Run("reverted", func(t *testing.T) {
		b := &fakeBackend{receipts: []*types.Receipt{{Status: types.ReceiptStatusFailed}}}
		c := newClient(t, b, Options{})

		st, err := c.AwaitConfirmation(context.Background(), "0x01")
		require.NoError(t, err)
		assert.Equal(t, model.Reverted, st)
	})

	t.Run("timeout", func(t *testing.T) {
		b := &fakeBackend{}
		c := newClient(t, b, Options{ConfirmTimeout: 20 * time.Millisecond})

		_, err := c.AwaitConfirmation(context.Background(), "0x01")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestBalance(t *testing.T) {
	b := &fakeBackend{balance: big.NewInt(42)}
	c := newClient(t, b, Options{})

	bal, err := c.Balance(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal.Int64())
}

func TestWatchBalance(t *testing.T) {
	b := &fakeBackend{balance: big.NewInt(5)}
	c := newClient(t, b, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan int64, 1)
	go c.WatchBalance(ctx, time.Hour, func(v *big.Int) {
		got <- v.Int64()
		cancel()
	})

	select {
	case v := <-got:
		assert.Equal(t, int64(5), v)
	case <-time.After(time.Second):
		t.Fatal("balance not reported")
	}
}
