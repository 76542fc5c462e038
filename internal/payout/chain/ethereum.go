package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

// Backend é o subconjunto do ethclient usado pelo adapter.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Options struct {
	// ConfirmTimeout limita a espera pelo recibo. Zero = só o contexto do chamador.
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	// Credential usada nas estimativas (carteira quente padrão).
	Credential string
}

// Client implementa o RPC da chain sobre go-ethereum.
type Client struct {
	log     *zap.Logger
	rpc     Backend
	keys    *KeyRing
	chainID *big.Int
	opts    Options
}

// Dial conecta no nó e descobre o chain id.
func Dial(ctx context.Context, log *zap.Logger, rpcURL string, keys *KeyRing, opts Options) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return New(ctx, log, rpc, keys, opts)
}

func New(ctx context.Context, log *zap.Logger, rpc Backend, keys *KeyRing, opts Options) (*Client, error) {
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Credential == "" {
		opts.Credential = DefaultCredential
	}
	return &Client{log: log, rpc: rpc, keys: keys, chainID: chainID, opts: opts}, nil
}

// EstimateFee devolve gas price e gas units para uma transferência nativa do tamanho dado.
func (c *Client) EstimateFee(ctx context.Context, size *big.Int) (*big.Int, uint64, error) {
	from, err := c.keys.Address(c.opts.Credential)
	if err != nil {
		return nil, 0, err
	}
	price, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get gas price: %w", err)
	}
	units, err := c.rpc.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &from, Value: size})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return price, units, nil
}

// SubmitTransfer assina e transmite a transferência. Quando a transmissão falha
// por transporte o hash já é conhecido e o erro carrega ErrBroadcastUnknown.
func (c *Client) SubmitTransfer(ctx context.Context, t model.Transfer) (string, error) {
	if !common.IsHexAddress(t.To) {
		return "", fmt.Errorf("invalid recipient %q", t.To)
	}
	key, err := c.keys.Resolve(t.CredentialRef)
	if err != nil {
		return "", err
	}
	from, _ := c.keys.Address(t.CredentialRef)

	nonce, err := c.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(t.To), t.Amount, t.GasLimit, t.GasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	hash := signed.Hash().Hex()

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		if indeterminate(err) {
			return hash, fmt.Errorf("%w: %v", model.ErrBroadcastUnknown, err)
		}
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	c.log.Debug("transaction sent",
		zap.String("tx_hash", hash),
		zap.Uint64("nonce", nonce),
		zap.String("to", t.To),
	)
	return hash, nil
}

// AwaitConfirmation consulta o recibo até ele existir, o timeout vencer ou o contexto acabar.
func (c *Client) AwaitConfirmation(ctx context.Context, txHash string) (model.Confirmation, error) {
	if c.opts.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConfirmTimeout)
		defer cancel()
	}
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				return model.Confirmed, nil
			}
			return model.Reverted, nil
		case errors.Is(err, ethereum.NotFound):
		default:
			c.log.Warn("receipt lookup failed", zap.String("tx_hash", txHash), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("waiting receipt for %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Balance devolve o saldo da carteira quente da credencial.
func (c *Client) Balance(ctx context.Context, credential string) (*big.Int, error) {
	if credential == "" {
		credential = c.opts.Credential
	}
	addr, err := c.keys.Address(credential)
	if err != nil {
		return nil, err
	}
	return c.rpc.BalanceAt(ctx, addr, nil)
}

// HotWallet devolve o endereço da credencial padrão.
func (c *Client) HotWallet() (common.Address, error) {
	return c.keys.Address(c.opts.Credential)
}

// indeterminate diz se o nó pode ter recebido a transação apesar do erro.
func indeterminate(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// WatchBalance consulta o saldo da carteira quente a cada intervalo até o contexto acabar.
func (c *Client) WatchBalance(ctx context.Context, every time.Duration, fn func(*big.Int)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if bal, err := c.Balance(ctx, ""); err != nil {
			c.log.Warn("hot wallet balance failed", zap.Error(err))
		} else {
			fn(bal)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
