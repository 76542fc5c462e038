package fee

import (
	"context"
	"fmt"
	"math/big"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

// Oracle é a parte do RPC da chain usada para cotar gás.
type Oracle interface {
	EstimateFee(ctx context.Context, transferSize *big.Int) (gasPrice *big.Int, gasUnits uint64, err error)
}

// Estimator produz um FeeQuote por chamada. Não faz retry: a política de
// nova tentativa fica com quem chama.
type Estimator struct {
	oracle Oracle
}

func NewEstimator(o Oracle) *Estimator { return &Estimator{oracle: o} }

// Quote faz exatamente uma chamada ao oracle.
func (e *Estimator) Quote(ctx context.Context, transferSize *big.Int) (model.FeeQuote, error) {
	gasPrice, gasUnits, err := e.oracle.EstimateFee(ctx, transferSize)
	if err != nil {
		return model.FeeQuote{}, fmt.Errorf("%w: %v", model.ErrRPCUnavailable, err)
	}
	if gasPrice == nil || gasPrice.Sign() <= 0 {
		return model.FeeQuote{}, fmt.Errorf("%w: gas price %v", model.ErrInvalidResponse, gasPrice)
	}
	if gasUnits == 0 {
		return model.FeeQuote{}, fmt.Errorf("%w: zero gas estimate", model.ErrInvalidResponse)
	}
	return model.NewFeeQuote(gasPrice, gasUnits), nil
}
