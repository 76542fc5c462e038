package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const weiDecimals = 18

// ParseEther converte um valor em ETH (string decimal) para wei.
// Frações menores que 1 wei são rejeitadas em vez de truncadas.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidRequest, s, err)
	}
	wei := d.Shift(weiDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: amount %q has sub-wei precision", ErrInvalidRequest, s)
	}
	return wei.BigInt(), nil
}

// FormatEther formata wei como ETH sem zeros à direita.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}
