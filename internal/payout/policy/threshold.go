package policy

import (
	"math/big"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

var hundred = big.NewInt(100)

// ThresholdValue = wager * pct / 100, truncado.
func ThresholdValue(wager *big.Int, thresholdPercent uint8) *big.Int {
	v := new(big.Int).Mul(wager, big.NewInt(int64(thresholdPercent)))
	return v.Quo(v, hundred)
}

// Decide adia quando a taxa passa do limite; empate paga.
func Decide(wager *big.Int, thresholdPercent uint8, estimatedFee *big.Int) model.Decision {
	if estimatedFee.Cmp(ThresholdValue(wager, thresholdPercent)) > 0 {
		return model.Defer
	}
	return model.PayNow
}

// Covers informa se sobra algo do wager depois da taxa. Sem margem o
// pagamento falha, qualquer que seja o threshold.
func Covers(wager, estimatedFee *big.Int) bool {
	return estimatedFee.Cmp(wager) < 0
}
