package repo

import "time"

// Attempt é uma linha de payout_attempts: uma execução do pipeline.
type Attempt struct {
	ID                  string
	GameID              string
	Winner              string
	WagerWei            string
	ThresholdPercent    uint8
	GasPriceWei         string
	GasUnits            uint64
	FeeWei              string
	Outcome             string
	Reason              string
	TxHash              string
	FinalAmountWei      string
	NeedsReconciliation bool
	CreatedAt           time.Time
}
