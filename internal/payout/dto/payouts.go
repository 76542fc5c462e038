package dto

import "time"

// PayoutRequest é o corpo de POST /payouts
type PayoutRequest struct {
	Winner     string `json:"winner"`
	Amount     string `json:"amount"` // ETH
	GameID     string `json:"game_id"`
	Threshold  *uint8 `json:"threshold,omitempty"`
	Credential string `json:"credential,omitempty"`
}

type AcceptedResponse struct {
	GameID string `json:"game_id"`
	Status string `json:"status"`
}

type DeferredPayout struct {
	GameID    string    `json:"game_id"`
	Winner    string    `json:"winner"`
	Amount    string    `json:"amount"`
	Threshold uint8     `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

type WalletResponse struct {
	Address    string `json:"address"`
	BalanceWei string `json:"balance_wei"`
	Balance    string `json:"balance"` // ETH
}

type Attempt struct {
	AttemptID           string    `json:"attempt_id"`
	Outcome             string    `json:"outcome"`
	Reason              string    `json:"reason,omitempty"`
	TxHash              string    `json:"txHash,omitempty"`
	FeeWei              string    `json:"fee_wei,omitempty"`
	NeedsReconciliation bool      `json:"needs_reconciliation"`
	CreatedAt           time.Time `json:"created_at"`
}
