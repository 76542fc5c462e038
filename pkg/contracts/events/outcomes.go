package events

import "time"

// Tipos de evento publicados para a UI
const (
	TypePayoutSuccess = "payout_success"
	TypePayoutFailure = "payout_failure"
	TypePayoutDelayed = "payout_delayed"
)

type PayoutSuccess struct {
	GameID string `json:"game_id"`
	TxHash string `json:"txHash"`
	Amount string `json:"amount"` // valor líquido pago, em ETH
}

// PayoutFailure carrega o motivo da falha. NeedsReconciliation indica que a
// transferência pode ter entrado na chain e NÃO deve ser tentada de novo.
type PayoutFailure struct {
	GameID              string `json:"game_id"`
	Error               string `json:"error"`
	TxHash              string `json:"txHash,omitempty"`
	NeedsReconciliation bool   `json:"needs_reconciliation"`
}

type PayoutDelayed struct {
	GameID string `json:"game_id"`
	Winner string `json:"winner"`
}

// Outcome é o envelope publicado no tópico payout_outcomes e no canal Redis do WS.
type Outcome struct {
	Type    string         `json:"type"`
	GameID  string         `json:"game_id"`
	Success *PayoutSuccess `json:"payout_success,omitempty"`
	Failure *PayoutFailure `json:"payout_failure,omitempty"`
	Delayed *PayoutDelayed `json:"payout_delayed,omitempty"`
	Ts      time.Time      `json:"ts"`
}
