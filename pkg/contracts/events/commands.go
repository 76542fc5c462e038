package events

import "time"

// Tipos de comando aceitos pelo payout-service
const (
	TypePayoutRequested = "payout_requested"
	TypeRetryDeferred   = "retry_deferred"
	TypeCancelDeferred  = "cancel_deferred"
)

// PayoutRequested é emitido quando uma partida termina e o vencedor precisa ser pago.
// Amount vem em ETH (string decimal), como o navegador envia.
type PayoutRequested struct {
	Winner     string `json:"winner"`
	Amount     string `json:"amount"`
	GameID     string `json:"game_id"`
	Threshold  *uint8 `json:"threshold,omitempty"`  // percentual 0..100; ausente usa o default do serviço
	Credential string `json:"credential,omitempty"` // referência opaca da chave de assinatura
}

// RetryDeferred pede uma nova tentativa para um pagamento adiado.
type RetryDeferred struct {
	GameID string `json:"game_id"`
}

// CancelDeferred remove um pagamento adiado antes da submissão.
type CancelDeferred struct {
	GameID string `json:"game_id"`
}

// Command é o envelope trafegado no tópico payout_commands.
// Apenas o campo correspondente a Type vem preenchido.
type Command struct {
	Type      string           `json:"type"`
	Requested *PayoutRequested `json:"payout_requested,omitempty"`
	Retry     *RetryDeferred   `json:"retry_deferred,omitempty"`
	Cancel    *CancelDeferred  `json:"cancel_deferred,omitempty"`
	Ts        time.Time        `json:"ts"`
}

// GameID retorna o id da partida referenciada pelo comando, qualquer que seja o tipo.
func (c Command) GameID() string {
	switch {
	case c.Requested != nil:
		return c.Requested.GameID
	case c.Retry != nil:
		return c.Retry.GameID
	case c.Cancel != nil:
		return c.Cancel.GameID
	}
	return ""
}
