package ws

import "github.com/radieske/coinflip-payout-engine/pkg/contracts/events"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// GameID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
}

// OutcomeUpdate é o que o navegador recebe quando um pagamento da partida termina
// ou é adiado
type OutcomeUpdate struct {
	GameID  string         `json:"gameId"`
	Payload events.Outcome `json:"payload"`
}
