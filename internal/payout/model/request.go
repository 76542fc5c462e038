package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PayoutRequest é criado quando uma partida termina. Imutável após a criação:
// os getters devolvem cópias do valor apostado.
type PayoutRequest struct {
	RequestID        string
	GameID           string
	Winner           string
	wager            *big.Int // wei
	ThresholdPercent uint8
	CredentialRef    string
	CreatedAt        time.Time
}

// NewPayoutRequest valida os campos e copia o valor. O id da partida é o id da requisição.
func NewPayoutRequest(gameID, winner string, wager *big.Int, thresholdPercent uint8, credentialRef string) (PayoutRequest, error) {
	if gameID == "" {
		return PayoutRequest{}, fmt.Errorf("%w: game_id required", ErrInvalidRequest)
	}
	if !common.IsHexAddress(winner) {
		return PayoutRequest{}, fmt.Errorf("%w: winner %q is not an address", ErrInvalidRequest, winner)
	}
	if wager == nil || wager.Sign() <= 0 {
		return PayoutRequest{}, fmt.Errorf("%w: wager must be positive", ErrInvalidRequest)
	}
	if thresholdPercent > 100 {
		return PayoutRequest{}, fmt.Errorf("%w: threshold %d out of range", ErrInvalidRequest, thresholdPercent)
	}
	return PayoutRequest{
		RequestID:        gameID,
		GameID:           gameID,
		Winner:           common.HexToAddress(winner).Hex(),
		wager:            new(big.Int).Set(wager),
		ThresholdPercent: thresholdPercent,
		CredentialRef:    credentialRef,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Wager retorna uma cópia do valor apostado em wei.
func (r PayoutRequest) Wager() *big.Int {
	if r.wager == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.wager)
}

// FeeQuote é derivado por requisição e não é persistido.
type FeeQuote struct {
	GasPrice *big.Int
	GasUnits uint64
	Fee      *big.Int
}

func NewFeeQuote(gasPrice *big.Int, gasUnits uint64) FeeQuote {
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasUnits))
	return FeeQuote{GasPrice: new(big.Int).Set(gasPrice), GasUnits: gasUnits, Fee: fee}
}

type Decision int

const (
	PayNow Decision = iota
	Defer
)

func (d Decision) String() string {
	if d == Defer {
		return "DEFER"
	}
	return "PAY_NOW"
}

type payoutRequestJSON struct {
	RequestID        string    `json:"request_id"`
	GameID           string    `json:"game_id"`
	Winner           string    `json:"winner"`
	WagerWei         string    `json:"wager_wei"`
	ThresholdPercent uint8     `json:"threshold_percent"`
	CredentialRef    string    `json:"credential_ref,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// MarshalJSON grava o valor em wei como string decimal, sem perda de precisão.
func (r PayoutRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(payoutRequestJSON{
		RequestID:        r.RequestID,
		GameID:           r.GameID,
		Winner:           r.Winner,
		WagerWei:         r.Wager().String(),
		ThresholdPercent: r.ThresholdPercent,
		CredentialRef:    r.CredentialRef,
		CreatedAt:        r.CreatedAt,
	})
}

func (r *PayoutRequest) UnmarshalJSON(b []byte) error {
	var raw payoutRequestJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	wager, ok := new(big.Int).SetString(raw.WagerWei, 10)
	if !ok {
		return fmt.Errorf("%w: wager_wei %q", ErrInvalidRequest, raw.WagerWei)
	}
	*r = PayoutRequest{
		RequestID:        raw.RequestID,
		GameID:           raw.GameID,
		Winner:           raw.Winner,
		wager:            wager,
		ThresholdPercent: raw.ThresholdPercent,
		CredentialRef:    raw.CredentialRef,
		CreatedAt:        raw.CreatedAt,
	}
	return nil
}
