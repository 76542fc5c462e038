package model

import "errors"

// Taxonomia de erros do motor de pagamentos.
var (
	ErrRPCUnavailable      = errors.New("rpc unavailable")
	ErrInvalidResponse     = errors.New("invalid rpc response")
	ErrInsufficientMargin  = errors.New("insufficient margin")
	ErrSubmissionRejected  = errors.New("submission rejected")
	ErrConfirmationUnknown = errors.New("confirmation unknown")
	ErrQueueCorruption     = errors.New("queue corruption")
	ErrQueueUnavailable    = errors.New("deferred queue unavailable")
	ErrCancelled           = errors.New("payout cancelled")

	// ErrBroadcastUnknown é devolvido pelo adaptador de chain quando a transação
	// foi assinada mas não sabemos se o broadcast chegou ao nó.
	ErrBroadcastUnknown = errors.New("broadcast outcome unknown")

	ErrInvalidRequest = errors.New("invalid payout request")

	// ErrAlreadySettled: o jogo já foi pago ou aguarda conciliação.
	ErrAlreadySettled = errors.New("payout already settled")
)

// Reason é o código de falha exposto nos eventos de saída.
type Reason string

const (
	ReasonRPCUnavailable      Reason = "rpc_unavailable"
	ReasonInvalidResponse     Reason = "invalid_response"
	ReasonInsufficientMargin  Reason = "insufficient_margin"
	ReasonSubmissionRejected  Reason = "submission_rejected"
	ReasonConfirmationUnknown Reason = "confirmation_unknown"
	ReasonQueueCorruption     Reason = "queue_corruption"
	ReasonQueueUnavailable    Reason = "queue_unavailable"
	ReasonCancelled           Reason = "cancelled"
	ReasonInvalidRequest      Reason = "invalid_request"
	ReasonAlreadySettled      Reason = "already_settled"
)

// ReasonFor mapeia um erro da taxonomia para o código correspondente.
// Erros fora da taxonomia viram submission_rejected.
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrRPCUnavailable):
		return ReasonRPCUnavailable
	case errors.Is(err, ErrInvalidResponse):
		return ReasonInvalidResponse
	case errors.Is(err, ErrInsufficientMargin):
		return ReasonInsufficientMargin
	case errors.Is(err, ErrConfirmationUnknown), errors.Is(err, ErrBroadcastUnknown):
		return ReasonConfirmationUnknown
	case errors.Is(err, ErrQueueCorruption):
		return ReasonQueueCorruption
	case errors.Is(err, ErrQueueUnavailable):
		return ReasonQueueUnavailable
	case errors.Is(err, ErrCancelled):
		return ReasonCancelled
	case errors.Is(err, ErrInvalidRequest):
		return ReasonInvalidRequest
	case errors.Is(err, ErrAlreadySettled):
		return ReasonAlreadySettled
	default:
		return ReasonSubmissionRejected
	}
}

// NeedsReconciliation indica que o estado on-chain é indeterminado:
// a UI deve pedir conciliação manual, nunca "tente de novo".
func (r Reason) NeedsReconciliation() bool { return r == ReasonConfirmationUnknown }
