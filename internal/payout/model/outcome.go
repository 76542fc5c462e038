package model

import "math/big"

type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeDeferred OutcomeKind = "deferred"
	OutcomeFailure  OutcomeKind = "failure"
)

// Outcome é o resultado de um pipeline. Success e Failure são terminais;
// Deferred não.
type Outcome struct {
	Kind        OutcomeKind
	RequestID   string
	TxHash      string
	FinalAmount *big.Int
	Reason      Reason
	Err         error

	// Request é o pedido que originou o outcome, quando conhecido.
	Request PayoutRequest

	// Quote é preenchido quando o pipeline chegou a cotar a taxa (auditoria).
	Quote *FeeQuote
}

func Success(requestID, txHash string, final *big.Int) Outcome {
	return Outcome{Kind: OutcomeSuccess, RequestID: requestID, TxHash: txHash, FinalAmount: final}
}

func Deferred(requestID string) Outcome {
	return Outcome{Kind: OutcomeDeferred, RequestID: requestID}
}

// Failure deriva o Reason do erro.
func Failure(requestID string, err error) Outcome {
	return Outcome{Kind: OutcomeFailure, RequestID: requestID, Reason: ReasonFor(err), Err: err}
}

func (o Outcome) Terminal() bool { return o.Kind != OutcomeDeferred }

// For anota o outcome com o pedido de origem.
func (o Outcome) For(req PayoutRequest) Outcome {
	o.Request = req
	return o
}

// WithQuote devolve uma cópia do outcome anotada com a cotação usada.
func (o Outcome) WithQuote(q FeeQuote) Outcome {
	o.Quote = &q
	return o
}

// WithErr anota um outcome não terminal com o erro que o manteve adiado.
func (o Outcome) WithErr(err error) Outcome {
	o.Err = err
	o.Reason = ReasonFor(err)
	return o
}
