package settle

import "context"

// Marcas gravadas por jogo. Uma vez gravada, o jogo não recebe outra submissão.
const (
	MarkPaying  = "paying"  // reservado antes do SubmitTransfer
	MarkPaid    = "paid"    // transferência confirmada
	MarkUnknown = "unknown" // confirmation_unknown: aguardando conciliação manual
)

// Store guarda o estado final de cada jogo pago (ou possivelmente pago).
// Reserve é atômico: entre réplicas, só uma recebe reserved=true.
type Store interface {
	Reserve(ctx context.Context, gameID string) (reserved bool, err error)
	// Finalize sobrescreve a reserva com MarkPaid ou MarkUnknown.
	Finalize(ctx context.Context, gameID, mark string) error
	// Release desfaz a reserva quando a transferência comprovadamente não foi aplicada.
	Release(ctx context.Context, gameID string) error
	Lookup(ctx context.Context, gameID string) (mark string, found bool, err error)
}
