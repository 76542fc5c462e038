package producer

import (
	"context"
	"errors"

	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

type Emitter interface {
	Emit(ctx context.Context, o events.Outcome) error
}

// Multi entrega o mesmo outcome a todos os emitters, mesmo que algum falhe.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, o events.Outcome) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
