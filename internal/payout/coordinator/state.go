package coordinator

// State é a etapa de um pedido dentro do pipeline.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateQuoting   State = "QUOTING"
	StatePaying    State = "PAYING"
	StateQueued    State = "QUEUED"
	StateConfirmed State = "CONFIRMED"
	StateFailed    State = "FAILED"
)

// Terminal indica que não há mais transições a partir do estado.
func (s State) Terminal() bool { return s == StateConfirmed || s == StateFailed }

var transitions = map[State][]State{
	StateReceived: {StateQuoting},
	StateQuoting:  {StatePaying, StateQueued, StateFailed},
	StatePaying:   {StateConfirmed, StateFailed},
	StateQueued:   {StateQuoting, StateFailed}, // FAILED via cancelamento
}

// CanTransition valida uma aresta da máquina de estados.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
