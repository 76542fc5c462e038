package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payout reúne os coletores do motor de pagamentos.
type Payout struct {
	CommandsConsumed *prometheus.CounterVec // type
	ConsumerErrors   *prometheus.CounterVec // stage
	Outcomes         *prometheus.CounterVec // kind, reason
	Transitions      *prometheus.CounterVec // to
	RetriesPublished prometheus.Counter
	QueueDepth       prometheus.Gauge
	HotWalletBalance prometheus.Gauge // ETH
}

// NewPayout cria e registra os coletores em reg.
func NewPayout(reg prometheus.Registerer) *Payout {
	m := &Payout{
		CommandsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "payout_commands_consumed_total", Help: "comandos consumidos"}, []string{"type"}),
		ConsumerErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "payout_consumer_errors_total", Help: "erros por estágio"}, []string{"stage"}),
		Outcomes:         prometheus.NewCounterVec(prometheus.CounterOpts{Name: "payout_outcomes_total", Help: "outcomes emitidos"}, []string{"kind", "reason"}),
		Transitions:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "payout_transitions_total", Help: "transições de estado"}, []string{"to"}),
		RetriesPublished: prometheus.NewCounter(prometheus.CounterOpts{Name: "payout_retries_published_total", Help: "retry_deferred publicados"}),
		QueueDepth:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "payout_deferred_queue_depth", Help: "pedidos adiados na fila"}),
		HotWalletBalance: prometheus.NewGauge(prometheus.GaugeOpts{Name: "payout_hot_wallet_balance_eth", Help: "saldo da carteira quente"}),
	}
	reg.MustRegister(m.CommandsConsumed, m.ConsumerErrors, m.Outcomes, m.Transitions,
		m.RetriesPublished, m.QueueDepth, m.HotWalletBalance)
	return m
}
