package topics

const (
	// Comandos vindos do canal de eventos da UI
	PayoutCommands = "payout_commands"

	// Resultados do pipeline de pagamento
	PayoutOutcomes = "payout_outcomes"

	// DLQs
	PayoutCommandsDLQ = "payout_commands_dlq"
)
