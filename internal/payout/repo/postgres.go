package repo

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/google/uuid"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

// Postgres grava a trilha de auditoria dos pagamentos
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o ledger de tentativas de pagamento
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Record insere uma linha por outcome emitido
func (p *Postgres) Record(ctx context.Context, out model.Outcome) error {
	var gasPrice, fee sql.NullString
	var gasUnits sql.NullInt64
	if out.Quote != nil {
		gasPrice = numeric(out.Quote.GasPrice)
		fee = numeric(out.Quote.Fee)
		gasUnits = sql.NullInt64{Int64: int64(out.Quote.GasUnits), Valid: true}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payout_attempts (attempt_id,game_id,winner,wager_wei,threshold_percent,
			gas_price_wei,gas_units,fee_wei,outcome,reason,tx_hash,final_amount_wei,needs_reconciliation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		uuid.NewString(), out.RequestID, out.Request.Winner, out.Request.Wager().String(), int16(out.Request.ThresholdPercent),
		gasPrice, gasUnits, fee, string(out.Kind), text(string(out.Reason)), text(out.TxHash),
		numeric(out.FinalAmount), out.Reason.NeedsReconciliation(),
	)
	return err
}

// ListByGame retorna as tentativas de um jogo em ordem cronológica
func (p *Postgres) ListByGame(ctx context.Context, gameID string) ([]Attempt, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT attempt_id,game_id,winner,wager_wei::text,threshold_percent,
			COALESCE(gas_price_wei::text,''),COALESCE(gas_units,0),COALESCE(fee_wei::text,''),
			outcome,COALESCE(reason,''),COALESCE(tx_hash,''),COALESCE(final_amount_wei::text,''),
			needs_reconciliation,created_at
		FROM payout_attempts WHERE game_id=$1 ORDER BY created_at, attempt_id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// PendingReconciliation lista as tentativas que exigem conciliação manual
func (p *Postgres) PendingReconciliation(ctx context.Context) ([]Attempt, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT attempt_id,game_id,winner,wager_wei::text,threshold_percent,
			COALESCE(gas_price_wei::text,''),COALESCE(gas_units,0),COALESCE(fee_wei::text,''),
			outcome,COALESCE(reason,''),COALESCE(tx_hash,''),COALESCE(final_amount_wei::text,''),
			needs_reconciliation,created_at
		FROM payout_attempts WHERE needs_reconciliation ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var pct int16
		var units int64
		if err := rows.Scan(&a.ID, &a.GameID, &a.Winner, &a.WagerWei, &pct,
			&a.GasPriceWei, &units, &a.FeeWei, &a.Outcome, &a.Reason, &a.TxHash,
			&a.FinalAmountWei, &a.NeedsReconciliation, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ThresholdPercent = uint8(pct)
		a.GasUnits = uint64(units)
		out = append(out, a)
	}
	return out, rows.Err()
}

func numeric(v *big.Int) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
