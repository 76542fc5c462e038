package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/dto"
	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
	"github.com/radieske/coinflip-payout-engine/internal/payout/repo"
	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

type CommandPublisher interface {
	PublishCommand(ctx context.Context, c events.Command) error
}

type DeferredLister interface {
	List(ctx context.Context) ([]model.PayoutRequest, error)
}

type Wallet interface {
	Balance(ctx context.Context, credential string) (*big.Int, error)
	HotWallet() (common.Address, error)
}

type Ledger interface {
	ListByGame(ctx context.Context, gameID string) ([]repo.Attempt, error)
}

// API expõe os endpoints REST do motor de pagamentos
// Comandos são publicados em payout_commands e processados pelo consumer
type API struct {
	Log      *zap.Logger
	Commands CommandPublisher
	Deferred DeferredLister
	Wallet   Wallet           // opcional
	Ledger   Ledger           // opcional
	WS       http.HandlerFunc // opcional
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Post("/payouts", a.requestPayout)
	r.Post("/payouts/{gameId}/retry", a.retryPayout)
	r.Delete("/payouts/{gameId}", a.cancelPayout)
	r.Get("/payouts/deferred", a.listDeferred)
	r.Get("/payouts/wallet", a.wallet)
	r.Get("/payouts/{gameId}/attempts", a.attempts)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestPayout valida o pedido e publica payout_requested
func (a *API) requestPayout(w http.ResponseWriter, r *http.Request) {
	var req dto.PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	wager, err := model.ParseEther(req.Amount)
	if err == nil {
		threshold := uint8(0)
		if req.Threshold != nil {
			threshold = *req.Threshold
		}
		_, err = model.NewPayoutRequest(req.GameID, req.Winner, wager, threshold, req.Credential)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a.publish(w, r, events.Command{
		Type: events.TypePayoutRequested,
		Requested: &events.PayoutRequested{
			Winner:     req.Winner,
			Amount:     req.Amount,
			GameID:     req.GameID,
			Threshold:  req.Threshold,
			Credential: req.Credential,
		},
	})
}

func (a *API) retryPayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameId")
	a.publish(w, r, events.Command{Type: events.TypeRetryDeferred, Retry: &events.RetryDeferred{GameID: id}})
}

func (a *API) cancelPayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameId")
	a.publish(w, r, events.Command{Type: events.TypeCancelDeferred, Cancel: &events.CancelDeferred{GameID: id}})
}

func (a *API) publish(w http.ResponseWriter, r *http.Request, cmd events.Command) {
	if err := a.Commands.PublishCommand(r.Context(), cmd); err != nil {
		a.Log.Error("publish command failed", zap.String("type", cmd.Type), zap.String("game_id", cmd.GameID()), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "command not accepted")
		return
	}
	writeJSON(w, http.StatusAccepted, dto.AcceptedResponse{GameID: cmd.GameID(), Status: "ACCEPTED"})
}

func (a *API) listDeferred(w http.ResponseWriter, r *http.Request) {
	reqs, err := a.Deferred.List(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrQueueCorruption) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	out := make([]dto.DeferredPayout, 0, len(reqs))
	for _, q := range reqs {
		out = append(out, dto.DeferredPayout{
			GameID:    q.GameID,
			Winner:    q.Winner,
			Amount:    model.FormatEther(q.Wager()),
			Threshold: q.ThresholdPercent,
			CreatedAt: q.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) wallet(w http.ResponseWriter, r *http.Request) {
	if a.Wallet == nil {
		writeError(w, http.StatusNotImplemented, "wallet not configured")
		return
	}
	addr, err := a.Wallet.HotWallet()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	bal, err := a.Wallet.Balance(r.Context(), "")
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{
		Address:    addr.Hex(),
		BalanceWei: bal.String(),
		Balance:    model.FormatEther(bal),
	})
}

func (a *API) attempts(w http.ResponseWriter, r *http.Request) {
	if a.Ledger == nil {
		writeError(w, http.StatusNotImplemented, "ledger not configured")
		return
	}
	rows, err := a.Ledger.ListByGame(r.Context(), chi.URLParam(r, "gameId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	out := make([]dto.Attempt, 0, len(rows))
	for _, at := range rows {
		out = append(out, dto.Attempt{
			AttemptID:           at.ID,
			Outcome:             at.Outcome,
			Reason:              at.Reason,
			TxHash:              at.TxHash,
			FeeWei:              at.FeeWei,
			NeedsReconciliation: at.NeedsReconciliation,
			CreatedAt:           at.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
