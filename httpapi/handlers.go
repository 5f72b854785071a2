package httpapi

import (
	"net/http"
	"strconv"

	"rewardledger/models"
)

// Handler binds engine operations to HTTP
type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type openAccountRequest struct {
	Timezone string `json:"timezone"`
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type accountTransferRequest struct {
	ToAccountID string `json:"to_account_id"`
	Amount      int64  `json:"amount"`
}

type subscribeRequest struct {
	Level int `json:"level"`
}

// respond writes result, or the mapped error
func respond[T any](w http.ResponseWriter, r *http.Request, result T, err error) {
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	wallet, err := h.engine.OpenAccount(r.Context(), AccountID(r.Context()), req.Timezone)
	respond(w, r, wallet, err)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.engine.GetWallet(r.Context(), AccountID(r.Context()))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet.Balances())
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine.Deposit(r.Context(), AccountID(r.Context()), req.Amount)
	respond(w, r, result, err)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine.Withdraw(r.Context(), AccountID(r.Context()), req.Amount)
	respond(w, r, result, err)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := models.ParseCurrencyField(req.From)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	to, err := models.ParseCurrencyField(req.To)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	result, err := h.engine.Transfer(r.Context(), AccountID(r.Context()), from, to, req.Amount)
	respond(w, r, result, err)
}

func (h *Handler) TransferToAccount(w http.ResponseWriter, r *http.Request) {
	var req accountTransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine.TransferToAccount(r.Context(), AccountID(r.Context()), req.ToAccountID, req.Amount)
	respond(w, r, result, err)
}

func (h *Handler) ConvertStars(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine.ConvertStars(r.Context(), AccountID(r.Context()), req.Amount)
	respond(w, r, result, err)
}

// GetTransactions handles GET /wallet/transactions?kind=&limit=&offset=
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	var filter models.EntryFilter
	q := r.URL.Query()

	if raw := q.Get("kind"); raw != "" {
		kind, err := models.ParseEntryKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Kind = &kind
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	entries, err := h.engine.GetTransactions(r.Context(), AccountID(r.Context()), filter)
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	respond(w, r, entries, err)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.Reconcile(r.Context(), AccountID(r.Context()))
	respond(w, r, rec, err)
}

func (h *Handler) GetVipLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GetVipLevels())
}

func (h *Handler) GetVipStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.GetVipStatus(r.Context(), AccountID(r.Context()))
	respond(w, r, status, err)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := h.engine.Subscribe(r.Context(), AccountID(r.Context()), req.Level)
	respond(w, r, status, err)
}

func (h *Handler) ToggleAutoRenew(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.ToggleAutoRenew(r.Context(), AccountID(r.Context()))
	respond(w, r, status, err)
}

func (h *Handler) CancelVip(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.CancelVip(r.Context(), AccountID(r.Context()))
	respond(w, r, status, err)
}

func (h *Handler) TrackActivity(w http.ResponseWriter, r *http.Request) {
	progress, err := h.engine.TrackActivity(r.Context(), AccountID(r.Context()))
	respond(w, r, progress, err)
}

func (h *Handler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.ClaimReward(r.Context(), AccountID(r.Context()))
	respond(w, r, result, err)
}

func (h *Handler) GetActivityStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.GetActivityStatus(r.Context(), AccountID(r.Context()))
	respond(w, r, status, err)
}

func (h *Handler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.GetDailySummary(r.Context(), AccountID(r.Context()))
	respond(w, r, summary, err)
}

func (h *Handler) GetCharityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.GetCharityStats(r.Context())
	respond(w, r, stats, err)
}
