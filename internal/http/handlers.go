package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"lottoledger/internal/core"
	"lottoledger/internal/log"
	"lottoledger/internal/services"
)

// maxBodyBytes caps PATCH bodies; an update carries one short value.
const maxBodyBytes = 16 << 10

// transactionView is the API shape of a transaction. Amounts are decimal
// strings so clients never see float rounding.
type transactionView struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	GameID    *int    `json:"gameId"`
	GameName  string  `json:"gameName"`
	GameTime  string  `json:"gameTime"`
	Sales     string  `json:"sales"`
	Profit13  string  `json:"profit13"`
	Expense   string  `json:"expense"`
	Notes     string  `json:"notes"`
	CreatedAt *string `json:"createdAt,omitempty"`
}

func newTransactionView(t core.Transaction) transactionView {
	v := transactionView{
		ID:       t.ID,
		Date:     t.Date,
		GameName: t.GameName,
		GameTime: t.GameTime,
		Sales:    t.Sales.StringFixed(2),
		Profit13: t.Profit13.StringFixed(2),
		Expense:  t.Expense.StringFixed(2),
		Notes:    t.Notes,
	}
	if t.HasGame() {
		id := t.GameID
		v.GameID = &id
	}
	if !t.CreatedAt.IsZero() {
		ts := t.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
		v.CreatedAt = &ts
	}
	return v
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	return out
}

// updateRequest carries the new value as raw JSON: the view sends numbers
// for sales and gameId and strings for the other fields.
type updateRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

var errBadValue = errors.New("value must be a string, a number or null")

// valueText renders a string, number or null value as the text the ledger
// parses. Numbers keep their literal digits.
func valueText(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", errBadValue
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	default:
		return "", errBadValue
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	remote := s.ledger.RemoteName()
	if remote == "" {
		remote = "none"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "remote": remote})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var txs []core.Transaction
	switch strings.TrimSpace(r.URL.Query().Get("order")) {
	case "", "display":
		txs = s.ledger.Sorted()
	case "insertion":
		txs = s.ledger.All()
	default:
		writeError(w, http.StatusBadRequest, "order must be display or insertion")
		return
	}
	writeJSON(w, http.StatusOK, newTransactionViews(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx := s.ledger.Create(r.Context())
	s.events.LogTransactionChanged(r.Context(), log.OpCreate, tx.ID, "")
	w.Header().Set("Location", "/api/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, newTransactionView(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.ledger.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value, err := valueText(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.Update(r.Context(), id, req.Field, value); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.events.LogError(r.Context(), "Transaction update failed", err, log.ComponentLedger, log.OpUpdate,
			log.NewFields().WithTransaction(id, req.Field))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	s.events.LogTransactionChanged(r.Context(), log.OpUpdate, id, req.Field)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.ledger.Remove(r.Context(), id)
	s.events.LogTransactionChanged(r.Context(), log.OpDelete, id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.DailySummary(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	logSummary(r, sum)
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.MonthlySummary(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	logSummary(r, sum)
	writeJSON(w, http.StatusOK, sum)
}

func logSummary(r *http.Request, sum core.Summary) {
	log.FromContext(r.Context()).DebugContext(r.Context(), "Summary computed",
		log.FieldOperation, log.OpSummary, log.FieldPeriod, sum.Period, log.FieldCount, sum.Count)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.ledger.Games(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleSyncSave(w http.ResponseWriter, r *http.Request) {
	s.writeSync(w, r, log.OpSave, s.ledger.SaveRemote(r.Context()))
}

func (s *Server) handleSyncLoad(w http.ResponseWriter, r *http.Request) {
	s.writeSync(w, r, log.OpLoad, s.ledger.LoadRemote(r.Context()))
}

// writeSync always answers 200: a failed sync is reported in the body and
// the local ledger stays usable.
func (s *Server) writeSync(w http.ResponseWriter, r *http.Request, op string, res services.SyncResult) {
	s.events.LogSync(r.Context(), op, s.ledger.RemoteName(), res.OK, res.Count, res.Notice)
	writeJSON(w, http.StatusOK, res)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrUnknownField,
		core.ErrDerivedField,
		core.ErrInvalidDate,
		core.ErrUnknownGame,
		core.ErrInvalidGameID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
