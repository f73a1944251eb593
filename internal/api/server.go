// Package api exposes the ledger engine over JSON. Handlers are thin
// glue that decodes, validates, delegates and encodes; all semantics
// live in the ledger, balance, realtime and reminder packages.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/realtime"
	"github.com/tallyhq/tally/internal/reminder"
	"github.com/tallyhq/tally/internal/storage"
)

// Server wires the core components behind an HTTP router.
type Server struct {
	ledger      *ledger.Ledger
	store       storage.Store
	workflow    *reminder.Workflow
	coordinator *realtime.Coordinator
}

// NewServer builds a Server over the given components.
func NewServer(l *ledger.Ledger, store storage.Store, w *reminder.Workflow, c *realtime.Coordinator) *Server {
	return &Server{ledger: l, store: store, workflow: w, coordinator: c}
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/reload", s.handleReload)

	r.Route("/groups", func(r chi.Router) {
		r.Post("/", s.handleCreateGroup)
		r.Get("/", s.handleListGroups)
		r.Get("/{groupID}", s.handleGetGroup)
		r.Get("/{groupID}/balances", s.handleBalances)
		r.Get("/{groupID}/debtors", s.handleDebtors)
		r.Post("/{groupID}/reminders", s.handleSendReminders)
		r.Post("/{groupID}/invitations", s.handleInvite)
		r.Post("/{groupID}/invitations/{memberID}/accept", s.handleAccept)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", s.handleCreateExpense)
		r.Patch("/{expenseID}", s.handleUpdateExpense)
		r.Delete("/{expenseID}", s.handleDeleteExpense)
	})

	r.Route("/settlements", func(r chi.Router) {
		r.Post("/", s.handleCreateSettlement)
		r.Delete("/{settlementID}", s.handleDeleteSettlement)
		r.Post("/{settlementID}/confirm", s.handleConfirmSettlement)
	})

	r.Get("/members/{memberID}/owes", s.handleMemberOwes)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"bus": s.coordinator.State().String(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reload(r.Context(), s.store); err != nil {
		slog.Error("reload failed", "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody parses a JSON body with numbers preserved as json.Number,
// so amounts never round-trip through float64.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps core errors to HTTP statuses: validation to 400,
// unknown ids to 404, everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmptyDescription),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrEmptySplit),
		errors.Is(err, models.ErrDuplicateSplitMember),
		errors.Is(err, models.ErrSelfSettlement),
		errors.Is(err, models.ErrEmptyGroupName),
		errors.Is(err, models.ErrOwnerNotMember),
		errors.Is(err, models.ErrDuplicateMember):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
