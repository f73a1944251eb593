package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/record"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var raw record.Raw
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	group := record.DecodeGroup(raw)
	if err := group.Validate(); err != nil {
		slog.Warn("create group rejected", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	stored, err := s.store.Insert(r.Context(), record.Groups, record.EncodeGroup(group))
	if err != nil {
		slog.Warn("group not persisted, serving from cache", "error", err)
		if group.ID == "" {
			group.ID = uuid.New().String()
		}
		s.ledger.UpsertGroup(group)
		writeJSON(w, http.StatusOK, map[string]any{"group": toGroupDTO(group), "persisted": false})
		return
	}

	group = record.DecodeGroup(stored)
	s.ledger.UpsertGroup(group)
	slog.Info("group created", "group_id", group.ID, "members_count", len(group.Members))
	writeJSON(w, http.StatusCreated, map[string]any{"group": toGroupDTO(group), "persisted": true})
}

func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.ledger.Groups()
	out := make([]groupDTO, len(groups))
	for i, g := range groups {
		out[i] = toGroupDTO(g)
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	group, ok := s.ledger.GroupByID(groupID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": toGroupDTO(group)})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if _, ok := s.ledger.GroupByID(groupID); !ok {
		http.NotFound(w, r)
		return
	}
	balances := s.ledger.CalculateBalances(groupID)
	debts := s.ledger.SimplifiedDebts(groupID)
	writeJSON(w, http.StatusOK, toBalancesResponse(groupID, balances, debts))
}

func (s *Server) handleDebtors(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if _, ok := s.ledger.GroupByID(groupID); !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"debtors": toDebtorDTOs(s.workflow.SelectDebtors(groupID)),
	})
}

func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if err := s.workflow.SendReminders(r.Context(), groupID); err != nil {
		slog.Error("reminders failed", "group_id", groupID, "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var raw record.Raw
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	member := record.DecodeMember(raw)

	group, err := s.workflow.InviteMember(r.Context(), groupID, member)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": toGroupDTO(group)})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	memberID := chi.URLParam(r, "memberID")

	group, err := s.workflow.AcceptInvitation(r.Context(), groupID, memberID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": toGroupDTO(group)})
}

func (s *Server) handleMemberOwes(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	expenses := s.ledger.ExpensesWhereMemberOwes(memberID)
	out := make([]owedExpenseDTO, len(expenses))
	for i, e := range expenses {
		out[i] = owedExpenseDTO{
			Expense: toExpenseDTO(e),
			Share:   s.ledger.AmountOwedForExpense(e.ID, memberID).String(),
			Status:  string(s.ledger.PaymentStatusForExpense(e.ID, memberID)),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"owes": out})
}
