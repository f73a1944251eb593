package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	var raw record.Raw
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	settlement := record.DecodeSettlement(raw)
	if err := settlement.Validate(); err != nil {
		slog.Warn("create settlement rejected", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	stored, err := s.store.Insert(r.Context(), record.Settlements, record.EncodeSettlement(settlement))
	if err != nil {
		slog.Warn("settlement not persisted, serving from cache", "error", err)
		if settlement.ID == "" {
			settlement.ID = uuid.New().String()
		}
		s.ledger.UpsertSettlement(settlement)
		writeJSON(w, http.StatusOK, map[string]any{"settlement": toSettlementDTO(settlement), "persisted": false})
		return
	}

	settlement = record.DecodeSettlement(stored)
	s.ledger.UpsertSettlement(settlement)
	slog.Info("settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", settlement.GroupID,
		"from", settlement.FromMember,
		"to", settlement.ToMember,
		"amount", settlement.Amount.String(),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"settlement": toSettlementDTO(settlement), "persisted": true})
}

func (s *Server) handleConfirmSettlement(w http.ResponseWriter, r *http.Request) {
	settlementID := chi.URLParam(r, "settlementID")

	settlement, err := s.workflow.ConfirmSettlement(r.Context(), settlementID)
	if err != nil && settlement.ID == "" {
		writeError(w, statusFor(err), err)
		return
	}
	if err != nil {
		// Confirmed but the confirmation notice could not be delivered.
		slog.Error("settlement confirmed, notification failed", "settlement_id", settlementID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"settlement": toSettlementDTO(settlement),
			"warning":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlement": toSettlementDTO(settlement)})
}

func (s *Server) handleDeleteSettlement(w http.ResponseWriter, r *http.Request) {
	settlementID := chi.URLParam(r, "settlementID")

	removed := s.ledger.RemoveSettlement(settlementID)
	err := s.store.Delete(r.Context(), record.Settlements, settlementID)
	if err != nil && !removed {
		writeError(w, statusFor(storage.ErrNotFound), storage.ErrNotFound)
		return
	}
	if err != nil {
		slog.Warn("settlement delete not persisted", "settlement_id", settlementID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
