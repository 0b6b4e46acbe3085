package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/google/uuid"
)

type DialogueHandler struct {
	svc *service.DialogueService
}

func NewDialogueHandler(svc *service.DialogueService) *DialogueHandler {
	return &DialogueHandler{svc: svc}
}

type turnRequest struct {
	UserActs []domain.UserAct `json:"user_acts"`
}

type dialogueResponse struct {
	DialogueID  uuid.UUID           `json:"dialogue_id"`
	Turn        int                 `json:"turn"`
	BeliefState *domain.BeliefState `json:"beliefstate"`
}

func newDialogueResponse(d *domain.Dialogue) dialogueResponse {
	return dialogueResponse{DialogueID: d.ID, Turn: d.State.Turn(), BeliefState: d.State}
}

func (h *DialogueHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Create(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to create dialogue")
		return
	}
	writeJSON(w, http.StatusCreated, newDialogueResponse(d))
}

func (h *DialogueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogueID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get dialogue")
		return
	}
	writeJSON(w, http.StatusOK, newDialogueResponse(d))
}

func (h *DialogueHandler) Turn(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogueID(w, r)
	if !ok {
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.svc.Turn(r.Context(), id, req.UserActs)
	if err != nil {
		writeServiceError(w, err, "failed to process turn")
		return
	}
	writeJSON(w, http.StatusOK, newDialogueResponse(d))
}

func (h *DialogueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogueID(w, r)
	if !ok {
		return
	}
	if err := h.svc.End(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to end dialogue")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func dialogueID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dialogue id")
		return uuid.Nil, false
	}
	return id, true
}
