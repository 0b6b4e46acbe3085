package handlers

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/service"
)

type EntityHandler struct {
	svc *service.KnowledgeService
}

func NewEntityHandler(svc *service.KnowledgeService) *EntityHandler {
	return &EntityHandler{svc: svc}
}

type entitiesResponse struct {
	Count    int             `json:"count"`
	Entities []domain.Entity `json:"entities"`
}

type answerResponse struct {
	Entity string `json:"entity"`
	Answer string `json:"answer"`
}

type routeResponse struct {
	Entity string            `json:"entity"`
	From   string            `json:"from"`
	Mode   domain.TravelMode `json:"mode"`
	domain.Route
}

type ratingRequest struct {
	Rating *float64 `json:"rating"`
}

type reviewRequest struct {
	Review string `json:"review"`
}

// Find treats every query parameter except "extra" as a constraint; repeated
// parameters give a slot several acceptable values.
func (h *EntityHandler) Find(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	extra := splitList(query["extra"])

	constraints := make(domain.Constraints)
	for slot, values := range query {
		if slot == "extra" {
			continue
		}
		constraints[slot] = values
	}

	rows, err := h.svc.FindEntities(r.Context(), constraints, extra...)
	if err != nil {
		writeServiceError(w, err, "failed to find entities")
		return
	}
	if rows == nil {
		rows = []domain.Entity{}
	}
	writeJSON(w, http.StatusOK, entitiesResponse{Count: len(rows), Entities: rows})
}

func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	rows, err := h.svc.FindInfoAboutEntity(r.Context(), name, splitList(r.URL.Query()["slots"])...)
	if err != nil {
		writeServiceError(w, err, "failed to get entity")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, service.ErrEntityNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows[0])
}

func (h *EntityHandler) Opening(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	day := r.URL.Query().Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}
	answer, err := h.svc.QueryOpeningInfo(r.Context(), day, name)
	if err != nil {
		writeServiceError(w, err, "failed to query opening hours")
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Entity: name, Answer: answer})
}

func (h *EntityHandler) Manner(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	manner := r.URL.Query().Get("manner")
	if manner == "" {
		writeError(w, http.StatusBadRequest, "manner is required")
		return
	}
	answer, err := h.svc.QueryMannerInfo(r.Context(), manner, name)
	if err != nil {
		writeServiceError(w, err, "failed to query manner")
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Entity: name, Answer: answer})
}

// Route defaults to travelling by foot.
func (h *EntityHandler) Route(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	from := r.URL.Query().Get("from")
	if from == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	mode := domain.TravelMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ModeFoot
	}

	route, err := h.svc.DistanceDuration(r.Context(), from, name, mode)
	if err != nil {
		writeServiceError(w, err, "failed to estimate route")
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{Entity: name, From: from, Mode: mode, Route: route})
}

// Rate accepts only ratings the ontology declares givable, when it declares any.
func (h *EntityHandler) Rate(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating == nil {
		writeError(w, http.StatusBadRequest, "rating is required")
		return
	}
	givable := h.svc.Ontology().GivableRatings()
	if len(givable) > 0 && !slices.Contains(givable, strconv.FormatFloat(*req.Rating, 'f', -1, 64)) {
		writeError(w, http.StatusBadRequest, "rating must be one of "+strings.Join(givable, ", "))
		return
	}

	rating, err := h.svc.EnterRating(r.Context(), *req.Rating, name)
	if err != nil {
		writeServiceError(w, err, "failed to enter rating")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"entity": name, domain.ColumnRating: rating})
}

func (h *EntityHandler) Review(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Review) == "" {
		writeError(w, http.StatusBadRequest, "review is required")
		return
	}

	if err := h.svc.EnterReview(r.Context(), req.Review, name); err != nil {
		writeServiceError(w, err, "failed to enter review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// splitList flattens repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
