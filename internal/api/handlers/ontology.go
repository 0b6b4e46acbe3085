package handlers

import (
	"net/http"

	"github.com/Thommy96/BaRiStA/internal/domain"
)

type OntologyHandler struct {
	ontology *domain.Ontology
}

func NewOntologyHandler(ontology *domain.Ontology) *OntologyHandler {
	return &OntologyHandler{ontology: ontology}
}

type ontologyResponse struct {
	domain.OntologyDefinition
	ActionTypes []domain.ActionType `json:"action_types"`
}

// Get returns the loaded domain definition and the user act types the
// tracker accepts.
func (h *OntologyHandler) Get(w http.ResponseWriter, r *http.Request) {
	def := h.ontology.Definition()
	def.Domain = h.ontology.DomainName()
	def.DisplayName = h.ontology.DisplayName()
	writeJSON(w, http.StatusOK, ontologyResponse{
		OntologyDefinition: def,
		ActionTypes:        domain.AllActionTypes(),
	})
}
