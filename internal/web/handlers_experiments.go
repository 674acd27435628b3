package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

type stopRequest struct {
	Winner *string `json:"winner,omitempty"`
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	exps, err := s.engine.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if exps == nil {
		exps = []*domain.Experiment{}
	}
	writeJSON(w, http.StatusOK, exps)
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var def domain.ExperimentDefinition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, r, err)
		return
	}

	exp, err := s.engine.Create(r.Context(), def)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleUpdateExperiment(w http.ResponseWriter, r *http.Request) {
	var def domain.ExperimentDefinition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, r, err)
		return
	}

	exp, err := s.engine.Update(r.Context(), chi.URLParam(r, "id"), def)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleStartExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.engine.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handlePauseExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.engine.Pause(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleStopExperiment(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	exp, err := s.engine.Stop(r.Context(), chi.URLParam(r, "id"), req.Winner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.engine.Analyze(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
