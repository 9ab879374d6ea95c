package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gantryci/gantry/logger"
)

func (s *Server) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runId, ok := vars["id"]
	if !ok {
		respondWithError(w, http.StatusBadRequest, "run id missing")
		return
	}
	run, err := s.runStorage.GetRun(runId)
	if err != nil {
		logger.Info("run does not exist", zap.String("runId", runId))
		respondWithError(w, http.StatusNotFound, "run does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"id":       run.Id,
		"workflow": run.Workflow,
		"state":    run.State,
		"jobs":     run.Jobs,
	})
}
