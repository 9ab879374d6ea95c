package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"go.uber.org/zap"
)

// HandleEvent ingests a repository event and starts a run for every
// workflow whose triggers match. Secret values in the payload never reach
// the logs.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.RepositoryEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed event payload")
		return
	}
	defer r.Body.Close()
	runIds, err := s.pipelineService.HandleEvent(ev)
	if runIds == nil {
		runIds = []string{}
	}
	if err != nil {
		logger.Error("error handling event", zap.String("event", ev.Event), zap.String("ref", ev.Ref), zap.Error(err))
		// runs started before the failure are already executing, the
		// caller needs their ids to track them
		respondWithJSON(w, http.StatusBadRequest, map[string]any{"error": "error handling event", "runIds": runIds})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"runIds": runIds})
}
