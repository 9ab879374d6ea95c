package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
)

// HandleCreateWorkflow registers a workflow definition. The body is either
// the json form or, with a yaml content type, a workflow file.
func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var wf model.Workflow
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		contents, err := io.ReadAll(r.Body)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "error reading workflow body")
			return
		}
		wf, err = model.WorkflowFromFile("", contents)
		if err != nil {
			logger.Error("error parsing workflow file", zap.Error(err))
			respondWithError(w, http.StatusBadRequest, "error parsing workflow file")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed workflow payload")
			return
		}
	}
	err := s.metadataService.SaveWorkflow(wf)
	if err != nil {
		logger.Error("error creating workflow", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "error creating workflow")
		return
	}
	respondOK(w, "created")
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wfName, ok := vars["name"]
	if !ok {
		respondWithError(w, http.StatusBadRequest, "workflow name missing")
		return
	}
	wf, err := s.metadataService.GetWorkflow(wfName)
	if err != nil {
		logger.Info("workflow does not exist", zap.String("name", wfName))
		respondWithError(w, http.StatusNotFound, "workflow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}
