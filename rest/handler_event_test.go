package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gantryci/gantry/engine"
	"github.com/gantryci/gantry/metadata"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/persistence/memory"
	"github.com/gantryci/gantry/service"
	"github.com/stretchr/testify/require"
)

// saveLimitedRunStorage accepts a fixed number of new runs and then fails
// every save, standing in for a storage outage mid fan-out.
type saveLimitedRunStorage struct {
	persistence.RunStorage
	mu        sync.Mutex
	remaining int
}

func (s *saveLimitedRunStorage) SaveRun(run *model.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining == 0 {
		return persistence.StorageLayerError{Message: "save quota exhausted"}
	}
	s.remaining--
	return s.RunStorage.SaveRun(run)
}

func eventWorkflow(name string) model.Workflow {
	return model.Workflow{
		Name: name,
		On: []model.Trigger{
			{Event: model.StringList{model.EVENT_PUSH}, Paths: model.StringList{"docs/book/**"}},
		},
		Jobs: []model.JobDef{
			{Name: "tests", Steps: []model.StepDef{{Run: "true"}}},
		},
	}
}

func newEventServer(t *testing.T, runStorage persistence.RunStorage, workflows ...model.Workflow) *Server {
	t.Helper()
	metadataService := metadata.NewMetadataService(memory.NewInMemMetadataStorage())
	for _, wf := range workflows {
		require.NoError(t, metadataService.SaveWorkflow(wf))
	}
	var wg sync.WaitGroup
	eng := engine.NewPipelineEngine(runStorage, "master", &wg)
	pipelineService := service.NewPipelineService(metadataService, eng)
	server, err := NewServer(0, pipelineService, metadataService, runStorage)
	require.NoError(t, err)
	return server
}

func postEvent(t *testing.T, server *Server, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/event", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	return rec, payload
}

func TestHandleEventReturnsRunIds(t *testing.T) {
	server := newEventServer(t, memory.NewInMemRunStorage(), eventWorkflow("docs-book"))

	rec, payload := postEvent(t, server, `{"event":"push","ref":"refs/heads/master","changedPaths":["docs/book/ch.md"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, payload["runIds"], 1)
}

func TestHandleEventPartialFailureReportsStartedRuns(t *testing.T) {
	runStorage := &saveLimitedRunStorage{RunStorage: memory.NewInMemRunStorage(), remaining: 1}
	server := newEventServer(t, runStorage, eventWorkflow("docs-book"), eventWorkflow("docs-site"))

	rec, payload := postEvent(t, server, `{"event":"push","ref":"refs/heads/master","changedPaths":["docs/book/ch.md"]}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, payload["error"])
	require.Len(t, payload["runIds"], 1, "the run started before the failure is reported to the caller")
}

func TestHandleEventMalformedPayload(t *testing.T) {
	server := newEventServer(t, memory.NewInMemRunStorage())

	rec, payload := postEvent(t, server, `{"event":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, payload["error"])
}
