package memory

import (
	"sync"

	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/util"
)

var _ persistence.MetadataStorage = new(inMemMetadataStorage)
var _ persistence.RunStorage = new(inMemRunStorage)

type inMemMetadataStorage struct {
	mu        sync.Mutex
	workflows map[string]model.Workflow
}

func NewInMemMetadataStorage() *inMemMetadataStorage {
	return &inMemMetadataStorage{
		workflows: make(map[string]model.Workflow),
	}
}

func (ms *inMemMetadataStorage) SaveWorkflowDefinition(wf model.Workflow) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.workflows[wf.Name] = wf
	return nil
}

func (ms *inMemMetadataStorage) DeleteWorkflowDefinition(name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.workflows, name)
	return nil
}

func (ms *inMemMetadataStorage) GetWorkflowDefinition(name string) (*model.Workflow, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	wf, ok := ms.workflows[name]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "workflow", Name: name}
	}
	return &wf, nil
}

func (ms *inMemMetadataStorage) ListWorkflowDefinitions() ([]model.Workflow, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	workflows := make([]model.Workflow, 0, len(ms.workflows))
	for _, wf := range ms.workflows {
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// inMemRunStorage keeps runs as encoded bytes so callers get copies the way
// they would from redis, never aliases into shared state.
type inMemRunStorage struct {
	mu             sync.Mutex
	runs           map[string][]byte
	active         map[string]bool
	encoderDecoder util.EncoderDecoder[model.PipelineRun]
}

func NewInMemRunStorage() *inMemRunStorage {
	return &inMemRunStorage{
		runs:           make(map[string][]byte),
		active:         make(map[string]bool),
		encoderDecoder: util.NewJsonEncoderDecoder[model.PipelineRun](),
	}
}

func (rs *inMemRunStorage) SaveRun(run *model.PipelineRun) error {
	data, err := rs.encoderDecoder.Encode(*run)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.runs[run.Id] = data
	if run.State.IsTerminal() {
		delete(rs.active, run.Id)
	} else {
		rs.active[run.Id] = true
	}
	return nil
}

func (rs *inMemRunStorage) GetRun(id string) (*model.PipelineRun, error) {
	rs.mu.Lock()
	data, ok := rs.runs[id]
	rs.mu.Unlock()
	if !ok {
		return nil, persistence.NotFoundError{Kind: "run", Name: id}
	}
	return rs.encoderDecoder.Decode(data)
}

func (rs *inMemRunStorage) DeleteRun(id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.runs, id)
	delete(rs.active, id)
	return nil
}

func (rs *inMemRunStorage) ListActiveRuns() ([]*model.PipelineRun, error) {
	rs.mu.Lock()
	ids := make([]string, 0, len(rs.active))
	for id := range rs.active {
		ids = append(ids, id)
	}
	rs.mu.Unlock()
	runs := make([]*model.PipelineRun, 0, len(ids))
	for _, id := range ids {
		run, err := rs.GetRun(id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
