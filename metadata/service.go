package metadata

import (
	"time"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type MetadataService interface {
	GetWorkflow(name string) (*model.Workflow, error)
	SaveWorkflow(wf model.Workflow) error
	DeleteWorkflow(name string) error
	AllWorkflows() ([]model.Workflow, error)
}

var _ MetadataService = new(metadataService)

type metadataService struct {
	storage persistence.MetadataStorage
	cache   *c.Cache
}

func NewMetadataService(storage persistence.MetadataStorage) *metadataService {
	return &metadataService{
		storage: storage,
		cache:   c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (ms *metadataService) GetWorkflow(name string) (*model.Workflow, error) {
	cached, found := ms.cache.Get(name)
	if found {
		wf := cached.(model.Workflow)
		return &wf, nil
	}
	wf, err := ms.storage.GetWorkflowDefinition(name)
	if err != nil {
		return nil, err
	}
	ms.cache.Set(name, *wf, c.NoExpiration)
	return wf, nil
}

func (ms *metadataService) SaveWorkflow(wf model.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	if err := ms.storage.SaveWorkflowDefinition(wf); err != nil {
		return err
	}
	ms.cache.Set(wf.Name, wf, c.NoExpiration)
	logger.Info("workflow definition saved", zap.String("workflow", wf.Name))
	return nil
}

func (ms *metadataService) DeleteWorkflow(name string) error {
	if err := ms.storage.DeleteWorkflowDefinition(name); err != nil {
		return err
	}
	ms.cache.Delete(name)
	return nil
}

func (ms *metadataService) AllWorkflows() ([]model.Workflow, error) {
	return ms.storage.ListWorkflowDefinitions()
}
