package persistence

import (
	"fmt"

	"github.com/gantryci/gantry/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

type MetadataStorage interface {
	SaveWorkflowDefinition(wf model.Workflow) error
	DeleteWorkflowDefinition(name string) error
	GetWorkflowDefinition(name string) (*model.Workflow, error)
	ListWorkflowDefinitions() ([]model.Workflow, error)
}

type RunStorage interface {
	SaveRun(run *model.PipelineRun) error
	GetRun(id string) (*model.PipelineRun, error)
	DeleteRun(id string) error
	ListActiveRuns() ([]*model.PipelineRun, error)
}
