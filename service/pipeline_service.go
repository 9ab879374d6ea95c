package service

import (
	"fmt"

	"github.com/gantryci/gantry/engine"
	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/metadata"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/trigger"
	"go.uber.org/zap"
)

// PipelineService turns repository events into runs. An event that matches
// no trigger starts nothing and is not an error.
type PipelineService struct {
	metadataService metadata.MetadataService
	engine          *engine.PipelineEngine
}

func NewPipelineService(metadataService metadata.MetadataService, engine *engine.PipelineEngine) *PipelineService {
	return &PipelineService{
		metadataService: metadataService,
		engine:          engine,
	}
}

func (s *PipelineService) HandleEvent(ev model.RepositoryEvent) ([]string, error) {
	if ev.Event != model.EVENT_PUSH && ev.Event != model.EVENT_PULL_REQUEST {
		return nil, fmt.Errorf("unsupported event kind %s", ev.Event)
	}
	var workflows []model.Workflow
	if ev.Workflow != "" {
		wf, err := s.metadataService.GetWorkflow(ev.Workflow)
		if err != nil {
			return nil, err
		}
		workflows = []model.Workflow{*wf}
	} else {
		all, err := s.metadataService.AllWorkflows()
		if err != nil {
			return nil, err
		}
		workflows = all
	}

	var runIds []string
	for i := range workflows {
		wf := workflows[i]
		if !trigger.Match(&wf, ev.Event, ev.ChangedPaths) {
			logger.Debug("event did not match workflow triggers", zap.String("workflow", wf.Name), zap.String("event", ev.Event))
			continue
		}
		rc := model.RunContext{
			Event:        ev.Event,
			Ref:          ev.Ref,
			ChangedPaths: ev.ChangedPaths,
			Secrets:      ev.Secrets,
		}
		runId, err := s.engine.StartRun(wf, rc)
		if err != nil {
			logger.Error("error starting run", zap.String("workflow", wf.Name), zap.Error(err))
			return runIds, err
		}
		runIds = append(runIds, runId)
	}
	return runIds, nil
}
