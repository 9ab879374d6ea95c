package action

import (
	"fmt"

	"github.com/gantryci/gantry/model"
)

// Action is a named external collaborator a step can reference with uses.
// Execute runs it inside the job's workspace with the resolved parameter
// map. Parameters are fixed at definition time, resolution only fills
// {$.path} tokens from the run context.
type Action interface {
	GetName() string
	Execute(ctx model.RunContext, workDir string, params map[string]string) error
}

type baseAction struct {
	name string
}

func (ba *baseAction) GetName() string {
	return ba.name
}

type Registry struct {
	actions map[string]Action
}

func NewRegistry() *Registry {
	r := &Registry{
		actions: make(map[string]Action),
	}
	r.Register(NewCheckoutAction())
	r.Register(NewToolchainAction())
	r.Register(NewMdbookAction())
	r.Register(NewPublishPagesAction())
	return r
}

func (r *Registry) Register(a Action) {
	r.actions[a.GetName()] = a
}

func (r *Registry) Get(name string) (Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("action %s is not registered", name)
	}
	return a, nil
}

func param(params map[string]string, key string, fallback string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return fallback
}
