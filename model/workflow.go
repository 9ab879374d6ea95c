package model

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const EVENT_PUSH string = "push"
const EVENT_PULL_REQUEST string = "pull_request"

// Workflow is the structural representation of a workflow file. A workflow
// declares the triggers that start a run and the jobs executed by it.
type Workflow struct {
	Name string    `yaml:"name" json:"name"`
	On   []Trigger `yaml:"on" json:"on"`
	Jobs []JobDef  `yaml:"jobs" json:"jobs"`
}

type Trigger struct {
	Event StringList `yaml:"event" json:"event"`
	Paths StringList `yaml:"paths" json:"paths"`
}

type JobDef struct {
	Name   string     `yaml:"name" json:"name"`
	RunsOn string     `yaml:"runs-on" json:"runsOn"`
	Needs  StringList `yaml:"needs" json:"needs"`
	If     string     `yaml:"if" json:"if"`
	Steps  []StepDef  `yaml:"steps" json:"steps"`
}

// StepDef is either a reference to a registered action with a parameter
// map, or a literal shell command. Exactly one of Uses and Run is set.
type StepDef struct {
	Name string            `yaml:"name" json:"name"`
	Uses string            `yaml:"uses" json:"uses"`
	With map[string]string `yaml:"with" json:"with"`
	Run  string            `yaml:"run" json:"run"`
}

type StringList []string

func WorkflowFromFile(name string, contents []byte) (Workflow, error) {
	var wf Workflow
	err := yaml.Unmarshal(contents, &wf)
	if err != nil {
		return wf, err
	}
	if wf.Name == "" {
		wf.Name = name
	}
	return wf, wf.Validate()
}

func (wf *Workflow) Validate() error {
	if len(wf.Jobs) == 0 {
		return fmt.Errorf("workflow %s has no jobs", wf.Name)
	}
	jobNames := make(map[string]bool)
	for _, job := range wf.Jobs {
		if job.Name == "" {
			return fmt.Errorf("workflow %s has a job without a name", wf.Name)
		}
		if jobNames[job.Name] {
			return fmt.Errorf("workflow %s declares job %s twice", wf.Name, job.Name)
		}
		jobNames[job.Name] = true
		for _, step := range job.Steps {
			if step.Uses == "" && step.Run == "" {
				return fmt.Errorf("job %s has a step with neither uses nor run", job.Name)
			}
			if step.Uses != "" && step.Run != "" {
				return fmt.Errorf("job %s has a step with both uses and run", job.Name)
			}
		}
	}
	needs := make(map[string]StringList, len(wf.Jobs))
	for _, job := range wf.Jobs {
		for _, need := range job.Needs {
			if !jobNames[need] {
				return fmt.Errorf("job %s needs unknown job %s", job.Name, need)
			}
		}
		needs[job.Name] = job.Needs
	}
	return wf.checkCycles(needs)
}

// checkCycles rejects workflows whose needs edges form a cycle. A cyclic
// graph has no eligible job, so a run of it would never terminate.
func (wf *Workflow) checkCycles(needs map[string]StringList) error {
	const inProgress, done = 1, 2
	state := make(map[string]int, len(needs))
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case inProgress:
			return fmt.Errorf("workflow %s has a dependency cycle through job %s", wf.Name, name)
		case done:
			return nil
		}
		state[name] = inProgress
		for _, need := range needs[name] {
			if err := visit(need); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, job := range wf.Jobs {
		if err := visit(job.Name); err != nil {
			return err
		}
	}
	return nil
}

func (wf *Workflow) GetJob(name string) (*JobDef, error) {
	for i := range wf.Jobs {
		if wf.Jobs[i].Name == name {
			return &wf.Jobs[i], nil
		}
	}
	return nil, fmt.Errorf("job %s not found in workflow %s", name, wf.Name)
}

// Custom unmarshaller so a scalar and a sequence both parse into a list.
func (s *StringList) UnmarshalYAML(unmarshal func(any) error) error {
	var stringType string
	if err := unmarshal(&stringType); err == nil {
		*s = []string{stringType}
		return nil
	}

	var sliceType []any
	if err := unmarshal(&sliceType); err == nil {
		if sliceType == nil {
			*s = nil
			return nil
		}
		parts := make([]string, len(sliceType))
		for k, v := range sliceType {
			if sv, ok := v.(string); ok {
				parts[k] = sv
			} else {
				return fmt.Errorf("cannot unmarshal '%v' of type %T into a string value", v, v)
			}
		}
		*s = parts
		return nil
	}

	return errors.New("failed to unmarshal string or string list")
}
