package model

type JobState string

const JOB_PENDING JobState = "PENDING"
const JOB_RUNNING JobState = "RUNNING"
const JOB_SUCCEEDED JobState = "SUCCEEDED"
const JOB_FAILED JobState = "FAILED"
const JOB_SKIPPED JobState = "SKIPPED"

func (s JobState) IsTerminal() bool {
	return s == JOB_SUCCEEDED || s == JOB_FAILED || s == JOB_SKIPPED
}

type RunState string

const RUN_RUNNING RunState = "RUNNING"
const RUN_COMPLETED RunState = "COMPLETED"
const RUN_FAILED RunState = "FAILED"

func (s RunState) IsTerminal() bool {
	return s == RUN_COMPLETED || s == RUN_FAILED
}

// RunContext carries the metadata of one triggered run. It is constructed
// once when the run starts and read-only afterwards. Secrets are injected,
// handed to steps as environment, and excluded from serialization and logs.
type RunContext struct {
	RunId        string            `json:"runId"`
	Event        string            `json:"event"`
	Ref          string            `json:"ref"`
	ChangedPaths []string          `json:"changedPaths"`
	Secrets      map[string]string `json:"-"`
}

// ParamScope is the data tree step parameters resolve against.
func (rc RunContext) ParamScope() map[string]any {
	secrets := make(map[string]any, len(rc.Secrets))
	for k, v := range rc.Secrets {
		secrets[k] = v
	}
	return map[string]any{
		"event":        rc.Event,
		"ref":          rc.Ref,
		"changedPaths": rc.ChangedPaths,
		"secrets":      secrets,
	}
}

// PipelineRun is the state of one run. Spec is a snapshot of the workflow
// definition at trigger time so definition edits do not affect runs in flight.
type PipelineRun struct {
	Id       string              `json:"id"`
	Workflow string              `json:"workflow"`
	Spec     Workflow            `json:"spec"`
	State    RunState            `json:"state"`
	Jobs     map[string]JobState `json:"jobs"`
	Context  RunContext          `json:"context"`
}
