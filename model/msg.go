package model

// RepositoryEvent is the inbound webhook payload describing a push or
// pull_request with its changed file paths.
type RepositoryEvent struct {
	Workflow     string            `json:"workflow"`
	Event        string            `json:"event"`
	Ref          string            `json:"ref"`
	ChangedPaths []string          `json:"changedPaths"`
	Secrets      map[string]string `json:"secrets"`
}

type JobExecutionRequest struct {
	RunId    string
	Workflow string
	Job      JobDef
	Context  RunContext
}

type JobResult struct {
	RunId string
	Job   string
	State JobState
}
