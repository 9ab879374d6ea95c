package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/persistence/memory"
	"github.com/stretchr/testify/require"
)

// scriptedDispatcher reports a canned state for every job instead of
// running it, feeding the result back the way the executor would.
type scriptedDispatcher struct {
	mu          sync.Mutex
	results     map[string]model.JobState
	executed    []string
	seenSecrets map[string]string
	engine      *PipelineEngine
}

func (d *scriptedDispatcher) Execute(req model.JobExecutionRequest) error {
	d.mu.Lock()
	d.executed = append(d.executed, req.Job.Name)
	d.seenSecrets = req.Context.Secrets
	state := d.results[req.Job.Name]
	d.mu.Unlock()
	go d.engine.HandleJobResult(model.JobResult{RunId: req.RunId, Job: req.Job.Name, State: state})
	return nil
}

func (d *scriptedDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.executed...)
}

func startEngine(t *testing.T, storage persistence.RunStorage, results map[string]model.JobState) (*PipelineEngine, *scriptedDispatcher) {
	t.Helper()
	var wg sync.WaitGroup
	eng := NewPipelineEngine(storage, "master", &wg)
	d := &scriptedDispatcher{results: results, engine: eng}
	eng.SetDispatcher(d)
	eng.Start()
	t.Cleanup(func() {
		require.NoError(t, eng.Stop())
	})
	return eng, d
}

func awaitTerminal(t *testing.T, storage persistence.RunStorage, runId string) *model.PipelineRun {
	t.Helper()
	require.Eventually(t, func() bool {
		run, err := storage.GetRun(runId)
		return err == nil && run.State.IsTerminal()
	}, 3*time.Second, 10*time.Millisecond)
	run, err := storage.GetRun(runId)
	require.NoError(t, err)
	return run
}

func docsPipeline() model.Workflow {
	return model.Workflow{
		Name: "docs-book",
		Jobs: []model.JobDef{
			{Name: "tests", Steps: []model.StepDef{{Run: "true"}}},
			{Name: "deploy", Needs: model.StringList{"tests"}, If: "branch == defaultBranch", Steps: []model.StepDef{{Run: "true"}}},
		},
	}
}

func TestDeployRunsAfterTestsOnDefaultBranch(t *testing.T) {
	storage := memory.NewInMemRunStorage()
	eng, d := startEngine(t, storage, map[string]model.JobState{
		"tests":  model.JOB_SUCCEEDED,
		"deploy": model.JOB_SUCCEEDED,
	})

	runId, err := eng.StartRun(docsPipeline(), model.RunContext{
		Event: model.EVENT_PUSH,
		Ref:   "refs/heads/master",
	})
	require.NoError(t, err)

	run := awaitTerminal(t, storage, runId)
	require.Equal(t, model.RUN_COMPLETED, run.State)
	require.Equal(t, model.JOB_SUCCEEDED, run.Jobs["tests"])
	require.Equal(t, model.JOB_SUCCEEDED, run.Jobs["deploy"])
	require.Equal(t, []string{"tests", "deploy"}, d.dispatched())
}

func TestDeploySkippedOffDefaultBranch(t *testing.T) {
	storage := memory.NewInMemRunStorage()
	eng, d := startEngine(t, storage, map[string]model.JobState{
		"tests": model.JOB_SUCCEEDED,
	})

	runId, err := eng.StartRun(docsPipeline(), model.RunContext{
		Event: model.EVENT_PULL_REQUEST,
		Ref:   "refs/heads/feature/typo-fix",
	})
	require.NoError(t, err)

	run := awaitTerminal(t, storage, runId)
	require.Equal(t, model.RUN_COMPLETED, run.State, "a skipped job does not fail the run")
	require.Equal(t, model.JOB_SUCCEEDED, run.Jobs["tests"])
	require.Equal(t, model.JOB_SKIPPED, run.Jobs["deploy"])
	require.Equal(t, []string{"tests"}, d.dispatched())
}

func TestDeploySkippedWhenTestsFail(t *testing.T) {
	storage := memory.NewInMemRunStorage()
	eng, d := startEngine(t, storage, map[string]model.JobState{
		"tests": model.JOB_FAILED,
	})

	runId, err := eng.StartRun(docsPipeline(), model.RunContext{
		Event: model.EVENT_PUSH,
		Ref:   "refs/heads/master",
	})
	require.NoError(t, err)

	run := awaitTerminal(t, storage, runId)
	require.Equal(t, model.RUN_FAILED, run.State)
	require.Equal(t, model.JOB_FAILED, run.Jobs["tests"])
	require.Equal(t, model.JOB_SKIPPED, run.Jobs["deploy"], "dependents of a failed job are skipped, never started")
	require.Equal(t, []string{"tests"}, d.dispatched())
}

func TestSkipCascadesThroughChain(t *testing.T) {
	wf := model.Workflow{
		Name: "chain",
		Jobs: []model.JobDef{
			{Name: "a", Steps: []model.StepDef{{Run: "true"}}},
			{Name: "b", Needs: model.StringList{"a"}, If: "branch == 'release'", Steps: []model.StepDef{{Run: "true"}}},
			{Name: "c", Needs: model.StringList{"b"}, Steps: []model.StepDef{{Run: "true"}}},
		},
	}
	storage := memory.NewInMemRunStorage()
	eng, d := startEngine(t, storage, map[string]model.JobState{
		"a": model.JOB_SUCCEEDED,
	})

	runId, err := eng.StartRun(wf, model.RunContext{Event: model.EVENT_PUSH, Ref: "refs/heads/master"})
	require.NoError(t, err)

	run := awaitTerminal(t, storage, runId)
	require.Equal(t, model.RUN_COMPLETED, run.State)
	require.Equal(t, model.JOB_SKIPPED, run.Jobs["b"])
	require.Equal(t, model.JOB_SKIPPED, run.Jobs["c"], "a dependent of a skipped job is skipped too")
	require.Equal(t, []string{"a"}, d.dispatched())
}

func TestBrokenConditionFailsJobAndRun(t *testing.T) {
	wf := docsPipeline()
	wf.Jobs[1].If = "branch ===== nope"
	storage := memory.NewInMemRunStorage()
	eng, d := startEngine(t, storage, map[string]model.JobState{
		"tests": model.JOB_SUCCEEDED,
	})

	runId, err := eng.StartRun(wf, model.RunContext{Event: model.EVENT_PUSH, Ref: "refs/heads/master"})
	require.NoError(t, err)

	run := awaitTerminal(t, storage, runId)
	require.Equal(t, model.RUN_FAILED, run.State)
	require.Equal(t, model.JOB_FAILED, run.Jobs["deploy"])
	require.Equal(t, []string{"tests"}, d.dispatched())
}

func TestSecretsReachJobsButNotStorage(t *testing.T) {
	storage := memory.NewInMemRunStorage()
	eng, d := startEngine(t, storage, map[string]model.JobState{
		"tests":  model.JOB_SUCCEEDED,
		"deploy": model.JOB_SUCCEEDED,
	})

	runId, err := eng.StartRun(docsPipeline(), model.RunContext{
		Event:   model.EVENT_PUSH,
		Ref:     "refs/heads/master",
		Secrets: map[string]string{"PAGES_TOKEN": "tok-123"},
	})
	require.NoError(t, err)

	run := awaitTerminal(t, storage, runId)
	require.Equal(t, model.RUN_COMPLETED, run.State)
	require.Empty(t, run.Context.Secrets, "stored runs never carry secrets")

	d.mu.Lock()
	seen := d.seenSecrets
	d.mu.Unlock()
	require.Equal(t, "tok-123", seen["PAGES_TOKEN"], "dispatched jobs still receive the injected secrets")
}

func TestShortBranch(t *testing.T) {
	require.Equal(t, "master", shortBranch("refs/heads/master"))
	require.Equal(t, "feature/docs", shortBranch("refs/heads/feature/docs"))
	require.Equal(t, "refs/tags/v1.0.0", shortBranch("refs/tags/v1.0.0"))
	require.Equal(t, "deadbeef", shortBranch("deadbeef"))
}
