package engine

import (
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/gantryci/gantry/condition"
	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/util"
	"go.uber.org/zap"
)

// JobDispatcher hands an eligible job to whatever executes it.
type JobDispatcher interface {
	Execute(req model.JobExecutionRequest) error
}

// PipelineEngine owns the job state machine of every active run. A single
// goroutine drains job results and sweep requests, so run state is only
// ever mutated from one place. Eligibility rules:
//   - a job with all needs succeeded and a satisfied (or absent) condition
//     is dispatched
//   - a job with a failed or skipped need is skipped, never started
//   - a job whose condition is false is skipped, distinct from failed
type PipelineEngine struct {
	storage       persistence.RunStorage
	dispatcher    JobDispatcher
	defaultBranch string
	resultChannel chan model.JobResult
	sweepChannel  chan struct{}
	stop          chan struct{}
	tickStop      chan struct{}
	tick          *util.TickWorker
	wg            *sync.WaitGroup

	mu      sync.Mutex
	secrets map[string]map[string]string
}

func NewPipelineEngine(storage persistence.RunStorage, defaultBranch string, wg *sync.WaitGroup) *PipelineEngine {
	return &PipelineEngine{
		storage:       storage,
		defaultBranch: defaultBranch,
		resultChannel: make(chan model.JobResult, 1000),
		sweepChannel:  make(chan struct{}, 1),
		stop:          make(chan struct{}),
		tickStop:      make(chan struct{}),
		wg:            wg,
		secrets:       make(map[string]map[string]string),
	}
}

// SetDispatcher breaks the construction cycle between engine and executor.
// Must be called before Start.
func (e *PipelineEngine) SetDispatcher(dispatcher JobDispatcher) {
	e.dispatcher = dispatcher
}

func (e *PipelineEngine) Start() {
	e.tick = util.NewTickWorker("eligibility-sweep", 5*time.Second, e.tickStop, e.requestSweep, e.wg)
	e.tick.Start()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case res := <-e.resultChannel:
				e.applyResult(res)
			case <-e.sweepChannel:
				e.sweepActiveRuns()
			case <-e.stop:
				logger.Info("stopping pipeline engine")
				return
			}
		}
	}()
}

func (e *PipelineEngine) Stop() error {
	e.tick.Stop()
	e.stop <- struct{}{}
	return nil
}

// StartRun creates a run for the workflow with every job pending and asks
// the engine loop to schedule it. Safe to call from any goroutine.
func (e *PipelineEngine) StartRun(wf model.Workflow, rc model.RunContext) (string, error) {
	runId := uuid.New().String()
	rc.RunId = runId
	jobs := make(map[string]model.JobState, len(wf.Jobs))
	for _, job := range wf.Jobs {
		jobs[job.Name] = model.JOB_PENDING
	}
	run := &model.PipelineRun{
		Id:       runId,
		Workflow: wf.Name,
		Spec:     wf,
		State:    model.RUN_RUNNING,
		Jobs:     jobs,
		Context:  rc,
	}
	e.rememberSecrets(runId, rc.Secrets)
	if err := e.storage.SaveRun(run); err != nil {
		e.forgetSecrets(runId)
		return "", err
	}
	logger.Info("run started", zap.String("workflow", wf.Name), zap.String("runId", runId), zap.String("event", rc.Event), zap.String("ref", rc.Ref))
	e.requestSweep()
	return runId, nil
}

// HandleJobResult is the executor's callback. Safe to call from any
// goroutine.
func (e *PipelineEngine) HandleJobResult(res model.JobResult) {
	e.resultChannel <- res
}

func (e *PipelineEngine) requestSweep() {
	select {
	case e.sweepChannel <- struct{}{}:
	default:
	}
}

func (e *PipelineEngine) applyResult(res model.JobResult) {
	run, err := e.storage.GetRun(res.RunId)
	if err != nil {
		logger.Error("job result for unknown run", zap.String("runId", res.RunId), zap.Error(err))
		return
	}
	if run.Jobs[res.Job].IsTerminal() {
		logger.Error("job already in terminal state", zap.String("runId", res.RunId), zap.String("job", res.Job), zap.String("state", string(run.Jobs[res.Job])))
		return
	}
	run.Jobs[res.Job] = res.State
	e.scheduleRun(run)
}

func (e *PipelineEngine) sweepActiveRuns() {
	runs, err := e.storage.ListActiveRuns()
	if err != nil {
		logger.Error("error listing active runs", zap.Error(err))
		return
	}
	for _, run := range runs {
		e.scheduleRun(run)
	}
}

// scheduleRun drives every pending job of the run as far as its
// dependencies allow, then persists the new state. Conditions are only
// evaluated once all needs have succeeded.
func (e *PipelineEngine) scheduleRun(run *model.PipelineRun) {
	run.Context.Secrets = e.getSecrets(run.Id)
	var dispatch []model.JobDef
	for changed := true; changed; {
		changed = false
		for _, job := range run.Spec.Jobs {
			if run.Jobs[job.Name] != model.JOB_PENDING {
				continue
			}
			succeeded, blocked := e.dependencyState(run, job)
			if blocked {
				run.Jobs[job.Name] = model.JOB_SKIPPED
				logger.Info("skipping job, dependency failed or skipped", zap.String("runId", run.Id), zap.String("job", job.Name))
				changed = true
				continue
			}
			if !succeeded {
				continue
			}
			ok, err := condition.Evaluate(job.If, e.conditionScope(run.Context))
			if err != nil {
				run.Jobs[job.Name] = model.JOB_FAILED
				logger.Error("error evaluating job condition", zap.String("runId", run.Id), zap.String("job", job.Name), zap.Error(err))
				changed = true
				continue
			}
			if !ok {
				run.Jobs[job.Name] = model.JOB_SKIPPED
				logger.Info("run condition not satisfied, skipping job", zap.String("runId", run.Id), zap.String("job", job.Name), zap.String("condition", job.If))
				changed = true
				continue
			}
			run.Jobs[job.Name] = model.JOB_RUNNING
			dispatch = append(dispatch, job)
			changed = true
		}
	}
	e.finalize(run)
	if err := e.storage.SaveRun(run); err != nil {
		logger.Error("error saving run", zap.String("runId", run.Id), zap.Error(err))
		return
	}
	for _, job := range dispatch {
		logger.Info("dispatching job", zap.String("runId", run.Id), zap.String("job", job.Name))
		err := e.dispatcher.Execute(model.JobExecutionRequest{
			RunId:    run.Id,
			Workflow: run.Workflow,
			Job:      job,
			Context:  run.Context,
		})
		if err != nil {
			logger.Error("error dispatching job", zap.String("runId", run.Id), zap.String("job", job.Name), zap.Error(err))
		}
	}
}

// dependencyState reports whether all needs of the job succeeded, and
// whether any need reached a terminal state other than success.
func (e *PipelineEngine) dependencyState(run *model.PipelineRun, job model.JobDef) (succeeded bool, blocked bool) {
	for _, need := range job.Needs {
		switch run.Jobs[need] {
		case model.JOB_FAILED, model.JOB_SKIPPED:
			return false, true
		case model.JOB_SUCCEEDED:
		default:
			return false, false
		}
	}
	return true, false
}

func (e *PipelineEngine) finalize(run *model.PipelineRun) {
	anyFailed := false
	for _, state := range run.Jobs {
		if !state.IsTerminal() {
			return
		}
		if state == model.JOB_FAILED {
			anyFailed = true
		}
	}
	if anyFailed {
		run.State = model.RUN_FAILED
		logger.Info("run failed", zap.String("workflow", run.Workflow), zap.String("runId", run.Id))
	} else {
		run.State = model.RUN_COMPLETED
		logger.Info("run completed", zap.String("workflow", run.Workflow), zap.String("runId", run.Id))
	}
	e.forgetSecrets(run.Id)
}

func (e *PipelineEngine) conditionScope(rc model.RunContext) map[string]any {
	return map[string]any{
		"event":         rc.Event,
		"ref":           rc.Ref,
		"branch":        shortBranch(rc.Ref),
		"defaultBranch": e.defaultBranch,
	}
}

// shortBranch turns refs/heads/master into master; anything that is not a
// branch ref passes through unchanged.
func shortBranch(ref string) string {
	refName := plumbing.ReferenceName(ref)
	if refName.IsBranch() {
		return refName.Short()
	}
	return ref
}

// Secrets live only in engine memory, never in storage or logs. A process
// restart loses them, which fails any still-running publish the same way
// the hosting platform invalidates an expired credential.
func (e *PipelineEngine) rememberSecrets(runId string, secrets map[string]string) {
	if len(secrets) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.secrets[runId] = secrets
}

func (e *PipelineEngine) getSecrets(runId string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.secrets[runId]
}

func (e *PipelineEngine) forgetSecrets(runId string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.secrets, runId)
}
