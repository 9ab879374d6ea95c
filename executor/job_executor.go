package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gantryci/gantry/action"
	"github.com/gantryci/gantry/analytics"
	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/util"
	"go.uber.org/zap"
)

// JobExecutor runs jobs handed to it by the engine. Each job executes its
// steps strictly in declared order inside a fresh workspace directory; the
// first failing step halts the job with no retry.
type JobExecutor struct {
	registry      *action.Registry
	workspaceRoot string
	capacity      int
	worker        *util.Worker
	wg            *sync.WaitGroup
	onResult      func(model.JobResult)
}

func NewJobExecutor(registry *action.Registry, workspaceRoot string, capacity int, wg *sync.WaitGroup, onResult func(model.JobResult)) *JobExecutor {
	return &JobExecutor{
		registry:      registry,
		workspaceRoot: workspaceRoot,
		capacity:      capacity,
		wg:            wg,
		onResult:      onResult,
	}
}

func (ex *JobExecutor) handler(task util.Task) error {
	req, ok := task.(model.JobExecutionRequest)
	if !ok {
		return fmt.Errorf("can not handle task of type other than model.JobExecutionRequest")
	}
	state := ex.runJob(req)
	ex.onResult(model.JobResult{
		RunId: req.RunId,
		Job:   req.Job.Name,
		State: state,
	})
	return nil
}

func (ex *JobExecutor) runJob(req model.JobExecutionRequest) model.JobState {
	workDir := filepath.Join(ex.workspaceRoot, req.RunId, req.Job.Name)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		logger.Error("error creating job workspace", zap.String("runId", req.RunId), zap.String("job", req.Job.Name), zap.Error(err))
		return model.JOB_FAILED
	}
	logger.Info("job started", zap.String("runId", req.RunId), zap.String("workflow", req.Workflow), zap.String("job", req.Job.Name))
	for i := range req.Job.Steps {
		step := req.Job.Steps[i]
		name := stepName(step, i)
		err := ex.runStep(req, step, workDir)
		if err != nil {
			logger.Error("step failed, halting job", zap.String("runId", req.RunId), zap.String("job", req.Job.Name), zap.String("step", name), zap.Error(err))
			analytics.RecordStepFailure(req.Workflow, req.RunId, req.Job.Name, name, err.Error())
			return model.JOB_FAILED
		}
		analytics.RecordStepSuccess(req.Workflow, req.RunId, req.Job.Name, name)
	}
	logger.Info("job succeeded", zap.String("runId", req.RunId), zap.String("job", req.Job.Name))
	return model.JOB_SUCCEEDED
}

func (ex *JobExecutor) runStep(req model.JobExecutionRequest, step model.StepDef, workDir string) error {
	scope := req.Context.ParamScope()
	if step.Uses != "" {
		act, err := ex.registry.Get(step.Uses)
		if err != nil {
			return err
		}
		params := util.ResolveParams(scope, step.With)
		return act.Execute(req.Context, workDir, params)
	}
	command := util.ResolveString(scope, step.Run)
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = workDir
	cmd.Env = ex.stepEnv(req)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command failed: %w: %s", err, out)
	}
	return nil
}

// stepEnv exports run metadata and the injected secrets to the step
// process. Secrets only ever travel through the environment, they are not
// written to logs or storage.
func (ex *JobExecutor) stepEnv(req model.JobExecutionRequest) []string {
	env := os.Environ()
	env = append(env,
		"GANTRY_RUN_ID="+req.RunId,
		"GANTRY_WORKFLOW="+req.Workflow,
		"GANTRY_JOB="+req.Job.Name,
		"GANTRY_EVENT="+req.Context.Event,
		"GANTRY_REF="+req.Context.Ref,
	)
	for k, v := range req.Context.Secrets {
		env = append(env, k+"="+v)
	}
	return env
}

func stepName(step model.StepDef, index int) string {
	if step.Name != "" {
		return step.Name
	}
	if step.Uses != "" {
		return step.Uses
	}
	if f := strings.Fields(step.Run); len(f) > 0 {
		return f[0]
	}
	return fmt.Sprintf("step-%d", index)
}

func (ex *JobExecutor) Start() error {
	ex.worker = util.NewWorker("job-executor", ex.wg, ex.handler, ex.capacity)
	ex.worker.Start()
	logger.Info("job executor started")
	return nil
}

func (ex *JobExecutor) Stop() error {
	ex.worker.Stop()
	return nil
}

func (ex *JobExecutor) Execute(request model.JobExecutionRequest) error {
	ex.worker.Sender() <- request
	return nil
}
