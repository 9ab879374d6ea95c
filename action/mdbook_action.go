package action

import (
	"fmt"
	"os/exec"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"go.uber.org/zap"
)

var _ Action = new(mdbookAction)

// mdbookAction renders a documentation book from a fixed input directory to
// a fixed output directory inside the workspace.
type mdbookAction struct {
	baseAction
}

func NewMdbookAction() *mdbookAction {
	return &mdbookAction{
		baseAction: baseAction{name: "mdbook"},
	}
}

func (ma *mdbookAction) Execute(ctx model.RunContext, workDir string, params map[string]string) error {
	input := param(params, "input", "docs/book")
	dest := param(params, "dest", "gh-pages/master")

	logger.Info("rendering book", zap.String("runId", ctx.RunId), zap.String("input", input), zap.String("dest", dest))
	render := exec.Command("mdbook", "build", input, "--dest-dir", dest)
	render.Dir = workDir
	if out, err := render.CombinedOutput(); err != nil {
		return fmt.Errorf("mdbook build failed: %w: %s", err, out)
	}
	return nil
}
