package action

import (
	"fmt"
	"os/exec"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"go.uber.org/zap"
)

var _ Action = new(toolchainAction)

// toolchainAction installs a language toolchain through rustup and makes it
// the default for the workspace.
type toolchainAction struct {
	baseAction
}

func NewToolchainAction() *toolchainAction {
	return &toolchainAction{
		baseAction: baseAction{name: "setup-toolchain"},
	}
}

func (ta *toolchainAction) Execute(ctx model.RunContext, workDir string, params map[string]string) error {
	toolchain := param(params, "toolchain", "stable")
	profile := param(params, "profile", "minimal")

	logger.Info("installing toolchain", zap.String("runId", ctx.RunId), zap.String("toolchain", toolchain), zap.String("profile", profile))
	install := exec.Command("rustup", "toolchain", "install", toolchain, "--profile", profile)
	install.Dir = workDir
	if out, err := install.CombinedOutput(); err != nil {
		return fmt.Errorf("toolchain install failed: %w: %s", err, out)
	}
	override := exec.Command("rustup", "default", toolchain)
	override.Dir = workDir
	if out, err := override.CombinedOutput(); err != nil {
		return fmt.Errorf("toolchain default failed: %w: %s", err, out)
	}
	return nil
}
