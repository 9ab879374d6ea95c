package action

import (
	"fmt"
	"strconv"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"go.uber.org/zap"
)

var _ Action = new(checkoutAction)

// checkoutAction clones the repository at the triggering ref into the job
// workspace. The GIT_TOKEN secret, when present, authenticates the clone.
type checkoutAction struct {
	baseAction
}

func NewCheckoutAction() *checkoutAction {
	return &checkoutAction{
		baseAction: baseAction{name: "checkout"},
	}
}

func (ca *checkoutAction) Execute(ctx model.RunContext, workDir string, params map[string]string) error {
	repo := params["repo"]
	if repo == "" {
		return fmt.Errorf("checkout requires a repo parameter")
	}
	ref := param(params, "ref", ctx.Ref)
	depth, _ := strconv.Atoi(param(params, "depth", "1"))

	refName := plumbing.ReferenceName(ref)
	if !refName.IsBranch() && !refName.IsTag() {
		refName = plumbing.NewBranchReferenceName(ref)
	}
	cloneOpts := &git.CloneOptions{
		URL:           repo,
		ReferenceName: refName,
		SingleBranch:  true,
		Depth:         depth,
	}
	if token, ok := ctx.Secrets["GIT_TOKEN"]; ok && token != "" {
		cloneOpts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	logger.Info("checking out repository", zap.String("runId", ctx.RunId), zap.String("repo", repo), zap.String("ref", refName.String()))
	_, err := git.PlainClone(workDir, false, cloneOpts)
	if err != nil {
		return fmt.Errorf("error cloning %s: %w", repo, err)
	}
	return nil
}
