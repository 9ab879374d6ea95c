package action

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"go.uber.org/zap"
)

var _ Action = new(publishPagesAction)

// publishPagesAction pushes a rendered output directory to the hosting
// branch. The publish is additive by default: files already present on the
// hosting branch stay unless the new output overwrites them by name.
type publishPagesAction struct {
	baseAction
}

func NewPublishPagesAction() *publishPagesAction {
	return &publishPagesAction{
		baseAction: baseAction{name: "publish-pages"},
	}
}

func (pa *publishPagesAction) Execute(ctx model.RunContext, workDir string, params map[string]string) error {
	repo := params["repo"]
	if repo == "" {
		return fmt.Errorf("publish-pages requires a repo parameter")
	}
	dir := params["dir"]
	if dir == "" {
		return fmt.Errorf("publish-pages requires a dir parameter")
	}
	token := params["token"]
	if token == "" {
		return fmt.Errorf("publish-pages requires a token parameter")
	}
	branch := param(params, "branch", "gh-pages")
	keepFiles := param(params, "keep-files", "true") == "true"
	message := param(params, "message", fmt.Sprintf("publish run %s", ctx.RunId))

	source := filepath.Join(workDir, dir)
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("publish source %s missing: %w", dir, err)
	}

	auth := &githttp.BasicAuth{Username: "x-access-token", Password: token}
	checkout, err := os.MkdirTemp("", "gantry-pages-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(checkout)

	repository, err := pa.cloneHostingBranch(repo, branch, checkout, auth)
	if err != nil {
		return err
	}
	worktree, err := repository.Worktree()
	if err != nil {
		return err
	}
	if !keepFiles {
		if err := clearWorktree(checkout); err != nil {
			return err
		}
	}
	if err := CopyTree(source, checkout); err != nil {
		return err
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return err
	}
	status, err := worktree.Status()
	if err != nil {
		return err
	}
	if status.IsClean() {
		logger.Info("publish output unchanged, nothing to push", zap.String("runId", ctx.RunId), zap.String("branch", branch))
		return nil
	}
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "gantry",
			Email: "gantry@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return err
	}
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repository.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("error pushing to %s: %w", branch, err)
	}
	logger.Info("published output", zap.String("runId", ctx.RunId), zap.String("branch", branch), zap.String("dir", dir))
	return nil
}

// cloneHostingBranch clones the hosting branch, or initializes a fresh
// repository pointed at it when the branch or remote history does not
// exist yet.
func (pa *publishPagesAction) cloneHostingBranch(repo string, branch string, checkout string, auth transport.AuthMethod) (*git.Repository, error) {
	repository, err := git.PlainClone(checkout, false, &git.CloneOptions{
		URL:           repo,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err == nil {
		return repository, nil
	}
	if !errors.Is(err, transport.ErrEmptyRemoteRepository) && !errors.Is(err, plumbing.ErrReferenceNotFound) && !errors.Is(err, git.NoMatchingRefSpecError{}) {
		return nil, fmt.Errorf("error cloning hosting branch %s: %w", branch, err)
	}
	repository, err = git.PlainInit(checkout, false)
	if err != nil {
		return nil, err
	}
	if _, err := repository.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repo},
	}); err != nil {
		return nil, err
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := repository.Storer.SetReference(head); err != nil {
		return nil, err
	}
	return repository, nil
}

func clearWorktree(checkout string) error {
	entries, err := os.ReadDir(checkout)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(checkout, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
