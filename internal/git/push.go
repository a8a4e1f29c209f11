package git

import (
	"errors"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/subsync/internal/logfields"
	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
)

// PushMode selects what gets pushed. Force, All and Mirror all ignore remote
// state, so the publisher skips the pre-push pull for them.
type PushMode struct {
	Force  bool // overwrite the remote branch
	All    bool // push all local branches
	Mirror bool // push all refs, pruning extras
}

// SkipsPull reports whether this mode pushes whole history or forces, making a
// pre-push rebase pointless.
func (m PushMode) SkipsPull() bool {
	return m.Force || m.All || m.Mirror
}

// WholeHistory reports whether the push operates without a single target
// branch.
func (m PushMode) WholeHistory() bool {
	return m.All || m.Mirror
}

func (m PushMode) refSpecs(branch string) []gitcfg.RefSpec {
	switch {
	case m.Mirror:
		return []gitcfg.RefSpec{"+refs/*:refs/*"}
	case m.All:
		return []gitcfg.RefSpec{"refs/heads/*:refs/heads/*"}
	default:
		spec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
		return []gitcfg.RefSpec{gitcfg.RefSpec(spec)}
	}
}

// Push publishes to the authenticated push URL. An up-to-date remote counts as
// success.
func (r *Repo) Push(mode PushMode, token string) error {
	url := r.cfg.PushURL()
	remote := gogit.NewRemote(r.repo.Storer, &gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	err := remote.Push(&gogit.PushOptions{
		RefSpecs: mode.refSpecs(r.cfg.Branch),
		Auth:     pushAuth(url, token),
		Force:    mode.Force || mode.Mirror,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return classifyPushError(url, err)
	}
	slog.Debug("pushed", logfields.Repository(r.cfg.Repo), logfields.Branch(r.cfg.Branch))
	return nil
}
