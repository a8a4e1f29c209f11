package git

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/subsync/internal/logfields"
	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// fetchBranch fetches the configured branch from the pull URL into
// refs/remotes/origin/<branch> and returns the fetched head. A remote without
// commits or without the branch yields a zero hash and no error; publishing to
// a branch that does not exist yet must not count as a transient failure.
func (r *Repo) fetchBranch() (plumbing.Hash, error) {
	branch := r.cfg.Branch
	url := r.cfg.PullURL()
	refspec := gitcfg.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch))

	remote := gogit.NewRemote(r.repo.Storer, &gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	err := remote.Fetch(&gogit.FetchOptions{
		RefSpecs: []gitcfg.RefSpec{refspec},
		Tags:     gogit.NoTags,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return plumbing.ZeroHash, nil
	case strings.Contains(err.Error(), "couldn't find remote ref"):
		return plumbing.ZeroHash, nil
	default:
		return plumbing.ZeroHash, classifyFetchError(url, err)
	}

	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return plumbing.ZeroHash, nil
	}
	return ref.Hash(), nil
}

// ForcePull makes the local branch and working tree match the remote branch
// head regardless of local history. When sparse is true the working tree is
// restricted to the configured subtree path.
func (r *Repo) ForcePull(sparse bool) error {
	remoteHash, err := r.fetchBranch()
	if err != nil {
		return err
	}
	if remoteHash.IsZero() {
		slog.Debug("remote has no commits for branch, nothing to pull",
			logfields.Repository(r.cfg.Repo), logfields.Branch(r.cfg.Branch))
		return nil
	}

	branchRef := plumbing.NewBranchReferenceName(r.cfg.Branch)
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, remoteHash)); err != nil {
		return fmt.Errorf("set branch %s: %w", r.cfg.Branch, err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	opts := &gogit.CheckoutOptions{Branch: branchRef, Force: true}
	if sparse {
		opts.SparseCheckoutDirectories = []string{r.cfg.Path}
	}
	if err := wt.Checkout(opts); err != nil {
		return fmt.Errorf("checkout %s: %w", r.cfg.Branch, err)
	}
	slog.Info("synchronized with remote",
		logfields.Repository(r.cfg.Repo), logfields.Branch(r.cfg.Branch), logfields.Commit(remoteHash.String()))
	return nil
}

// PullRebase brings remote changes in underneath the local tip commit. go-git
// has no rebase, so the single snapshot commit the publisher creates is
// replayed instead: when the remote moved, the local branch is reset to the
// remote head and the subtree staged and committed again with the same message
// and author.
func (r *Repo) PullRebase() error {
	remoteHash, err := r.fetchBranch()
	if err != nil {
		return err
	}
	if remoteHash.IsZero() {
		return nil
	}

	headRef, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// No local commits: behave like a plain forced pull.
		return r.ForcePull(false)
	}
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if headRef.Hash() == remoteHash {
		return nil
	}
	if contained, err := isAncestor(r.repo, remoteHash, headRef.Hash()); err != nil {
		return fmt.Errorf("ancestor check: %w", err)
	} else if contained {
		// Remote head already underneath the local tip.
		return nil
	}
	if contained, err := isAncestor(r.repo, headRef.Hash(), remoteHash); err != nil {
		return fmt.Errorf("ancestor check: %w", err)
	} else if contained {
		// Local tip already published; fast-forward.
		wt, werr := r.repo.Worktree()
		if werr != nil {
			return fmt.Errorf("worktree: %w", werr)
		}
		return wt.Reset(&gogit.ResetOptions{Commit: remoteHash, Mode: gogit.HardReset})
	}

	tip, err := r.repo.CommitObject(headRef.Hash())
	if err != nil {
		return fmt.Errorf("read tip commit: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	// Mixed reset: the index follows the remote head so paths outside the
	// subtree keep the remote's content, while the working tree keeps the
	// local snapshot for re-staging.
	if err := wt.Reset(&gogit.ResetOptions{Commit: remoteHash, Mode: gogit.MixedReset}); err != nil {
		return fmt.Errorf("reset to remote head: %w", err)
	}
	if err := r.StageSubtree(); err != nil {
		return err
	}
	replayed, err := r.Commit(tip.Message, tip.Author.Name, tip.Author.Email, true)
	if err != nil {
		return fmt.Errorf("replay tip commit: %w", err)
	}
	slog.Info("replayed local commit onto remote head",
		logfields.Repository(r.cfg.Repo), logfields.Branch(r.cfg.Branch), logfields.Commit(replayed))
	return nil
}

// isAncestor reports whether a is reachable from b.
func isAncestor(repo *gogit.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == a {
			return true, nil
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := repo.CommitObject(h)
		if err != nil {
			return false, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return false, nil
}
