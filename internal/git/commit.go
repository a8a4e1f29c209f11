package git

import (
	"errors"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNothingToCommit is returned by Commit when allowEmpty is false and the
// staged tree matches HEAD. Interactive publishing tolerates it.
var ErrNothingToCommit = errors.New("nothing to commit")

// StageSubtree stages changes under the configured subtree path only, leaving
// the rest of the working tree out of the index.
func (r *Repo) StageSubtree() error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{Path: r.cfg.Path}); err != nil {
		return fmt.Errorf("stage %s: %w", r.cfg.Path, err)
	}
	return nil
}

// Commit records the staged snapshot. With allowEmpty true a commit is created
// even when nothing changed under the subtree.
func (r *Repo) Commit(message, name, email string, allowEmpty bool) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	opts := &gogit.CommitOptions{AllowEmptyCommits: allowEmpty}
	if name != "" || email != "" {
		opts.Author = &object.Signature{Name: name, Email: email, When: time.Now()}
	}
	hash, err := wt.Commit(message, opts)
	if err != nil {
		if errors.Is(err, gogit.ErrEmptyCommit) {
			return "", ErrNothingToCommit
		}
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}
