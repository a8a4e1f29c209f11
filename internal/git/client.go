package git

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	appcfg "git.home.luguber.info/inful/subsync/internal/config"
	"git.home.luguber.info/inful/subsync/internal/logfields"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repo is a handle on one subtree working directory. It binds a go-git
// repository to its resolved configuration so callers never pass paths or
// branch names twice.
type Repo struct {
	cfg  appcfg.Subtree
	repo *gogit.Repository
}

// Open opens the configured working directory, initializing a fresh repository
// when no version-control metadata exists yet.
func Open(cfg appcfg.Subtree) (*Repo, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create working directory %s: %w", cfg.Dir, err)
	}
	repository, err := gogit.PlainOpen(cfg.Dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		slog.Debug("initializing repository", logfields.Dir(cfg.Dir))
		repository, err = gogit.PlainInit(cfg.Dir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", cfg.Dir, err)
	}
	return &Repo{cfg: cfg, repo: repository}, nil
}

// Config returns the subtree configuration the handle was opened with.
func (r *Repo) Config() appcfg.Subtree { return r.cfg }

// Head returns the current HEAD commit hash, or an empty string when the
// repository has no commits yet.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// ResetHard discards local modifications by resetting the working tree and
// index to HEAD. A repository without commits is left untouched.
func (r *Repo) ResetHard() error {
	if _, err := r.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("hard reset: %w", err)
	}
	return nil
}
