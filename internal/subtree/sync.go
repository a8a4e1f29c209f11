package subtree

import (
	"log/slog"

	"git.home.luguber.info/inful/subsync/internal/ci"
	"git.home.luguber.info/inful/subsync/internal/config"
	"git.home.luguber.info/inful/subsync/internal/errors"
	"git.home.luguber.info/inful/subsync/internal/git"
	"git.home.luguber.info/inful/subsync/internal/logfields"
	"git.home.luguber.info/inful/subsync/internal/metrics"
	"github.com/google/uuid"
)

// syncRepository is the seam between the synchronizer and git plumbing.
type syncRepository interface {
	ResetHard() error
	ForcePull(sparse bool) error
	Head() (string, error)
}

// openRepository is swapped out in tests.
var openRepository = func(cfg config.Subtree) (syncRepository, error) {
	return git.Open(cfg)
}

// Synchronizer resets a working directory to a clean checkout of the
// configured subtree. Under CI the checkout is sparse; local builds
// materialize the full tree.
type Synchronizer struct {
	prefix string
	cfg    config.Subtree
	env    ci.Environment
	rec    metrics.Recorder
	runID  string
}

// NewSynchronizer builds a synchronizer for an already-resolved configuration.
func NewSynchronizer(prefix string, cfg config.Subtree, env ci.Environment) *Synchronizer {
	return &Synchronizer{
		prefix: prefix,
		cfg:    cfg,
		env:    env,
		rec:    metrics.NoopRecorder{},
		runID:  uuid.NewString(),
	}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (s *Synchronizer) WithRecorder(rec metrics.Recorder) *Synchronizer {
	if rec != nil {
		s.rec = rec
	}
	return s
}

// Run performs the synchronization: initialize the repository if missing,
// discard local modifications, and force-pull the configured branch. Running
// twice against an unchanged remote yields an identical working tree.
func (s *Synchronizer) Run() error {
	log := slog.With(
		logfields.Prefix(s.prefix),
		logfields.RunID(s.runID),
		logfields.Repository(s.cfg.Repo),
		logfields.Branch(s.cfg.Branch),
	)
	log.Info("synchronizing subtree", logfields.Subtree(s.cfg.Path), logfields.Dir(s.cfg.Dir))

	repo, err := openRepository(s.cfg)
	if err != nil {
		s.rec.IncSyncResult(s.prefix, false)
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "open working directory")
	}
	if err := repo.ResetHard(); err != nil {
		s.rec.IncSyncResult(s.prefix, false)
		return errors.Wrap(err, errors.CategoryGit, errors.SeverityFatal, "reset working tree")
	}
	if err := repo.ForcePull(s.env.IsCI()); err != nil {
		s.rec.IncSyncResult(s.prefix, false)
		return errors.WrapRetryable(err, errors.CategoryNetwork, errors.SeverityError, "pull from remote")
	}

	if head, err := repo.Head(); err == nil && head != "" {
		log.Info("subtree synchronized", logfields.Commit(head))
	} else {
		log.Info("subtree synchronized (empty remote)")
	}
	s.rec.IncSyncResult(s.prefix, true)
	return nil
}
