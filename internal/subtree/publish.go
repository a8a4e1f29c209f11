package subtree

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/subsync/internal/ci"
	"git.home.luguber.info/inful/subsync/internal/config"
	apperrors "git.home.luguber.info/inful/subsync/internal/errors"
	"git.home.luguber.info/inful/subsync/internal/git"
	"git.home.luguber.info/inful/subsync/internal/logfields"
	"git.home.luguber.info/inful/subsync/internal/metrics"
	"git.home.luguber.info/inful/subsync/internal/retry"
	"github.com/google/uuid"
)

// publishRepository is the seam between the publisher and git plumbing.
type publishRepository interface {
	StageSubtree() error
	Commit(message, name, email string, allowEmpty bool) (string, error)
	PullRebase() error
	Push(mode git.PushMode, token string) error
}

// openPublishRepository is swapped out in tests.
var openPublishRepository = func(cfg config.Subtree) (publishRepository, error) {
	return git.Open(cfg)
}

// ConfirmFunc asks the operator for confirmation in local/interactive mode.
// A nil func means proceed without asking.
type ConfirmFunc func(prompt string) bool

// Publisher stages changes under the subtree path, commits them, and pushes to
// the remote. Under CI pushes are retried with a rebase between attempts;
// locally the operator is prompted and the push happens once.
type Publisher struct {
	prefix   string
	cfg      config.Subtree
	env      ci.Environment
	mode     git.PushMode
	policy   retry.Policy
	attempts int
	rec      metrics.Recorder
	confirm  ConfirmFunc
	sleep    func(time.Duration)
	runID    string
}

// NewPublisher builds a publisher for an already-resolved configuration with
// the default retry policy (4 attempts, fixed 1s delay).
func NewPublisher(prefix string, cfg config.Subtree, env ci.Environment) *Publisher {
	return &Publisher{
		prefix:   prefix,
		cfg:      cfg,
		env:      env,
		policy:   retry.DefaultPolicy(),
		attempts: config.DefaultAttempts,
		rec:      metrics.NoopRecorder{},
		sleep:    time.Sleep,
		runID:    uuid.NewString(),
	}
}

// WithAttempts overrides the total push attempt count (fluent helper).
func (p *Publisher) WithAttempts(n int) *Publisher {
	if n > 0 {
		p.attempts = n
	}
	return p
}

// WithPolicy overrides the retry backoff policy (fluent helper).
func (p *Publisher) WithPolicy(pol retry.Policy) *Publisher {
	p.policy = pol
	return p
}

// WithPushMode selects force/all/mirror pushing (fluent helper).
func (p *Publisher) WithPushMode(mode git.PushMode) *Publisher {
	p.mode = mode
	return p
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (p *Publisher) WithRecorder(rec metrics.Recorder) *Publisher {
	if rec != nil {
		p.rec = rec
	}
	return p
}

// WithConfirm sets the interactive confirmation hook (fluent helper).
func (p *Publisher) WithConfirm(f ConfirmFunc) *Publisher {
	p.confirm = f
	return p
}

// Run validates the publishing context and publishes. Configuration problems
// are fatal; only pull/push failures are retried.
func (p *Publisher) Run() error {
	if err := p.validate(); err != nil {
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return err
	}

	repo, err := openPublishRepository(p.cfg)
	if err != nil {
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "open working directory")
	}

	if p.env.IsCI() {
		return p.publishCI(repo)
	}
	return p.publishLocal(repo)
}

func (p *Publisher) validate() error {
	if p.env.IsCI() {
		if p.env.Target == "" {
			return apperrors.ConfigError("CI_TARGET is not set")
		}
		if !p.env.HasIdentity() {
			return apperrors.ConfigError("GIT_NAME and GIT_EMAIL must be set to commit under CI")
		}
	}
	if !p.mode.WholeHistory() && p.cfg.Branch == "" {
		return &config.MissingVarError{Prefix: p.prefix, Variable: p.prefix + "_BRANCH"}
	}
	return nil
}

func (p *Publisher) publishCI(repo publishRepository) error {
	log := slog.With(
		logfields.Prefix(p.prefix),
		logfields.RunID(p.runID),
		logfields.Repository(p.cfg.Repo),
		logfields.Branch(p.cfg.Branch),
	)

	if err := repo.StageSubtree(); err != nil {
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return apperrors.Wrap(err, apperrors.CategoryGit, apperrors.SeverityFatal, "stage subtree")
	}
	message := p.env.CommitSubject() + "\n\nAutomatic update"
	commit, err := repo.Commit(message, p.env.GitName, p.env.GitEmail, true)
	if err != nil {
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return apperrors.Wrap(err, apperrors.CategoryGit, apperrors.SeverityFatal, "commit subtree changes")
	}
	log.Info("committed subtree changes", logfields.Commit(commit))

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if !p.mode.SkipsPull() {
			if err := repo.PullRebase(); err != nil {
				lastErr = err
				log.Warn("pull before push failed", logfields.Attempt(attempt), logfields.Error(err))
				p.delayBeforeRetry(log, attempt)
				continue
			}
		}

		if !p.env.HasToken() {
			log.Warn("no publish token configured, skipping push")
			if p.env.PullRequest {
				p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeSkipped)
				return nil
			}
			p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
			return apperrors.New(apperrors.CategoryAuth, apperrors.SeverityFatal,
				"publish token required outside pull-request builds")
		}

		p.rec.IncPushAttempt(p.prefix)
		if err := repo.Push(p.mode, p.env.Token); err != nil {
			lastErr = err
			log.Warn("push failed", logfields.Attempt(attempt), logfields.Error(err))
			p.delayBeforeRetry(log, attempt)
			continue
		}

		log.Info("published subtree changes", logfields.Attempt(attempt))
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomePublished)
		return nil
	}

	p.rec.IncRetriesExhausted(p.prefix)
	p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
	return apperrors.WrapRetryable(lastErr, apperrors.CategoryNetwork, apperrors.SeverityError,
		fmt.Sprintf("push failed after %d attempts", p.attempts))
}

func (p *Publisher) delayBeforeRetry(log *slog.Logger, attempt int) {
	if attempt >= p.attempts {
		return
	}
	delay := p.policy.Delay(attempt)
	log.Info("retrying push", logfields.Attempt(attempt), slog.Duration("delay", delay))
	p.sleep(delay)
}

func (p *Publisher) publishLocal(repo publishRepository) error {
	log := slog.With(
		logfields.Prefix(p.prefix),
		logfields.RunID(p.runID),
		logfields.Repository(p.cfg.Repo),
		logfields.Branch(p.cfg.Branch),
	)

	if p.confirm != nil {
		prompt := fmt.Sprintf("Push %s to %s (branch %s)?", p.cfg.Path, p.cfg.Repo, p.cfg.Branch)
		if !p.confirm(prompt) {
			log.Info("publish skipped by operator")
			p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeSkipped)
			return nil
		}
	}

	if err := repo.StageSubtree(); err != nil {
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return apperrors.Wrap(err, apperrors.CategoryGit, apperrors.SeverityFatal, "stage subtree")
	}
	message := p.env.CommitSubject() + "\n\nAutomatic update"
	commit, err := repo.Commit(message, p.env.GitName, p.env.GitEmail, false)
	switch {
	case errors.Is(err, git.ErrNothingToCommit):
		log.Info("nothing to commit, pushing existing history")
	case err != nil:
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return apperrors.Wrap(err, apperrors.CategoryGit, apperrors.SeverityFatal, "commit subtree changes")
	default:
		log.Info("committed subtree changes", logfields.Commit(commit))
	}

	p.rec.IncPushAttempt(p.prefix)
	if err := repo.Push(p.mode, p.env.Token); err != nil {
		p.rec.IncPublishOutcome(p.prefix, metrics.OutcomeFailed)
		return apperrors.Wrap(err, apperrors.CategoryNetwork, apperrors.SeverityError, "push to remote")
	}
	log.Info("published subtree changes")
	p.rec.IncPublishOutcome(p.prefix, metrics.OutcomePublished)
	return nil
}
