package commands

import (
	"fmt"

	"git.home.luguber.info/inful/subsync/internal/config"
	"git.home.luguber.info/inful/subsync/internal/git"
	"git.home.luguber.info/inful/subsync/internal/retry"
	"git.home.luguber.info/inful/subsync/internal/subtree"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Prefixes []string `arg:"" required:"" help:"Configuration prefixes to publish (e.g. DOCS)"`
	Attempts int      `short:"a" help:"Total push attempts before giving up (overrides config)"`
	Force    bool     `help:"Force-push the branch, ignoring remote state"`
	All      bool     `help:"Push all local branches"`
	Mirror   bool     `help:"Mirror all refs to the remote"`
	Yes      bool     `short:"y" help:"Skip the interactive confirmation prompt"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mode := git.PushMode{Force: p.Force, All: p.All, Mirror: p.Mirror}
	backoff, initial, maxDelay, attempts := cfg.RetrySettings()
	if p.Attempts > 0 {
		attempts = p.Attempts
	}
	policy := retry.NewPolicy(backoff, initial, maxDelay, attempts-1)

	for _, prefix := range p.Prefixes {
		resolved, err := p.resolve(cfg, prefix, mode)
		if err != nil {
			return err
		}
		resolved = applyBuildDir(resolved, g.Env)

		pub := subtree.NewPublisher(prefix, resolved, g.Env).
			WithAttempts(attempts).
			WithPolicy(policy).
			WithPushMode(mode).
			WithRecorder(g.Recorder)
		if !g.Env.IsCI() && !p.Yes {
			pub = pub.WithConfirm(askConfirm)
		}
		if err := pub.Run(); err != nil {
			return err
		}
	}
	return nil
}

func (p *PublishCmd) resolve(cfg *config.Config, prefix string, mode git.PushMode) (config.Subtree, error) {
	if mode.WholeHistory() {
		return cfg.ResolveForMirror(prefix)
	}
	return cfg.Resolve(prefix)
}
