package commands

import (
	"fmt"

	"git.home.luguber.info/inful/subsync/internal/subtree"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Prefixes []string `arg:"" required:"" help:"Configuration prefixes to synchronize (e.g. DOCS)"`
}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, prefix := range s.Prefixes {
		resolved, err := cfg.Resolve(prefix)
		if err != nil {
			return err
		}
		resolved = applyBuildDir(resolved, g.Env)
		sync := subtree.NewSynchronizer(prefix, resolved, g.Env).WithRecorder(g.Recorder)
		if err := sync.Run(); err != nil {
			return err
		}
	}
	return nil
}
