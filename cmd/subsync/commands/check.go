package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
)

// CheckCmd implements the 'check' command: resolve and validate configurations
// without running any git operation.
type CheckCmd struct {
	Prefixes []string `arg:"" optional:"" help:"Prefixes to check; defaults to every prefix in the registry"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	prefixes := c.Prefixes
	if len(prefixes) == 0 {
		prefixes = cfg.Prefixes()
	}
	if len(prefixes) == 0 {
		return fmt.Errorf("no prefixes given and none configured")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PREFIX\tSUBTREE\tDIR\tREPO\tBRANCH")
	for _, prefix := range prefixes {
		resolved, err := cfg.Resolve(prefix)
		if err != nil {
			w.Flush()
			return err
		}
		resolved = applyBuildDir(resolved, g.Env)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", prefix, resolved.Path, resolved.Dir, resolved.Repo, resolved.Branch)
	}
	return w.Flush()
}
