package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/subsync/internal/ci"
	"git.home.luguber.info/inful/subsync/internal/config"
	"git.home.luguber.info/inful/subsync/internal/metrics"
	"github.com/alecthomas/kong"
)

// Global context passed to subcommands.
type Global struct {
	Env      ci.Environment
	Recorder metrics.Recorder
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:""`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Sync    SyncCmd    `cmd:"" help:"Synchronize local directories with remote subtrees"`
	Publish PublishCmd `cmd:"" help:"Commit and push subtree changes to the remote"`
	Check   CheckCmd   `cmd:"" help:"Resolve and validate subtree configurations without touching git"`
	Watch   WatchCmd   `cmd:"" help:"Watch a subtree and publish changes continuously"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the registry file named by the global flag (or the default
// location when unset).
func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config)
}

// applyBuildDir resolves a relative working directory against BUILD_DIR, the
// workspace root CI exports.
func applyBuildDir(cfg config.Subtree, env ci.Environment) config.Subtree {
	if env.BuildDir != "" && !filepath.IsAbs(cfg.Dir) {
		cfg.Dir = filepath.Join(env.BuildDir, cfg.Dir)
	}
	return cfg
}

// askConfirm prompts on the terminal and reads a single reply line. Anything
// but y/yes declines.
func askConfirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
