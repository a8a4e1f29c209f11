package main

import (
	"os"

	"git.home.luguber.info/inful/subsync/cmd/subsync/commands"
	"git.home.luguber.info/inful/subsync/internal/ci"
	"git.home.luguber.info/inful/subsync/internal/errors"
	"git.home.luguber.info/inful/subsync/internal/metrics"
	"git.home.luguber.info/inful/subsync/internal/version"
	"github.com/alecthomas/kong"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("subsync"),
		kong.Description("Synchronize and publish git subtrees from CI build scripts."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	global := &commands.Global{
		Env:      ci.Detect(),
		Recorder: metrics.NoopRecorder{},
	}
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, nil)
	if err := ctx.Run(global, cli); err != nil {
		adapter.LogError(err)
		os.Exit(adapter.ExitCodeFor(err))
	}
}
