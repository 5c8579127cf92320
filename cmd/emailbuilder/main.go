package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/emailbuilder/cmd/emailbuilder/commands"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("emailbuilder"),
		kong.Description("Build Foundation for Emails templates, styles and images"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
