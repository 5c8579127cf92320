package commands

import (
	"fmt"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	PathFlags `embed:""`
	EnvFlags  `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	fsys := filesystem(g)
	cfg, err := loadConfig(fsys, root, b.Options())
	if err != nil {
		return err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	env = b.Apply(env)

	deps, err := openTaskDeps(fsys, stdout(g), cfg, nil)
	if err != nil {
		return err
	}
	defer deps.close()

	ctx, cancel := signalContext()
	defer cancel()

	task := emails.New(cfg, env, fsys, deps.opts...)
	report, err := task.Run(ctx)
	if report != nil {
		_, _ = fmt.Fprintln(stdout(g), report.Summary())
	}
	return err
}
