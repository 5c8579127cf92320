package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/publish"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	NoRewrite bool `name:"no-rewrite" help:"Upload only; leave the built views untouched"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	fsys := filesystem(g)
	cfg, err := loadConfig(fsys, root, nil)
	if err != nil {
		return err
	}
	var creds publish.Credentials
	if err := env.Parse(&creds); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "parse AWS credentials").Build()
	}

	ctx, cancel := signalContext()
	defer cancel()

	pub, err := publish.New(ctx, cfg.Publish, fsys, publish.WithCredentials(creds))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "configure publisher").Build()
	}
	return runPublish(ctx, stdout(g), fsys, cfg, pub, !p.NoRewrite)
}

func runPublish(ctx context.Context, out io.Writer, fsys afero.Fs, cfg *config.Config, pub *publish.Publisher, rewrite bool) error {
	uploaded, err := pub.Upload(ctx, cfg.ImagesDist)
	if err != nil {
		return errors.PublishError("upload images").WithCause(err).
			WithContext("dir", cfg.ImagesDist).
			WithContext("uploaded", len(uploaded)).
			Build()
	}
	_, _ = fmt.Fprintf(out, "Uploaded %d images to %s\n", len(uploaded), pub.Prefix())
	if !rewrite {
		return nil
	}

	changed, err := publish.RewriteViews(fsys, cfg.Views, publish.WebPath(cfg.ImagesDist), pub.Prefix())
	if err != nil {
		return errors.FileSystemError("rewrite views").WithCause(err).
			WithContext("dir", cfg.Views).
			Build()
	}
	_, _ = fmt.Fprintf(out, "Rewrote image references in %d views\n", changed)
	return nil
}
