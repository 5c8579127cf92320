package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/mail"
)

// SendCmd implements the 'send' command.
type SendCmd struct {
	View    string `required:"" help:"View name below the views directory (e.g. auth/welcome)"`
	To      string `required:"" help:"Recipient address"`
	Subject string `short:"s" help:"Subject line" default:"Email preview"`
	Tag     string `help:"Postmark tag, also used to name dev-sender files"`
}

func (s *SendCmd) Run(g *Global, root *CLI) error {
	fsys := filesystem(g)
	cfg, err := loadConfig(fsys, root, nil)
	if err != nil {
		return err
	}
	body, err := mail.LoadView(fsys, cfg.Views, s.View)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNotFound, "load view (run build first)").
			WithContext("view", mail.ViewPath(cfg.Views, s.View)).
			Build()
	}
	secrets, err := config.LoadMailSecrets()
	if err != nil {
		return err
	}
	sender, err := newSender(fsys, cfg, secrets)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	msg := mail.Message{To: s.To, Subject: s.Subject, HTMLBody: body, Tag: s.Tag}
	if err := sender.Send(ctx, msg); err != nil {
		return errors.MailError("send test email").WithCause(err).
			WithContext("to", s.To).
			Build()
	}
	_, _ = fmt.Fprintf(stdout(g), "Sent %s to %s\n", s.View, s.To)
	return nil
}

// newSender picks Postmark when both tokens are present, the dev sender otherwise.
func newSender(fsys afero.Fs, cfg *config.Config, secrets config.MailSecrets) (mail.Sender, error) {
	if secrets.PostmarkServerToken == "" || secrets.PostmarkAccountToken == "" {
		slog.Info("No Postmark tokens configured, writing message to disk", "dir", cfg.Mail.DevDir)
		return mail.NewDevSender(fsys, cfg.Mail.DevDir), nil
	}
	sender, err := mail.NewPostmarkSender(mail.PostmarkConfig{
		ServerToken:  secrets.PostmarkServerToken,
		AccountToken: secrets.PostmarkAccountToken,
		From:         cfg.Mail.From,
		ReplyTo:      cfg.Mail.ReplyTo,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "configure Postmark").Build()
	}
	return sender, nil
}
