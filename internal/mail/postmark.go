package mail

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// postmarkAPI is the subset of *postmark.Client used here.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkConfig holds the Postmark credentials and envelope addresses.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
}

// PostmarkSender sends through Postmark's transactional API.
type PostmarkSender struct {
	client postmarkAPI
	cfg    PostmarkConfig
}

// NewPostmarkSender validates cfg and returns a Postmark-backed sender.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_ACCOUNT_TOKEN is required", ErrInvalidConfig)
	}
	if !addressRegex.MatchString(cfg.From) {
		return nil, fmt.Errorf("%w: mail.from must be a valid address", ErrInvalidConfig)
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.cfg.From,
		ReplyTo:  s.cfg.ReplyTo,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return stdErrors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return stdErrors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
