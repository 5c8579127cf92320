// Package mail sends built email views as test messages.
package mail

import (
	"context"
	stdErrors "errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var (
	ErrInvalidConfig = stdErrors.New("invalid mail configuration")
	ErrInvalidParams = stdErrors.New("invalid message")
	ErrSendFailed    = stdErrors.New("failed to send message")
)

var addressRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered test email.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"-"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the required fields.
func (m Message) Validate() error {
	if !addressRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidParams, m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if m.HTMLBody == "" {
		return fmt.Errorf("%w: body is empty", ErrInvalidParams)
	}
	return nil
}

// ViewPath returns the file of the named view, accepting names with or without
// the .blade.php suffix.
func ViewPath(viewsDir, name string) string {
	name = strings.TrimSuffix(filepath.FromSlash(name), ".blade.php")
	return filepath.Join(viewsDir, name+".blade.php")
}

// LoadView reads a built view from viewsDir.
func LoadView(fsys afero.Fs, viewsDir, name string) (string, error) {
	data, err := afero.ReadFile(fsys, ViewPath(viewsDir, name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
