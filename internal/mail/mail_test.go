package mail

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMessage() Message {
	return Message{To: "dev@example.com", Subject: "Welcome aboard", HTMLBody: "<p>hi</p>"}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{"bad recipient", func(m *Message) { m.To = "nope" }},
		{"empty subject", func(m *Message) { m.Subject = "  " }},
		{"empty body", func(m *Message) { m.HTMLBody = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMessage()
			tt.mutate(&m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidParams)
		})
	}
	assert.NoError(t, validMessage().Validate())
}

func TestViewPath(t *testing.T) {
	assert.Equal(t, filepath.Join("views", "auth", "reset.blade.php"), ViewPath("views", "auth/reset"))
	assert.Equal(t, filepath.Join("views", "welcome.blade.php"), ViewPath("views", "welcome.blade.php"))
}

func TestDevSender(t *testing.T) {
	fsys := afero.NewMemMapFs()
	d := NewDevSender(fsys, "storage/emails")
	d.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	require.NoError(t, d.Send(context.Background(), validMessage()))

	html, err := afero.ReadFile(fsys, "storage/emails/2024_05_06_070809_welcome_aboard.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(html))

	raw, err := afero.ReadFile(fsys, "storage/emails/2024_05_06_070809_welcome_aboard.json")
	require.NoError(t, err)
	var meta map[string]string
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "dev@example.com", meta["to"])
	assert.Equal(t, "2024-05-06T07:08:09Z", meta["timestamp"])
	assert.NotContains(t, meta, "HTMLBody")
}

func TestNewPostmarkSender_InvalidConfig(t *testing.T) {
	_, err := NewPostmarkSender(PostmarkConfig{AccountToken: "a", From: "x@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewPostmarkSender(PostmarkConfig{ServerToken: "s", From: "x@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewPostmarkSender(PostmarkConfig{ServerToken: "s", AccountToken: "a", From: "bad"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewPostmarkSender(PostmarkConfig{ServerToken: "s", AccountToken: "a", From: "x@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

type fakePostmark struct {
	sent postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.sent = e
	return f.resp, f.err
}

func TestPostmarkSender_Send(t *testing.T) {
	fake := &fakePostmark{}
	s := &PostmarkSender{client: fake, cfg: PostmarkConfig{From: "from@example.com", ReplyTo: "support@example.com"}}

	require.NoError(t, s.Send(context.Background(), validMessage()))
	assert.Equal(t, "from@example.com", fake.sent.From)
	assert.Equal(t, "support@example.com", fake.sent.ReplyTo)
	assert.Equal(t, "dev@example.com", fake.sent.To)
	assert.Equal(t, "<p>hi</p>", fake.sent.HTMLBody)

	fake.resp = postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}
	err := s.Send(context.Background(), validMessage())
	require.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "300")

	fake.resp = postmark.EmailResponse{}
	fake.err = errors.New("network down")
	assert.ErrorIs(t, s.Send(context.Background(), validMessage()), ErrSendFailed)
}
