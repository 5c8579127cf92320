package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "emailbuilder.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "emailbuilder.yaml", file)
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		assert.True(t, HasCategory(err, CategoryConfig))
		assert.False(t, err.CanRetry())
		assert.True(t, err.IsFatal())
	})

	t.Run("Unwrap chain", func(t *testing.T) {
		cause := errors.New("no such file")
		err := WrapError(cause, CategoryInline, "read compiled css").Build()

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CategoryInline, GetCategory(err))
		assert.Equal(t, CategoryInternal, GetCategory(cause))
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := StyleError("sass failed").Build()
		withEntry := base.WithContext("entry", "email.scss")

		_, ok := base.Context().Get("entry")
		assert.False(t, ok)
		v, ok := withEntry.Context().GetString("entry")
		require.True(t, ok)
		assert.Equal(t, "email.scss", v)
		assert.ErrorIs(t, withEntry, base)
	})
}

func TestErrorBuilder(t *testing.T) {
	err := WrapError(errors.New("dial tcp"), CategoryNotify, "publish build event").
		Warning().
		Retryable().
		Build()

	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, RetryBackoff, err.RetryStrategy())
	assert.True(t, err.CanRetry())
	assert.Contains(t, err.Error(), "dial tcp")
}
