package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.Equal(t, Version, String())

	origCommit, origTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = origCommit, origTime })
	GitCommit, BuildTime = "abc123", "2024-05-06"
	assert.Equal(t, Version+" (abc123, built 2024-05-06)", String())
}
