package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := Config("open", "block size %d does not match %d", 4096, 8192)
	wrapped := fmt.Errorf("failed to open index SPO: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConfig))
	assert.False(t, errors.Is(wrapped, ErrIntegrity))
	assert.True(t, IsConfig(wrapped))
	assert.Equal(t, KindConfig, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "configuration error")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("boom")))
	assert.False(t, IsIntegrity(nil))
}

func TestIntegrityDistinctFromConfig(t *testing.T) {
	err := Integrity("read", "block %d never allocated", 12)
	assert.True(t, IsIntegrity(err))
	assert.False(t, IsConfig(err))
	assert.Equal(t, "integrity", KindIntegrity.String())
}
