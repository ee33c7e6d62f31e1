package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/internal/log"
)

func TestNewClient_Validation(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := NewClient("", "gpt-3.5-turbo", 0.7, log.NewNop())
		assert.Error(t, err)
	})

	t.Run("missing model", func(t *testing.T) {
		_, err := NewClient("sk-test", "", 0.7, log.NewNop())
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		c, err := NewClient("sk-test", "gpt-3.5-turbo", 0.7, log.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "gpt-3.5-turbo", c.model)
		assert.InDelta(t, 0.7, c.temperature, 0.001)
	})
}
