package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short message unchanged", in: "hello", want: "hello"},
		{name: "exactly fifty", in: strings.Repeat("a", 50), want: strings.Repeat("a", 50)},
		{name: "long message truncated", in: strings.Repeat("b", 80), want: strings.Repeat("b", 50)},
		{name: "multibyte safe", in: strings.Repeat("記", 60), want: strings.Repeat("記", 50)},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromMessage(tt.in))
		})
	}
}

func TestNewStore_NilPool(t *testing.T) {
	_, err := NewStore(nil, nil)
	assert.ErrorContains(t, err, "pool is required")
}
