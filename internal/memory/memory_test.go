package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_Valid(t *testing.T) {
	for _, typ := range []Type{TypeNote, TypeConversation, TypeDocument, TypeGoal, TypeReminder} {
		assert.True(t, typ.Valid(), "expected %q to be valid", typ)
	}
	assert.False(t, Type("secret").Valid())
	assert.False(t, Type("").Valid())
}

func TestEmbeddingInput(t *testing.T) {
	assert.Equal(t, "Trip notes Pack the charger", EmbeddingInput("Trip notes", "Pack the charger"))
}

func TestFilter(t *testing.T) {
	alpha := &Memory{Title: "alpha notes", Content: "first"}
	beta := &Memory{Title: "beta notes", Content: "second"}
	memories := []*Memory{alpha, beta}

	t.Run("matches title substring", func(t *testing.T) {
		got := Filter(memories, "alpha")
		require.Len(t, got, 1)
		assert.Same(t, alpha, got[0])
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := Filter(memories, "ALPHA")
		require.Len(t, got, 1)
		assert.Same(t, alpha, got[0])
	})

	t.Run("matches content substring", func(t *testing.T) {
		got := Filter(memories, "second")
		require.Len(t, got, 1)
		assert.Same(t, beta, got[0])
	})

	t.Run("empty query returns all", func(t *testing.T) {
		assert.Len(t, Filter(memories, ""), 2)
		assert.Len(t, Filter(memories, "   "), 2)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Filter(memories, "gamma"))
	})
}

func TestCreateInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateInput
		wantErr string
	}{
		{name: "valid", in: CreateInput{Title: "t", Content: "c", Type: TypeNote}},
		{name: "defaults type to note", in: CreateInput{Title: "t", Content: "c"}},
		{name: "blank title", in: CreateInput{Title: "  ", Content: "c"}, wantErr: "title is required"},
		{name: "blank content", in: CreateInput{Title: "t", Content: "\t\n"}, wantErr: "content is required"},
		{name: "unknown type", in: CreateInput{Title: "t", Content: "c", Type: "secret"}, wantErr: "unknown memory type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.in.Type.Valid())
		})
	}
}

func TestNewStore_NilArguments(t *testing.T) {
	_, err := NewStore(nil, nil, nil)
	assert.ErrorContains(t, err, "pool is required")
}
