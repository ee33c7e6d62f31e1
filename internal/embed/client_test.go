package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/log"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient("", "token", log.NewNop())
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	var gotAuth string
	var gotText string

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotText = req.Text

		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	})

	client, err := NewClient(srv.URL, "service-token", log.NewNop())
	require.NoError(t, err)

	vec, err := client.Embed(context.Background(), "remember the milk")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "remember the milk", gotText)
	assert.Equal(t, "Bearer service-token", gotAuth)
}

func TestEmbed_ForwardsCallerToken(t *testing.T) {
	var gotAuth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	})

	client, err := NewClient(srv.URL, "service-token", log.NewNop())
	require.NoError(t, err)

	ctx := auth.WithIdentity(context.Background(), uuid.New(), "caller-token")
	_, err = client.Embed(ctx, "text")
	require.NoError(t, err)

	assert.Equal(t, "Bearer caller-token", gotAuth)
}

func TestEmbed_UpstreamError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client, err := NewClient(srv.URL, "token", log.NewNop())
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	assert.ErrorContains(t, err, "status 500")
}

func TestEmbed_EmptyEmbedding(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{})
	})

	client, err := NewClient(srv.URL, "token", log.NewNop())
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	assert.ErrorContains(t, err, "empty embedding")
}
