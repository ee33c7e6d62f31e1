package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/engramhq/engram/internal/log"
)

// goleakOptions ignores goroutines owned by the runtime and shared pools.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	}
}

func TestRun_ShutsDownOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	f := newFixture(t)
	srv, err := NewServer(ServerConfig{
		Logger:        log.NewNop(),
		Verifier:      f.verifier,
		Chat:          f.chat,
		Memories:      f.memories,
		Profiles:      f.profiles,
		Conversations: f.convs,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	// Give the listener a moment to come up, then trigger shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
