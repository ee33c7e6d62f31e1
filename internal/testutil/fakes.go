package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
)

// FakeEmbedder is an in-memory Embedder that produces deterministic vectors
// derived from the input text: identical texts embed identically, similar
// texts do not. Set Err to force failures.
type FakeEmbedder struct {
	Dimension int
	Err       error

	mu    sync.Mutex
	Calls []string
}

// NewFakeEmbedder creates a FakeEmbedder producing vectors of dim components.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dim}
}

// Embed returns a unit-length vector seeded by the text's hash.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, text)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, f.Dimension)
	var norm float64
	for i := range vec {
		// xorshift-style mix for a stable pseudo-random component
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// CallCount returns the number of Embed invocations so far.
func (f *FakeEmbedder) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeCompleter is an in-memory Completer returning a canned reply.
// Set Err to force failures.
type FakeCompleter struct {
	Reply string
	Err   error

	mu            sync.Mutex
	SystemPrompts []string
	UserMessages  []string
}

// Complete records the exchange and returns the canned reply.
func (f *FakeCompleter) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.mu.Lock()
	f.SystemPrompts = append(f.SystemPrompts, systemPrompt)
	f.UserMessages = append(f.UserMessages, userMessage)
	f.mu.Unlock()

	if f.Err != nil {
		return "", f.Err
	}
	if f.Reply == "" {
		return fmt.Sprintf("echo: %s", userMessage), nil
	}
	return f.Reply, nil
}

// CallCount returns the number of Complete invocations so far.
func (f *FakeCompleter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.UserMessages)
}

// LastSystemPrompt returns the most recent system prompt, or "".
func (f *FakeCompleter) LastSystemPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.SystemPrompts) == 0 {
		return ""
	}
	return f.SystemPrompts[len(f.SystemPrompts)-1]
}
