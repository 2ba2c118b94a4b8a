package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/models"
)

// fakeBackend echoes an index marker per prompt, for contract tests.
type fakeBackend struct {
	limit   int
	failIdx map[int]error
}

func (f *fakeBackend) Name() string      { return "fake" }
func (f *fakeBackend) ModelName() string { return "fake-1" }

func (f *fakeBackend) BatchInvoke(ctx context.Context, prompts []string) []Result {
	return fanOut(ctx, prompts, f.limit, func(ctx context.Context, prompt string) (string, error) {
		for i, p := range prompts {
			if p == prompt {
				if err, bad := f.failIdx[i]; bad {
					return "", err
				}
				return fmt.Sprintf("echo-%d", i), nil
			}
		}
		return "", errors.New("unknown prompt")
	})
}

func TestBatchInvoke_Contract(t *testing.T) {
	prompts := make([]string, 50)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt-%d", i)
	}

	for _, limit := range []int{1, 4, 0} { // 0 exercises the default bound
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			backend := &fakeBackend{limit: limit}
			results := backend.BatchInvoke(context.Background(), prompts)

			require.Len(t, results, len(prompts), "one output per prompt")
			for i, r := range results {
				require.NoError(t, r.Err)
				assert.Equal(t, fmt.Sprintf("echo-%d", i), r.Content, "output %d out of order", i)
			}
		})
	}
}

func TestBatchInvoke_ItemFailureDoesNotSinkSiblings(t *testing.T) {
	boom := errors.New("rate limited")
	backend := &fakeBackend{
		limit:   2,
		failIdx: map[int]error{1: boom},
	}

	results := backend.BatchInvoke(context.Background(), []string{"prompt-0", "prompt-1", "prompt-2"})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "echo-0", results[0].Content)

	require.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Empty(t, results[1].Content)

	assert.NoError(t, results[2].Err)
	assert.Equal(t, "echo-2", results[2].Content)
}

func TestBatchInvoke_EmptyPrompts(t *testing.T) {
	backend := &fakeBackend{}
	results := backend.BatchInvoke(context.Background(), nil)
	assert.Empty(t, results)
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterProvider("fake", func(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
		return &fakeBackend{limit: cfg.Concurrency}, nil
	})
	reg.RegisterModel("fake-fast", ModelConfig{Provider: "fake", Concurrency: 3})

	t.Run("known id", func(t *testing.T) {
		backend, err := reg.Resolve(context.Background(), "fake-fast")
		require.NoError(t, err)
		assert.Equal(t, "fake", backend.Name())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := reg.Resolve(context.Background(), "does-not-exist")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrUnsupportedModel)
		assert.Contains(t, err.Error(), "does-not-exist")
	})

	t.Run("id bound to unregistered provider", func(t *testing.T) {
		reg.RegisterModel("orphan", ModelConfig{Provider: "nope"})
		_, err := reg.Resolve(context.Background(), "orphan")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrUnsupportedModel)
	})

	t.Run("constructor failure is wrapped", func(t *testing.T) {
		reg.RegisterProvider("broken", func(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
			return nil, fmt.Errorf("api key not configured: %w", models.ErrUnsupportedModel)
		})
		reg.RegisterModel("broken-1", ModelConfig{Provider: "broken"})
		_, err := reg.Resolve(context.Background(), "broken-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrUnsupportedModel)
		assert.Contains(t, err.Error(), "broken-1")
	})
}

// closableBackend records Close calls, like a backend holding a gRPC
// connection would.
type closableBackend struct {
	fakeBackend
	closed int
}

func (c *closableBackend) Close() error {
	c.closed++
	return nil
}

func TestRegistry_ResolveCachesBackends(t *testing.T) {
	constructed := 0
	reg := NewRegistry()
	reg.RegisterProvider("fake", func(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
		constructed++
		return &closableBackend{}, nil
	})
	reg.RegisterModel("fake-1", ModelConfig{Provider: "fake"})

	first, err := reg.Resolve(context.Background(), "fake-1")
	require.NoError(t, err)
	second, err := reg.Resolve(context.Background(), "fake-1")
	require.NoError(t, err)

	assert.Same(t, first, second, "repeated resolves must reuse the backend")
	assert.Equal(t, 1, constructed, "constructor must run once per model id")
}

func TestRegistry_ConstructionFailureIsNotCached(t *testing.T) {
	attempts := 0
	reg := NewRegistry()
	reg.RegisterProvider("flaky", func(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("api key not configured: %w", models.ErrUnsupportedModel)
		}
		return &fakeBackend{}, nil
	})
	reg.RegisterModel("flaky-1", ModelConfig{Provider: "flaky"})

	_, err := reg.Resolve(context.Background(), "flaky-1")
	require.Error(t, err)

	// The environment was fixed; the next resolve must retry.
	backend, err := reg.Resolve(context.Background(), "flaky-1")
	require.NoError(t, err)
	assert.NotNil(t, backend)
	assert.Equal(t, 2, attempts)
}

func TestRegistry_CloseReleasesCachedBackends(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterProvider("fake", func(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
		return &closableBackend{}, nil
	})
	reg.RegisterModel("fake-1", ModelConfig{Provider: "fake"})

	backend, err := reg.Resolve(context.Background(), "fake-1")
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	assert.Equal(t, 1, backend.(*closableBackend).closed)

	// A resolve after Close constructs a fresh backend.
	fresh, err := reg.Resolve(context.Background(), "fake-1")
	require.NoError(t, err)
	assert.NotSame(t, backend, fresh)
}

func TestRegistry_RegisterModelEvictsCachedBackend(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterProvider("fake", func(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
		return &closableBackend{}, nil
	})
	reg.RegisterModel("fake-1", ModelConfig{Provider: "fake", Model: "old"})

	stale, err := reg.Resolve(context.Background(), "fake-1")
	require.NoError(t, err)

	reg.RegisterModel("fake-1", ModelConfig{Provider: "fake", Model: "new"})
	assert.Equal(t, 1, stale.(*closableBackend).closed, "replaced backend must be closed")

	fresh, err := reg.Resolve(context.Background(), "fake-1")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
}
