package middleware_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
)

type stubMiddleware struct {
	name   string
	result middleware.Result
	calls  *[]string
}

func (s *stubMiddleware) Name() string { return s.name }

func (s *stubMiddleware) Process(ctx *middleware.Context) middleware.Result {
	*s.calls = append(*s.calls, s.name)
	return s.result
}

func TestChainStopsAtFirstDenial(t *testing.T) {
	var calls []string
	allow := &stubMiddleware{name: "a", result: middleware.Allow(), calls: &calls}
	deny := &stubMiddleware{name: "b", result: middleware.Deny(403, "no"), calls: &calls}
	never := &stubMiddleware{name: "c", result: middleware.Allow(), calls: &calls}

	chain := middleware.NewChain([]middleware.Middleware{allow, deny, never})
	ctx := middleware.NewContext("GET", "/", nil, nil, nil, "http://origin")

	result := chain.Process(ctx)
	require.False(t, result.Success)
	require.Equal(t, 403, result.StatusCode)
	require.Equal(t, []string{"a", "b"}, calls)
}

func TestChainAllowsWhenAllSucceed(t *testing.T) {
	var calls []string
	a := &stubMiddleware{name: "a", result: middleware.Allow(), calls: &calls}
	b := &stubMiddleware{name: "b", result: middleware.Allow(), calls: &calls}

	chain := middleware.NewChain([]middleware.Middleware{a, b})
	ctx := middleware.NewContext("GET", "/", nil, nil, nil, "http://origin")

	result := chain.Process(ctx)
	require.True(t, result.Success)
	require.Equal(t, []string{"a", "b"}, calls)
}

func TestChainShortCircuitsOnCacheHit(t *testing.T) {
	var calls []string
	hit := &stubMiddleware{name: "cache", result: middleware.CacheHit([]byte("cached")), calls: &calls}
	never := &stubMiddleware{name: "never", result: middleware.Allow(), calls: &calls}

	chain := middleware.NewChain([]middleware.Middleware{hit, never})
	ctx := middleware.NewContext("GET", "/", nil, nil, nil, "http://origin")

	result := chain.Process(ctx)
	require.True(t, result.Success)
	require.Equal(t, []byte("cached"), result.CachedBody)
	require.Equal(t, []string{"cache"}, calls)
}

func TestRegistryBuildUnknownTagFails(t *testing.T) {
	reg := middleware.NewRegistry()
	_, err := reg.Build([]config.MiddlewareConfig{{Name: "x", Type: "not-a-tag"}})
	require.Error(t, err)
}

func TestRegistryBuildNamedSelectsSubset(t *testing.T) {
	reg := middleware.NewRegistry()
	reg.Register("noop", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		return &stubMiddleware{name: cfg.Name, result: middleware.Allow(), calls: &[]string{}}, nil
	})

	descriptors := []config.MiddlewareConfig{
		{Name: "one", Type: "noop"},
		{Name: "two", Type: "noop"},
	}
	chain, err := reg.BuildNamed(descriptors, []string{"two"})
	require.NoError(t, err)
	require.Equal(t, 1, chain.Len())
}
