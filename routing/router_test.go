package routing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/routing"
)

func build(t *testing.T, routes []routing.Route) *routing.Router {
	t.Helper()
	r, err := routing.Build(routes)
	require.NoError(t, err)
	return r
}

func pattern(t *testing.T, s string) *routing.Pattern {
	t.Helper()
	p, err := routing.ParsePattern(s)
	require.NoError(t, err)
	return p
}

func TestRouterLiteralMatch(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/healthz"), Upstream: "http://a", Methods: []string{"GET"}},
	}
	r := build(t, routes)

	m, ok := r.FindRoute("GET", "/healthz")
	require.True(t, ok)
	require.Equal(t, "http://a", m.Route.Upstream)
	require.Empty(t, m.Bindings)

	_, ok = r.FindRoute("GET", "/nope")
	require.False(t, ok)
}

func TestRouterParameterBinding(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/users/:id/messages/:messageId"), Upstream: "http://svc", Methods: []string{"GET"}},
	}
	r := build(t, routes)

	m, ok := r.FindRoute("GET", "/users/42/messages/7")
	require.True(t, ok)
	require.Equal(t, "42", m.Bindings["id"])
	require.Equal(t, "7", m.Bindings["messageId"])
}

func TestRouterWildcardShortCircuits(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/static/*"), Upstream: "http://assets", Methods: []string{"GET"}},
	}
	r := build(t, routes)

	m, ok := r.FindRoute("GET", "/static/css/app.css")
	require.True(t, ok)
	require.Equal(t, "http://assets", m.Route.Upstream)
}

func TestRouterPrefersLiteralOverParam(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/users/:id"), Upstream: "http://param", Methods: []string{"GET"}},
		{Pattern: pattern(t, "/users/me"), Upstream: "http://literal", Methods: []string{"GET"}},
	}
	r := build(t, routes)

	m, ok := r.FindRoute("GET", "/users/me")
	require.True(t, ok)
	require.Equal(t, "http://literal", m.Route.Upstream)
}

func TestRouterFallsBackToAnyTrie(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/ping"), Upstream: "http://any"},
	}
	r := build(t, routes)

	m, ok := r.FindRoute("POST", "/ping")
	require.True(t, ok)
	require.Equal(t, "http://any", m.Route.Upstream)
}

func TestParsePatternRejectsNonTerminalWildcard(t *testing.T) {
	_, err := routing.ParsePattern("/static/*/extra")
	require.Error(t, err)
}
