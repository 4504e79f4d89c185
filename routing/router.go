// File: routing/router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Router and trie (C1+C8). One trie per HTTP method plus a designated ANY
// trie consulted when no method-specific trie matches. Routes are
// immutable after Build: no locks are needed on the lookup path.

package routing

import "strings"

// Route is one entry in the router: a pattern bound to an upstream, the
// methods it accepts, and the names of middlewares to run for it. Method
// instances and middleware instances are resolved elsewhere (the server
// orchestrator builds one chain per route from the middleware registry and
// hands those chains to the protocol handlers); the router only carries
// the names so building a router never requires importing the middleware
// package.
type Route struct {
	Pattern     *Pattern
	Upstream    string
	Methods     []string
	Middlewares []string
}

// Match is the result of a successful router lookup.
type Match struct {
	Route    *Route
	Bindings map[string]string
}

type trieNode struct {
	literal   map[string]*trieNode
	param     *trieNode
	paramName string
	wildcard  *trieNode
	routeIdx  int // -1 when this node is not terminal
}

func newTrieNode() *trieNode {
	return &trieNode{routeIdx: -1}
}

func (n *trieNode) insert(segs []segment, routeIdx int) {
	cur := n
	for _, seg := range segs {
		switch seg.kind {
		case segLiteral:
			if cur.literal == nil {
				cur.literal = make(map[string]*trieNode)
			}
			next, ok := cur.literal[seg.value]
			if !ok {
				next = newTrieNode()
				cur.literal[seg.value] = next
			}
			cur = next
		case segParam:
			if cur.param == nil {
				cur.param = newTrieNode()
				cur.param.paramName = seg.value
			}
			cur = cur.param
		case segWildcard:
			if cur.wildcard == nil {
				cur.wildcard = newTrieNode()
			}
			cur = cur.wildcard
			cur.routeIdx = routeIdx
			return
		}
	}
	cur.routeIdx = routeIdx
}

// lookup walks pathSegs against the trie, preferring a literal edge, then
// a parameter edge, then a wildcard edge at each node. A wildcard edge
// matches immediately and short-circuits, ignoring any remaining segments.
func (n *trieNode) lookup(pathSegs []string, bindings map[string]string) int {
	cur := n
	for i, seg := range pathSegs {
		if next, ok := cur.literal[seg]; ok {
			if routeIdx, ok := tryRest(next, pathSegs[i+1:], bindings); ok {
				return routeIdx
			}
		}
		if cur.param != nil {
			bindings[cur.param.paramName] = seg
			if routeIdx, ok := tryRest(cur.param, pathSegs[i+1:], bindings); ok {
				return routeIdx
			}
			delete(bindings, cur.param.paramName)
		}
		if cur.wildcard != nil {
			return cur.wildcard.routeIdx
		}
		return -1
	}
	if cur.routeIdx >= 0 {
		return cur.routeIdx
	}
	if cur.wildcard != nil {
		return cur.wildcard.routeIdx
	}
	return -1
}

// tryRest attempts to match the remaining path segments starting at node,
// returning the matched route index on success.
func tryRest(node *trieNode, rest []string, bindings map[string]string) (int, bool) {
	idx := node.lookup(rest, bindings)
	if idx >= 0 {
		return idx, true
	}
	return -1, false
}

// Router combines per-method tries with a shared ANY trie, per spec C8.
type Router struct {
	routes  []Route
	methods map[string]*trieNode
	anyTrie *trieNode
}

// Build constructs a Router from a route list. Routes are immutable after
// this call: no mutation happens on the lookup path.
func Build(routes []Route) (*Router, error) {
	r := &Router{
		routes:  routes,
		methods: make(map[string]*trieNode),
		anyTrie: newTrieNode(),
	}
	for idx, route := range routes {
		if len(route.Methods) == 0 {
			r.anyTrie.insert(route.Pattern.segments, idx)
			continue
		}
		for _, m := range route.Methods {
			m = strings.ToUpper(m)
			trie, ok := r.methods[m]
			if !ok {
				trie = newTrieNode()
				r.methods[m] = trie
			}
			trie.insert(route.Pattern.segments, idx)
		}
	}
	return r, nil
}

// FindRoute consults the method-specific trie first, then the ANY trie.
// It returns the matched route and its parameter bindings, or ok=false.
func (r *Router) FindRoute(method, path string) (Match, bool) {
	pathSegs := splitPath(path)
	bindings := make(map[string]string)

	if trie, ok := r.methods[strings.ToUpper(method)]; ok {
		if idx := trie.lookup(pathSegs, bindings); idx >= 0 {
			return Match{Route: &r.routes[idx], Bindings: bindings}, true
		}
	}
	bindings = make(map[string]string)
	if idx := r.anyTrie.lookup(pathSegs, bindings); idx >= 0 {
		return Match{Route: &r.routes[idx], Bindings: bindings}, true
	}
	return Match{}, false
}

// Routes returns the immutable route list the router was built from.
func (r *Router) Routes() []Route {
	return r.routes
}
