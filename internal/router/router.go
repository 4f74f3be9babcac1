package router

import (
	"net/http"
	"slices"
	"sort"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Router registers method-scoped routes on an http.ServeMux. Each route gets
// the router's middleware chain followed by its own; the first middleware
// listed runs outermost. Groups share the parent's mux and route table.
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *[]string
}

// New creates a Router whose routes all run behind middleware.
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: new([]string),
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, middleware...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, middleware...)
}

func (r *Router) Patch(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPatch, pattern, h, middleware...)
}

func (r *Router) Delete(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, h, middleware...)
}

// Handle registers h for method and pattern. The mux answers other methods
// on a known path with 405.
func (r *Router) Handle(method, pattern string, h http.Handler, middleware ...Middleware) {
	route := method + " " + pattern
	r.mux.Handle(route, chain(h, r.chain, middleware))
	*r.routes = append(*r.routes, route)
}

// Group returns a router that adds middleware after this router's chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		chain:  append(slices.Clone(r.chain), middleware...),
		routes: r.routes,
	}
}

// Routes lists every registered "METHOD /pattern", sorted.
func (r *Router) Routes() []string {
	out := slices.Clone(*r.routes)
	sort.Strings(out)
	return out
}

func chain(h http.Handler, outer, inner []Middleware) http.Handler {
	for i := len(inner) - 1; i >= 0; i-- {
		h = inner[i](h)
	}
	for i := len(outer) - 1; i >= 0; i-- {
		h = outer[i](h)
	}
	return h
}
