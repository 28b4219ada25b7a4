// Package router maps (method, path) to handlers using segment templates.
//
// A template is a slash-separated path where a segment starting with ':'
// binds exactly one path segment to a named parameter:
//
//	GET /api/relays/:id
//
// Routes are tried in registration order and the first match wins, so a
// parameterised route registered before a literal one shadows it.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muurk/monitorminer/internal/protocol"
)

// Handler serves one request. A returned error becomes a 500 response.
type Handler func(req *protocol.Request) (*protocol.Response, error)

// Params holds the values bound by ':name' segments.
type Params map[string]string

type segment struct {
	literal string
	param   string
}

// Route is one compiled registration.
type Route struct {
	Method   string
	Template string
	segments []segment
	handler  Handler
}

// Router is an ordered route table. It is built at startup and only read
// afterwards.
type Router struct {
	routes []*Route
	frozen bool
}

// New returns an empty router.
func New() *Router {
	return &Router{}
}

// Handle registers a route. It panics on an invalid template or after Freeze,
// since both are programming errors caught at startup.
func (r *Router) Handle(method, template string, h Handler) {
	if r.frozen {
		panic(fmt.Sprintf("router: Handle(%s %s) after Freeze", method, template))
	}
	segs, err := compile(template)
	if err != nil {
		panic(fmt.Sprintf("router: %v", err))
	}
	r.routes = append(r.routes, &Route{
		Method:   strings.ToUpper(method),
		Template: template,
		segments: segs,
		handler:  h,
	})
}

// GET registers a GET route.
func (r *Router) GET(template string, h Handler) { r.Handle("GET", template, h) }

// POST registers a POST route.
func (r *Router) POST(template string, h Handler) { r.Handle("POST", template, h) }

// Freeze rejects further registrations.
func (r *Router) Freeze() { r.frozen = true }

func compile(template string) ([]segment, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("template %q must start with /", template)
	}
	parts := split(template)
	segs := make([]segment, len(parts))
	seen := make(map[string]bool)
	for i, p := range parts {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if name == "" {
				return nil, fmt.Errorf("template %q has an unnamed parameter", template)
			}
			if seen[name] {
				return nil, fmt.Errorf("template %q repeats parameter %q", template, name)
			}
			seen[name] = true
			segs[i] = segment{param: name}
			continue
		}
		segs[i] = segment{literal: p}
	}
	return segs, nil
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (rt *Route) match(parts []string) (Params, bool) {
	if len(parts) != len(rt.segments) {
		return nil, false
	}
	var params Params
	for i, seg := range rt.segments {
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(Params, 1)
		}
		params[seg.param] = parts[i]
	}
	return params, true
}

// Match returns the first route matching method and path.
func (r *Router) Match(method, path string) (Handler, Params, bool) {
	parts := split(path)
	for _, rt := range r.routes {
		if rt.Method != method {
			continue
		}
		if params, ok := rt.match(parts); ok {
			return rt.handler, params, true
		}
	}
	return nil, nil, false
}

// Allowed lists the methods that have a route matching path, sorted.
func (r *Router) Allowed(path string) []string {
	parts := split(path)
	set := make(map[string]bool)
	for _, rt := range r.routes {
		if _, ok := rt.match(parts); ok {
			set[rt.Method] = true
		}
	}
	methods := make([]string, 0, len(set))
	for m := range set {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Routes returns the table in registration order.
func (r *Router) Routes() []*Route {
	return append([]*Route(nil), r.routes...)
}
