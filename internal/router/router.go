// Package router dispatches parsed requests to the first matching route.
package router

import (
	"strings"

	"github.com/muurk/homesensor/internal/protocol"
)

// Route is one entry in the dispatch table.
type Route interface {
	Match(req *protocol.Request) bool
	Handle(req *protocol.Request) *protocol.Response
}

// HandlerFunc adapts a function to the handling half of a Route.
type HandlerFunc func(req *protocol.Request) *protocol.Response

type strictRoute struct {
	method  string
	path    string
	handler HandlerFunc
}

// Strict matches when both method and path are exactly equal.
func Strict(method, path string, handler HandlerFunc) Route {
	return &strictRoute{method: method, path: path, handler: handler}
}

func (r *strictRoute) Match(req *protocol.Request) bool {
	return req.Method() == r.method && req.Route() == r.path
}

func (r *strictRoute) Handle(req *protocol.Request) *protocol.Response {
	return r.handler(req)
}

func (r *strictRoute) Pattern() (string, string) { return r.method, r.path }

type prefixRoute struct {
	method  string
	prefix  string
	handler HandlerFunc
}

// Prefix matches the method and any path starting with prefix. Register it
// after strict routes it could shadow.
func Prefix(method, prefix string, handler HandlerFunc) Route {
	return &prefixRoute{method: method, prefix: prefix, handler: handler}
}

func (r *prefixRoute) Match(req *protocol.Request) bool {
	return req.Method() == r.method && strings.HasPrefix(req.Route(), r.prefix)
}

func (r *prefixRoute) Handle(req *protocol.Request) *protocol.Response {
	return r.handler(req)
}

func (r *prefixRoute) Pattern() (string, string) { return r.method, r.prefix + "*" }

type notFound struct{}

// NotFound matches everything and answers 404.
var NotFound Route = notFound{}

func (notFound) Match(*protocol.Request) bool { return true }

func (notFound) Handle(*protocol.Request) *protocol.Response {
	return protocol.ErrorResponse(protocol.NewRouteNotFoundError())
}

// Unmatched is the pattern reported for routes that do not describe
// themselves, NotFound included.
const Unmatched = "unmatched"

// Patterned is implemented by routes that can name the pattern they were
// registered with. Strict and Prefix routes do.
type Patterned interface {
	Pattern() (method, pattern string)
}

// PatternOf returns the registered method and pattern of r. The values come
// from the route table, never from the request, so the set is bounded.
func PatternOf(r Route) (method, pattern string) {
	if p, ok := r.(Patterned); ok {
		return p.Pattern()
	}
	return "", Unmatched
}

// Dispatcher holds routes in registration order.
type Dispatcher struct {
	routes []Route
}

// New returns a Dispatcher over routes.
func New(routes ...Route) *Dispatcher {
	return &Dispatcher{routes: routes}
}

// Register appends routes to the table.
func (d *Dispatcher) Register(routes ...Route) {
	d.routes = append(d.routes, routes...)
}

// Lookup returns the first route that matches req, or NotFound.
func (d *Dispatcher) Lookup(req *protocol.Request) Route {
	for _, r := range d.routes {
		if r.Match(req) {
			return r
		}
	}
	return NotFound
}

// Dispatch runs exactly one handler for req.
func (d *Dispatcher) Dispatch(req *protocol.Request) *protocol.Response {
	return d.Lookup(req).Handle(req)
}
