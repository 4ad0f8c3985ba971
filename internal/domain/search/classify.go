package search

import (
	"fmt"

	"github.com/kailas-cloud/taarya/internal/domain"
)

// Route is a backend path the router can take for a request.
type Route uint8

const (
	// RouteSpatial is a catalog cone search.
	RouteSpatial Route = 1 << iota
	// RouteSemantic is a similarity search over free text.
	RouteSemantic
	// RouteIdentifier is a catalog lookup followed by graph traversal.
	RouteIdentifier
)

// Name returns the wire name reported in backends_used.
func (r Route) Name() string {
	switch r {
	case RouteSpatial:
		return "spatial"
	case RouteSemantic:
		return "semantic"
	case RouteIdentifier:
		return "graph"
	}
	return "unknown"
}

// Routes is a set of routes.
type Routes uint8

// Has reports whether r is in the set.
func (s Routes) Has(r Route) bool { return s&Routes(r) != 0 }

// IsEmpty reports whether no route applies.
func (s Routes) IsEmpty() bool { return s == 0 }

// List returns the routes in dispatch order.
func (s Routes) List() []Route {
	var out []Route
	for _, r := range []Route{RouteSpatial, RouteSemantic, RouteIdentifier} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Classify returns the routes applicable to req. It performs no I/O.
func Classify(req Request) Routes {
	var s Routes
	if _, ok := req.Cone(); ok {
		s |= Routes(RouteSpatial)
	}
	if _, ok := req.Text(); ok {
		s |= Routes(RouteSemantic)
	}
	if _, ok := req.SourceID(); ok {
		s |= Routes(RouteIdentifier)
	}
	return s
}

// ClassifyStrict is Classify that fails with ErrUnclassifiable on an empty set.
func ClassifyStrict(req Request) (Routes, error) {
	s := Classify(req)
	if s.IsEmpty() {
		return 0, fmt.Errorf("%w: provide text, ra/dec/radius, or source_id", domain.ErrUnclassifiable)
	}
	return s, nil
}
