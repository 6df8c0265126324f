package models

import (
	"fmt"
	"strings"
)

// RouteKind distinguishes the two kinds of publicly served pages.
type RouteKind int

const (
	// RouteHome is the listing page at "/".
	RouteHome RouteKind = iota
	// RoutePostDetail is a post page at "/posts/{slug}".
	RoutePostDetail
)

const postRoutePrefix = "/posts/"

// Route is a public path that may need revalidation.
type Route struct {
	Kind RouteKind
	Slug string
}

// HomeRoute returns the listing page route.
func HomeRoute() Route {
	return Route{Kind: RouteHome}
}

// PostRoute returns the detail route for slug.
func PostRoute(slug string) Route {
	return Route{Kind: RoutePostDetail, Slug: slug}
}

// Path formats the route as a URL path.
func (r Route) Path() string {
	if r.Kind == RoutePostDetail {
		return postRoutePrefix + r.Slug
	}
	return "/"
}

func (r Route) String() string {
	return r.Path()
}

// ParseRoute is the inverse of Path.
func ParseRoute(path string) (Route, error) {
	if path == "/" {
		return HomeRoute(), nil
	}
	if slug, ok := strings.CutPrefix(path, postRoutePrefix); ok && slug != "" && !strings.Contains(slug, "/") {
		return PostRoute(slug), nil
	}
	return Route{}, fmt.Errorf("unsupported route %q", path)
}

// StaleRouteSet is an insertion-ordered set of routes keyed by path.
// The zero value is ready to use.
type StaleRouteSet struct {
	routes []Route
	index  map[string]struct{}
}

// NewStaleRouteSet returns a set seeded with routes.
func NewStaleRouteSet(routes ...Route) StaleRouteSet {
	var s StaleRouteSet
	s.Add(routes...)
	return s
}

// Add inserts routes not already present, keeping first-seen order.
func (s *StaleRouteSet) Add(routes ...Route) {
	if s.index == nil {
		s.index = make(map[string]struct{}, len(routes))
	}
	for _, r := range routes {
		p := r.Path()
		if _, ok := s.index[p]; ok {
			continue
		}
		s.index[p] = struct{}{}
		s.routes = append(s.routes, r)
	}
}

// AddPostSlugs inserts a detail route per non-empty slug.
func (s *StaleRouteSet) AddPostSlugs(slugs ...string) {
	for _, slug := range slugs {
		if slug == "" {
			continue
		}
		s.Add(PostRoute(slug))
	}
}

// Merge adds every route of other.
func (s *StaleRouteSet) Merge(other StaleRouteSet) {
	s.Add(other.routes...)
}

// Contains reports whether path is in the set.
func (s StaleRouteSet) Contains(path string) bool {
	_, ok := s.index[path]
	return ok
}

// Len returns the number of routes.
func (s StaleRouteSet) Len() int {
	return len(s.routes)
}

// Routes returns a copy of the routes in insertion order.
func (s StaleRouteSet) Routes() []Route {
	out := make([]Route, len(s.routes))
	copy(out, s.routes)
	return out
}

// Paths returns the formatted paths in insertion order.
func (s StaleRouteSet) Paths() []string {
	out := make([]string, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r.Path())
	}
	return out
}
