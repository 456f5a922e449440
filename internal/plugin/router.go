package plugin

import (
	"context"
	"regexp"
)

// HandlerFunc handles a chat message matched by a route. Named capture
// groups of the route's pattern are passed in args.
type HandlerFunc func(ctx context.Context, msg Message, args map[string]string) error

// Route pairs a pattern with a handler.
type Route struct {
	Name    string
	Pattern *regexp.Regexp
	// Direct routes only match messages addressed to the bot.
	Direct  bool
	Handler HandlerFunc
}

// Router matches chat messages against routes in the order they were added.
// The first matching route wins.
type Router struct {
	routes []Route
}

// Respond adds a route that only matches messages addressed to the bot.
func (r *Router) Respond(name, expr string, h HandlerFunc) {
	r.routes = append(r.routes, Route{Name: name, Pattern: regexp.MustCompile(expr), Direct: true, Handler: h})
}

// Hear adds a route that matches any message in the room.
func (r *Router) Hear(name, expr string, h HandlerFunc) {
	r.routes = append(r.routes, Route{Name: name, Pattern: regexp.MustCompile(expr), Handler: h})
}

// Match returns the first route matching msg and its named captures.
func (r *Router) Match(msg Message) (Route, map[string]string, bool) {
	for _, route := range r.routes {
		if route.Direct && !msg.Direct {
			continue
		}
		m := route.Pattern.FindStringSubmatch(msg.Text)
		if m == nil {
			continue
		}
		args := make(map[string]string)
		for i, name := range route.Pattern.SubexpNames() {
			if name != "" {
				args[name] = m[i]
			}
		}
		return route, args, true
	}
	return Route{}, nil, false
}

// Routes returns the routes in priority order.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}
