package navigation

import "strings"

// Paths with special meaning to the guard
const (
	LoginPath   = "/login"
	DefaultPath = "/"
)

// Access is the capability a route requires
type Access int

const (
	AccessPublic Access = iota
	AccessUser
	AccessAdmin
)

// Route is one entry of the declarative route table. Path segments
// starting with ':' match any single segment.
type Route struct {
	Path   string
	Name   string
	Access Access
}

// DefaultRoutes is the dashboard's route table
func DefaultRoutes() []Route {
	return []Route{
		{Path: LoginPath, Name: "login", Access: AccessPublic},
		{Path: DefaultPath, Name: "home", Access: AccessUser},
		{Path: "/heatmap", Name: "heatmap", Access: AccessUser},
		{Path: "/heatmap3d", Name: "heatmap-3d", Access: AccessUser},
		{Path: "/settings", Name: "settings", Access: AccessUser},
		{Path: "/warehouse", Name: "warehouse-admin", Access: AccessAdmin},
		{Path: "/warehouse/:id/canvas", Name: "warehouse-canvas", Access: AccessAdmin},
		{Path: "/import", Name: "data-import", Access: AccessAdmin},
		{Path: "/users", Name: "user-admin", Access: AccessAdmin},
	}
}

// Session is the identity view the guard consumes
type Session interface {
	IsLoggedIn() bool
	IsAdmin() bool
}

// Decision is the outcome of a navigation attempt. When Allow is false,
// RedirectTo carries the replacement target; ReturnTo preserves the
// originally intended path across a login redirect.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirect_to,omitempty"`
	ReturnTo   string `json:"return_to,omitempty"`
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(to string) Decision {
	return Decision{RedirectTo: to}
}

func redirectToLogin(returnTo string) Decision {
	return Decision{RedirectTo: LoginPath, ReturnTo: returnTo}
}

// Guard evaluates navigation attempts against the route table
type Guard struct {
	routes []Route
}

// NewGuard creates a guard over the given route table
func NewGuard(routes []Route) *Guard {
	return &Guard{routes: routes}
}

// Decide evaluates a navigation attempt:
//  1. a public target is allowed, except the login view for an identity
//     that is already logged in, which bounces to the default landing view;
//  2. without an identity, every protected target redirects to login with
//     the intended path as return target;
//  3. an admin target without admin access redirects to the default
//     landing view, not to login;
//  4. otherwise the navigation is allowed.
//
// Paths outside the route table redirect to the default landing view.
func (g *Guard) Decide(path string, session Session) Decision {
	route, ok := g.match(path)
	if !ok {
		return redirect(DefaultPath)
	}

	if route.Access == AccessPublic {
		if route.Path == LoginPath && session.IsLoggedIn() {
			return redirect(DefaultPath)
		}
		return allow()
	}

	if !session.IsLoggedIn() {
		return redirectToLogin(path)
	}

	if route.Access == AccessAdmin && !session.IsAdmin() {
		return redirect(DefaultPath)
	}

	return allow()
}

// Routes returns the route table
func (g *Guard) Routes() []Route {
	out := make([]Route, len(g.routes))
	copy(out, g.routes)
	return out
}

func (g *Guard) match(path string) (Route, bool) {
	for _, route := range g.routes {
		if matchPath(route.Path, path) {
			return route, true
		}
	}
	return Route{}, false
}

func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}
	pp := splitPath(pattern)
	ps := splitPath(path)
	if len(pp) != len(ps) {
		return false
	}
	for i := range pp {
		if strings.HasPrefix(pp[i], ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if pp[i] != ps[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
