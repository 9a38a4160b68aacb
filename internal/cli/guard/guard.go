// Package guard decides whether a requested view may render based on
// session state. It is a pure function of (user, loading, route) and
// holds no state of its own.
package guard

import "github.com/diatrack-dev/diatrack/internal/cli/client"

// Decision is the outcome of resolving a route against session state
type Decision int

const (
	// Render the requested view
	Render Decision = iota
	// ShowLoading renders a placeholder while the session check is pending
	ShowLoading
	// RedirectLogin sends the viewer to the login view
	RedirectLogin
	// RedirectDashboard sends a non-admin away from an admin-only view
	RedirectDashboard
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case ShowLoading:
		return "loading"
	case RedirectLogin:
		return "redirect-login"
	case RedirectDashboard:
		return "redirect-dashboard"
	default:
		return "unknown"
	}
}

// Route describes the access requirements of a view
type Route struct {
	Path         string
	RequiresAuth bool
	AdminOnly    bool
}

// Resolve gates a route on session state. Public routes always render.
// Protected routes render a loading placeholder until the initial
// session check resolves, redirect to login when unauthenticated, and
// redirect admin-only views to the dashboard for non-admin users.
func Resolve(user *client.User, loading bool, route Route) Decision {
	if !route.RequiresAuth {
		return Render
	}
	if loading {
		return ShowLoading
	}
	if user == nil {
		return RedirectLogin
	}
	if route.AdminOnly && user.Role != "admin" {
		return RedirectDashboard
	}
	return Render
}
