package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/diatrack-dev/diatrack/internal/cli/asyncop"
	"github.com/diatrack-dev/diatrack/internal/cli/auth"
	"github.com/diatrack-dev/diatrack/internal/cli/client"
	"github.com/diatrack-dev/diatrack/internal/cli/config"
	"github.com/diatrack-dev/diatrack/internal/cli/guard"
	"github.com/diatrack-dev/diatrack/internal/cli/serverselect"
	"github.com/diatrack-dev/diatrack/internal/cli/session"
)

// Access requirements of the views each command fronts. Deletes and
// uploads share the route of the view they are reached from.
var (
	adminUsersRoute = guard.Route{Path: "/admin/users", RequiresAuth: true, AdminOnly: true}
	adminStatsRoute = guard.Route{Path: "/admin/dashboard", RequiresAuth: true, AdminOnly: true}
	adminDocsRoute  = guard.Route{Path: "/admin/chatbot", RequiresAuth: true, AdminOnly: true}
)

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
func getSelectedServer() (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'diatrack init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, "")
	if err != nil {
		return nil, err
	}

	if server.Origin == "" {
		return nil, fmt.Errorf("server origin is empty. Please edit diatrack.json and add a valid origin URL")
	}

	return server, nil
}

// newAuthenticatedClient builds an API client for the server with the
// stored session token attached.
func newAuthenticatedClient(server *config.Server) (*client.Client, error) {
	token, err := auth.LoadToken(server.Origin)
	if err != nil {
		return nil, err
	}

	apiClient := client.New(server.Origin)
	apiClient.SetToken(token)
	return apiClient, nil
}

// ensureRoute gates a command on the same access rules as the view it
// fronts: the current session is resolved and matched against the
// route before the command's own request goes out.
func ensureRoute(gateway session.Gateway, route guard.Route) error {
	store := session.NewIdle(gateway)
	store.CheckAuth(context.Background())

	switch guard.Resolve(store.User(), store.Loading(), route) {
	case guard.RedirectLogin:
		return fmt.Errorf("not logged in. Run 'diatrack login' first")
	case guard.RedirectDashboard:
		return fmt.Errorf("admin access is required for this command")
	case guard.ShowLoading:
		return fmt.Errorf("session check did not resolve")
	}
	return nil
}

// fetchNotice is printed when a remote call outlives the grace period
const (
	fetchGracePeriod = 500 * time.Millisecond
	fetchNotice      = "Waiting for %s...\n"
)

// fetch runs one remote call through an operation tracker and prints a
// waiting notice when the server takes longer than the grace period.
func fetch[T any](label string, call func() (T, error)) (T, error) {
	var op asyncop.Op[T]
	op.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		value, err := call()
		if err != nil {
			op.Fail(err)
			return
		}
		op.Succeed(value)
	}()

	select {
	case <-done:
	case <-time.After(fetchGracePeriod):
		fmt.Printf(fetchNotice, label)
		<-done
	}

	if op.State() == asyncop.Failure {
		var zero T
		return zero, op.Err()
	}
	return op.Value(), nil
}
