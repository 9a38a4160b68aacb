package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diatrack-dev/diatrack/internal/cli/client"
)

func TestResolve(t *testing.T) {
	patient := &client.User{ID: "u1", Username: "alice", Role: "user"}
	admin := &client.User{ID: "a1", Username: "root", Role: "admin"}

	protected := Route{Path: "/user/predict", RequiresAuth: true}
	adminOnly := Route{Path: "/admin/dashboard", RequiresAuth: true, AdminOnly: true}
	public := Route{Path: "/login"}

	tests := []struct {
		name    string
		user    *client.User
		loading bool
		route   Route
		want    Decision
	}{
		{"public route renders while loading", nil, true, public, Render},
		{"public route renders unauthenticated", nil, false, public, Render},
		{"protected route waits during session check", nil, true, protected, ShowLoading},
		{"protected route redirects unauthenticated", nil, false, protected, RedirectLogin},
		{"protected route renders for patient", patient, false, protected, Render},
		{"admin route redirects patient to dashboard", patient, false, adminOnly, RedirectDashboard},
		{"admin route renders for admin", admin, false, adminOnly, Render},
		{"admin route waits during session check", nil, true, adminOnly, ShowLoading},
		{"admin route redirects unauthenticated to login", nil, false, adminOnly, RedirectLogin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.user, tt.loading, tt.route))
		})
	}
}
