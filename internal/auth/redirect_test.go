package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

func TestDecide_Table(t *testing.T) {
	routes := testRoutes()

	tests := []struct {
		name     string
		class    domain.RouteClass
		loggedIn bool
		want     Decision
	}{
		{"api auth anonymous", domain.RouteClassAPIAuth, false, PassThrough},
		{"api auth signed in", domain.RouteClassAPIAuth, true, PassThrough},
		{"auth signed in", domain.RouteClassAuth, true, Decision{Redirect: true, Target: "/settings"}},
		{"auth anonymous", domain.RouteClassAuth, false, PassThrough},
		{"public anonymous", domain.RouteClassPublic, false, PassThrough},
		{"public signed in", domain.RouteClassPublic, true, PassThrough},
		{"protected signed in", domain.RouteClassProtected, true, PassThrough},
		{"protected anonymous", domain.RouteClassProtected, false, Decision{Redirect: true, Target: "/auth/login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.class, tt.loggedIn, routes))
		})
	}
}

func newGateApp(session *domain.Session) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if session != nil {
			c.Locals(sessionKey, session)
		}
		return c.Next()
	})
	app.Use(NewRouteGate(testRoutes(), observability.NewMetrics()).Handle)
	app.Use(func(c *fiber.Ctx) error {
		return c.SendString("passed")
	})
	return app
}

func TestRouteGate_Scenarios(t *testing.T) {
	signedIn := &domain.Session{UserID: "u1", Role: domain.RoleUser}

	tests := []struct {
		name     string
		session  *domain.Session
		path     string
		location string
	}{
		{"anonymous protected page", nil, "/settings", "http://example.com/auth/login"},
		{"signed in auth page", signedIn, "/auth/login", "http://example.com/settings"},
		{"signed in api route", signedIn, "/api/trpc/anything", ""},
		{"anonymous api auth route", nil, "/api/auth/callback", ""},
		{"anonymous auth page", nil, "/auth/register", ""},
		{"anonymous public page", nil, "/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGateApp(tt.session)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)

			if tt.location == "" {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				return
			}
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}
