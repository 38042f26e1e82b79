package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

// Decision is the outcome of gating one request.
type Decision struct {
	Redirect bool
	Target   string
}

// PassThrough lets the request continue unchanged.
var PassThrough = Decision{}

// Decide maps a route class and login state to a gate decision.
//
//	api_auth  any    pass
//	auth      in     redirect to default landing path
//	auth      out    pass
//	public    any    pass
//	protected in     pass
//	protected out    redirect to login
func Decide(class domain.RouteClass, isLoggedIn bool, routes *RouteTable) Decision {
	switch class {
	case domain.RouteClassAPIAuth, domain.RouteClassPublic:
		return PassThrough
	case domain.RouteClassAuth:
		if isLoggedIn {
			return Decision{Redirect: true, Target: routes.DefaultLoginRedirect()}
		}
		return PassThrough
	default:
		if isLoggedIn {
			return PassThrough
		}
		return Decision{Redirect: true, Target: routes.LoginPath()}
	}
}

// RouteGate classifies each request and redirects according to Decide.
// It only reads the session resolved upstream by SessionMiddleware.
type RouteGate struct {
	routes  *RouteTable
	metrics *observability.Metrics
}

// NewRouteGate constructs the gate.
func NewRouteGate(routes *RouteTable, metrics *observability.Metrics) *RouteGate {
	return &RouteGate{routes: routes, metrics: metrics}
}

// Handle enforces the redirect rules.
func (g *RouteGate) Handle(c *fiber.Ctx) error {
	class := g.routes.Classify(c.Path())
	_, isLoggedIn := SessionFromContext(c)

	decision := Decide(class, isLoggedIn, g.routes)
	g.metrics.RecordRouteDecision(string(class), decision.Redirect)
	if !decision.Redirect {
		return c.Next()
	}
	return c.Redirect(c.BaseURL()+decision.Target, fiber.StatusFound)
}
