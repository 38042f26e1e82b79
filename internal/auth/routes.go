package auth

import (
	"strings"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
)

// RouteTable classifies request paths using static, immutable route sets.
type RouteTable struct {
	apiAuthPrefix        string
	public               map[string]struct{}
	auth                 map[string]struct{}
	defaultLoginRedirect string
	loginPath            string
}

// NewRouteTable builds a table from configuration. The input slices are copied.
func NewRouteTable(cfg config.RoutesConfig) *RouteTable {
	return &RouteTable{
		apiAuthPrefix:        cfg.APIAuthPrefix,
		public:               toSet(cfg.PublicRoutes),
		auth:                 toSet(cfg.AuthRoutes),
		defaultLoginRedirect: cfg.DefaultLoginRedirect,
		loginPath:            cfg.LoginPath,
	}
}

// Classify returns the route class of path. Every path maps to exactly one class;
// the API-auth prefix wins over the exact-match sets and anything unmatched is protected.
func (t *RouteTable) Classify(path string) domain.RouteClass {
	switch {
	case t.apiAuthPrefix != "" && strings.HasPrefix(path, t.apiAuthPrefix):
		return domain.RouteClassAPIAuth
	case contains(t.public, path):
		return domain.RouteClassPublic
	case contains(t.auth, path):
		return domain.RouteClassAuth
	default:
		return domain.RouteClassProtected
	}
}

// DefaultLoginRedirect is the landing path for signed-in users hitting an auth page.
func (t *RouteTable) DefaultLoginRedirect() string {
	return t.defaultLoginRedirect
}

// LoginPath is where anonymous requests for protected routes are sent.
func (t *RouteTable) LoginPath() string {
	return t.loginPath
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, path string) bool {
	_, ok := set[path]
	return ok
}
