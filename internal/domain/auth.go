package domain

// AuthMethod identifies how a sign-in attempt authenticated.
type AuthMethod string

const (
	AuthMethodCredentials AuthMethod = "credentials"
	AuthMethodOAuth       AuthMethod = "oauth"
)

// RouteClass categorizes an inbound request path.
type RouteClass string

const (
	RouteClassAPIAuth   RouteClass = "api_auth"
	RouteClassPublic    RouteClass = "public"
	RouteClassAuth      RouteClass = "auth"
	RouteClassProtected RouteClass = "protected"
)

// Session is the request-facing view of a session token.
type Session struct {
	UserID             string `json:"id"`
	Role               Role   `json:"role,omitempty"`
	IsTwoFactorEnabled bool   `json:"isTwoFactorEnabled"`
}

// Identity is the normalized result of an upstream OAuth handshake.
type Identity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
}
