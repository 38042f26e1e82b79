package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Name   string
	Secure bool
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Name == "" {
		o.Name = "session_token"
	}
	return o
}

// SetSessionCookie issues the session cookie.
func SetSessionCookie(c *fiber.Ctx, opts CookieOptions, token string, expiresAt time.Time) {
	opts = opts.normalize()
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the client.
func ClearSessionCookie(c *fiber.Ctx, opts CookieOptions) {
	opts = opts.normalize()
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
