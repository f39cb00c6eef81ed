package actor

import "github.com/gofiber/fiber/v2"

// HeaderName names the caller on audit entries.
const HeaderName = "X-Actor"

const localsKey = "actor"

// New returns a middleware that resolves the acting user from the X-Actor header,
// falling back to the configured default.
func New(fallback string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Get(HeaderName)
		if name == "" {
			name = fallback
		}
		c.Locals(localsKey, name)
		return c.Next()
	}
}

// From returns the actor resolved for the request, or "" when the middleware did not run.
func From(c *fiber.Ctx) string {
	if name, ok := c.Locals(localsKey).(string); ok {
		return name
	}
	return c.Get(HeaderName)
}
