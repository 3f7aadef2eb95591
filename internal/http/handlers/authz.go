package handlers

import (
	"errors"

	applog "freshpos/internal/log"
	"freshpos/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AttachOperator exposes the signed-in operator, if any, to handlers and
// templates.
func AttachOperator(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies(sidCookie); sid != "" {
			if o, err := auth.CurrentOperator(sid); err == nil && o != nil {
				c.Locals("operator", o)
			}
		}
		return c.Next()
	}
}

func RequireManager(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(sidCookie)
		if sid == "" {
			return c.Redirect("/login")
		}
		o, err := auth.Manager(sid)
		if errors.Is(err, services.ErrForbidden) {
			applog.Security(c, "access.denied.manager", map[string]any{"operator": o.ID})
			return fail(c, fiber.StatusForbidden, "Access denied")
		}
		if err != nil || o == nil {
			return c.Redirect("/login")
		}
		c.Locals("operator", o)
		return c.Next()
	}
}
