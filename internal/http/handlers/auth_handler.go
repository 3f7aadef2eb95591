package handlers

import (
	"freshpos/internal/log"
	"freshpos/internal/services"
	"freshpos/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	sidCookie  = "sid"
	csrfCookie = "csrf_"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sidCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable behind TLS
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id, ok := validate.OperatorID(c.FormValue("operator"))
	pin := c.FormValue("pin")
	if !ok || !validate.PIN(pin) {
		log.Security(c, "auth.login.fail", map[string]any{"operator": id, "reason": "bad_format"})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Invalid operator or PIN"})
	}

	o, err := h.Auth.Login(sid, id, pin)
	if err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"operator": id})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Invalid operator or PIN"})
	}

	log.Audit(c, "auth.login.success", map[string]any{"operator": o.ID, "role": o.Role})
	if services.IsManager(o) {
		return c.Redirect("/admin/products")
	}
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies(sidCookie)
	if sid != "" {
		_ = h.Auth.Logout(sid)
	}
	// the sid cookie stays: it also keys the terminal's open list
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}
