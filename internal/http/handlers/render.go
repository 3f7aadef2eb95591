package handlers

import "github.com/gofiber/fiber/v2"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if o := c.Locals("operator"); o != nil {
		data["Operator"] = o
	}
	// token from the CSRF middleware, falling back to its cookie
	tok, _ := c.Locals("csrf").(string)
	if tok == "" {
		tok = c.Cookies(csrfCookie)
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

// fail renders the shared message page with status.
func fail(c *fiber.Ctx, status int, msg string) error {
	c.Status(status)
	return render(c, "notfound", fiber.Map{"Message": msg})
}
