package handlers

import (
	"errors"

	applog "freshpos/internal/log"
	"freshpos/internal/services"
	"freshpos/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// TerminalHandler serves the checkout screen. Every action redirects back
// to it.
type TerminalHandler struct {
	Terminal *services.TerminalService
}

// GET /
func (h *TerminalHandler) Home(c *fiber.Ctx) error {
	sid := ensureSID(c)
	h.Terminal.Open(sid, c.Get(fiber.HeaderAcceptLanguage))

	tr := h.Terminal.Translator(sid)
	data := fiber.Map{
		"View":      h.Terminal.View(sid),
		"T":         tr,
		"Notice":    h.Terminal.TakeNotice(sid),
		"Languages": h.Terminal.Locales.Names(),
	}
	if ref := c.Query("paid"); ref != "" {
		data["Paid"] = ref
	}
	return render(c, "terminal", data)
}

// POST /scan
func (h *TerminalHandler) Scan(c *fiber.Ctx) error {
	sid := ensureSID(c)
	code, ok := validate.Barcode(c.FormValue("barcode"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "barcode"})
		return fail(c, fiber.StatusBadRequest, "Barcode too long")
	}

	line, err := h.Terminal.Scan(sid, code)
	var se *services.ScanError
	switch {
	case errors.As(err, &se):
		applog.Info(c, "scan.reject", map[string]any{"barcode": code, "outcome": se.Outcome})
	case err != nil:
		return err
	default:
		applog.Info(c, "scan.add", map[string]any{"barcode": code, "plu": line.PLU, "subtotal": line.Subtotal.String()})
	}
	return c.Redirect("/")
}

// POST /pay
func (h *TerminalHandler) Pay(c *fiber.Ctx) error {
	sid := ensureSID(c)
	r, err := h.Terminal.ConfirmPayment(sid)
	if errors.Is(err, services.ErrNothingToPay) {
		return c.Redirect("/")
	}
	if err != nil {
		return err
	}
	applog.Audit(c, "payment.confirm", map[string]any{"ref": r.Ref, "items": r.Items, "total": r.Total.String()})
	return c.Redirect("/?paid=" + r.Ref)
}

// POST /language
func (h *TerminalHandler) Language(c *fiber.Ctx) error {
	sid := ensureSID(c)
	name := c.FormValue("language")
	if err := h.Terminal.SetLanguage(sid, name); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "language"})
		return fail(c, fiber.StatusBadRequest, "Unknown language")
	}
	return c.Redirect("/")
}
