package handlers

import (
	"errors"

	applog "freshpos/internal/log"
	"freshpos/internal/metrics"
	"freshpos/internal/scanner"
	"freshpos/internal/services"
	"freshpos/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// TerminalHeader lets devices without cookies name their terminal.
const TerminalHeader = "X-Terminal-ID"

// APIHandler is the JSON surface for scanners and kiosks.
type APIHandler struct {
	Terminal *services.TerminalService
	Catalog  *services.CatalogService
	Scanner  *scanner.Scanner
}

type scanRequest struct {
	Barcode string `json:"barcode" form:"barcode"`
}

func terminalID(c *fiber.Ctx) string {
	if id := c.Get(TerminalHeader); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return ensureSID(c)
}

func jsonError(c *fiber.Ctx, status int, msg string, extra fiber.Map) error {
	body := fiber.Map{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// scanStatus maps a rejected scan to its HTTP status.
func scanStatus(outcome string) int {
	switch outcome {
	case services.OutcomeNotFound:
		return fiber.StatusNotFound
	case services.OutcomeExpired:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

// GET /api/v1/order
func (h *APIHandler) Order(c *fiber.Ctx) error {
	sid := terminalID(c)
	h.Terminal.Open(sid, c.Get(fiber.HeaderAcceptLanguage))
	return c.JSON(h.Terminal.View(sid))
}

// POST /api/v1/scan
func (h *APIHandler) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body", nil)
	}
	return h.scan(c, terminalID(c), req.Barcode)
}

// POST /api/v1/scan/image
func (h *APIHandler) ScanImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "missing image", nil)
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := h.Scanner.DecodeReader(c.UserContext(), f)
	switch {
	case errors.Is(err, scanner.ErrBadImage):
		metrics.RecordImageScan("bad_image")
		return jsonError(c, fiber.StatusUnsupportedMediaType, "unsupported image", nil)
	case errors.Is(err, scanner.ErrNoBarcode):
		metrics.RecordImageScan("no_barcode")
		return jsonError(c, fiber.StatusUnprocessableEntity, "no barcode found", nil)
	case err != nil:
		return err
	}
	metrics.RecordImageScan("decoded")
	applog.Info(c, "scan.image", map[string]any{"barcode": res.Text, "symbology": res.Format})
	return h.scan(c, terminalID(c), res.Text)
}

func (h *APIHandler) scan(c *fiber.Ctx, sid, raw string) error {
	code, ok := validate.Barcode(raw)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "barcode"})
		return jsonError(c, fiber.StatusBadRequest, "barcode too long", nil)
	}
	line, err := h.Terminal.Scan(sid, code)
	var se *services.ScanError
	if errors.As(err, &se) {
		applog.Info(c, "scan.reject", map[string]any{"barcode": code, "outcome": se.Outcome})
		return jsonError(c, scanStatus(se.Outcome), se.Message, fiber.Map{"outcome": se.Outcome, "result": se.Result})
	}
	if err != nil {
		return err
	}
	applog.Info(c, "scan.add", map[string]any{"barcode": code, "plu": line.PLU, "subtotal": line.Subtotal.String()})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"line": line, "order": h.Terminal.View(sid)})
}

// POST /api/v1/pay
func (h *APIHandler) Pay(c *fiber.Ctx) error {
	sid := terminalID(c)
	r, err := h.Terminal.ConfirmPayment(sid)
	if errors.Is(err, services.ErrNothingToPay) {
		return jsonError(c, fiber.StatusConflict, h.Terminal.TakeNotice(sid), nil)
	}
	if err != nil {
		return err
	}
	applog.Audit(c, "payment.confirm", map[string]any{"ref": r.Ref, "items": r.Items, "total": r.Total.String()})
	return c.JSON(r)
}

// GET /api/v1/decode?code=
func (h *APIHandler) Decode(c *fiber.Ctx) error {
	code, ok := validate.Barcode(c.Query("code"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "barcode too long", nil)
	}
	res := h.Terminal.Decode(code)
	tr := h.Terminal.Translator(c.Cookies(sidCookie))
	return c.JSON(fiber.Map{
		"result":  res,
		"ok":      res.OK(),
		"message": res.Message(tr),
	})
}

// GET /api/v1/products/:plu
func (h *APIHandler) Product(c *fiber.Ctx) error {
	plu, ok := validate.PLU(c.Params("plu"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid plu", nil)
	}
	p, err := h.Catalog.Lookup(plu)
	if errors.Is(err, services.ErrProductNotFound) {
		return jsonError(c, fiber.StatusNotFound, "product not found", nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(p)
}
