package handlers

import (
	"errors"
	"strconv"

	"freshpos/internal/domain"
	applog "freshpos/internal/log"
	"freshpos/internal/services"
	"freshpos/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const adminPageSize = 50

// AdminHandler maintains the catalog; mounted behind RequireManager.
type AdminHandler struct {
	Catalog *services.CatalogService
}

func (h *AdminHandler) page(c *fiber.Ctx, status int, data fiber.Map) error {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	prods, err := h.Catalog.List(page, adminPageSize)
	if err != nil {
		applog.Error(c, "admin.products.list.fail", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not load products")
	}
	count, _ := h.Catalog.Count()
	if data == nil {
		data = fiber.Map{}
	}
	data["Products"] = prods
	data["Count"] = count
	data["Page"] = page
	if page*adminPageSize < count {
		data["Next"] = page + 1
	}
	if page > 1 {
		data["Prev"] = page - 1
	}
	c.Status(status)
	return render(c, "admin_products", data)
}

// GET /admin/products
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	data := fiber.Map{}
	if n, err := strconv.Atoi(c.Query("imported")); err == nil {
		data["Msg"] = "Imported " + strconv.Itoa(n) + " products"
	}
	if c.Query("saved") != "" {
		data["Msg"] = "Product saved"
	}
	return h.page(c, fiber.StatusOK, data)
}

// POST /admin/products
func (h *AdminHandler) SaveProduct(c *fiber.Ctx) error {
	plu, okPLU := validate.PLU(c.FormValue("plu"))
	name, okName := validate.Name(c.FormValue("name"))
	price, okPrice := validate.Price(c.FormValue("price"))
	unit, okUnit := validate.Unit(c.FormValue("unit"))
	if !okPLU || !okName || !okPrice || !okUnit {
		applog.Security(c, "validation.fail", map[string]any{"form": "product"})
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Invalid product: check PLU (up to 18 digits), name, price and unit"})
	}
	p := domain.Product{
		PLU:    plu,
		Name:   name,
		Price:  price,
		Unit:   unit,
		Active: c.FormValue("active") != "",
	}
	if err := h.Catalog.Save(p); err != nil {
		if errors.Is(err, services.ErrInvalidProduct) {
			return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": err.Error()})
		}
		applog.Error(c, "admin.products.save.fail", err, map[string]any{"plu": plu})
		return h.page(c, fiber.StatusInternalServerError, fiber.Map{"Err": "Could not save product"})
	}
	applog.Audit(c, "admin.products.save", map[string]any{"plu": plu, "price": price, "active": p.Active})
	return c.Redirect("/admin/products?saved=1")
}

// POST /admin/products/import
func (h *AdminHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Choose a CSV file to import"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := h.Catalog.ImportCSV(f)
	if err != nil {
		applog.Security(c, "admin.products.import.fail", map[string]any{"file": fh.Filename, "error": err.Error()})
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Err": "Import failed: " + err.Error()})
	}
	applog.Audit(c, "admin.products.import", map[string]any{"file": fh.Filename, "rows": n})
	return c.Redirect("/admin/products?imported=" + strconv.Itoa(n))
}
