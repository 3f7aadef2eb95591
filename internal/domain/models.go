package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry keyed by its PLU.
type Product struct {
	PLU       int64   `db:"plu" json:"plu"`
	Name      string  `db:"name" json:"name"`
	Price     float64 `db:"price" json:"price"` // per unit (kg, piece, ...)
	Unit      string  `db:"unit" json:"unit"`
	Active    bool    `db:"active" json:"active"`
	CreatedAt string  `db:"created_at" json:"-"`
	UpdatedAt string  `db:"updated_at" json:"-"`
}

// UnitPrice returns Price as a decimal rounded to cents.
func (p Product) UnitPrice() decimal.Decimal {
	return decimal.NewFromFloat(p.Price).Round(2)
}

// Line is one row of a terminal's purchase list.
type Line struct {
	PLU       int64           `json:"plu"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Barcode   string          `json:"barcode"`
}

const (
	RoleOperator = "OPERATOR"
	RoleManager  = "MANAGER"
)

type Operator struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Hash string `db:"pin_hash"`
	Role string `db:"role"`
}
