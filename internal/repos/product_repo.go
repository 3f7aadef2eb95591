package repos

import (
	"freshpos/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `plu, name, price, unit, active, created_at, COALESCE(updated_at,'') AS updated_at`

// Get returns sql.ErrNoRows when the PLU is unknown.
func (r *ProductRepo) Get(plu int64) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE plu = ?`, plu)
	return p, err
}

func (r *ProductRepo) List(limit, offset int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products
	  ORDER BY plu
	  LIMIT ? OFFSET ?
	`, limit, offset)
	return out, err
}

func (r *ProductRepo) Count() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM products`)
	return n, err
}

const upsertProduct = `
	INSERT INTO products(plu, name, price, unit, active, created_at)
	VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(plu) DO UPDATE SET
	  name = excluded.name,
	  price = excluded.price,
	  unit = excluded.unit,
	  active = excluded.active,
	  updated_at = CURRENT_TIMESTAMP
`

func (r *ProductRepo) Upsert(p domain.Product) error {
	_, err := r.db.Exec(upsertProduct, p.PLU, p.Name, p.Price, p.Unit, p.Active)
	return err
}

// UpsertMany writes all products or none.
func (r *ProductRepo) UpsertMany(ps []domain.Product) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Preparex(upsertProduct)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range ps {
		if _, err := stmt.Exec(p.PLU, p.Name, p.Price, p.Unit, p.Active); err != nil {
			return err
		}
	}
	return tx.Commit()
}
