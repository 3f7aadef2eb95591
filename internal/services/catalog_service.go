package services

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"freshpos/internal/domain"
	"freshpos/internal/repos"
	"freshpos/internal/validate"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

// Lookup returns the active product for plu. Unknown and inactive PLUs both
// report ErrProductNotFound.
func (s *CatalogService) Lookup(plu int64) (domain.Product, error) {
	p, err := s.Prods.Get(plu)
	if errors.Is(err, sql.ErrNoRows) || err == nil && !p.Active {
		return domain.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, plu)
	}
	return p, err
}

func (s *CatalogService) List(page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize
	return s.Prods.List(pageSize, offset)
}

func (s *CatalogService) Count() (int, error) { return s.Prods.Count() }

func (s *CatalogService) Save(p domain.Product) error {
	if err := checkProduct(p); err != nil {
		return err
	}
	return s.Prods.Upsert(p)
}

func checkProduct(p domain.Product) error {
	switch {
	case p.PLU < 0:
		return fmt.Errorf("%w: negative plu %d", ErrInvalidProduct, p.PLU)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: negative price", ErrInvalidProduct)
	}
	return nil
}

var importColumns = []string{"plu", "name", "price", "unit"}

// ImportCSV upserts every row of a plu,name,price,unit file in one
// transaction. Column order follows the header; extra columns are ignored.
// A bad row aborts the whole import with its line number.
func (s *CatalogService) ImportCSV(r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("%w: empty file", ErrInvalidProduct)
	}
	if err != nil {
		return 0, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[h] = i
	}
	for _, col := range importColumns {
		if _, ok := idx[col]; !ok {
			return 0, fmt.Errorf("%w: header is missing %q", ErrInvalidProduct, col)
		}
	}

	var batch []domain.Product
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		p, err := productFromRecord(rec, idx)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, p)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.Prods.UpsertMany(batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func productFromRecord(rec []string, idx map[string]int) (domain.Product, error) {
	field := func(col string) string {
		if i := idx[col]; i < len(rec) {
			return rec[i]
		}
		return ""
	}
	plu, ok := validate.PLU(field("plu"))
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: plu %q", ErrInvalidProduct, field("plu"))
	}
	name, ok := validate.Name(field("name"))
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: name %q", ErrInvalidProduct, field("name"))
	}
	price, ok := validate.Price(field("price"))
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: price %q", ErrInvalidProduct, field("price"))
	}
	unit, ok := validate.Unit(field("unit"))
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: unit %q", ErrInvalidProduct, field("unit"))
	}
	return domain.Product{PLU: plu, Name: name, Price: price, Unit: unit, Active: true}, nil
}
