package handlers

import (
	"freshpos/internal/barcode"
	"freshpos/internal/config"
	"freshpos/internal/i18n"
	"freshpos/internal/repos"
	"freshpos/internal/scanner"
	"freshpos/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Terminal *services.TerminalService
	Catalog  *services.CatalogService
	Auth     *services.AuthService

	TerminalHandler *TerminalHandler
	APIHandler      *APIHandler
	AuthHandler     *AuthHandler
	AdminHandler    *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	prodRepo := repos.NewProductRepo(db)
	opRepo := repos.NewOperatorRepo(db)

	dec := barcode.New(
		barcode.WithWindow(cfg.FreshnessWindow),
		barcode.WithLocation(cfg.Location()),
	)
	catalogSvc := services.NewCatalogService(prodRepo)
	termSvc := services.NewTerminalService(catalogSvc, dec, i18n.Default(), cfg.DefaultLanguage)
	authSvc := services.NewAuthService(opRepo)

	return &Deps{
		Terminal: termSvc,
		Catalog:  catalogSvc,
		Auth:     authSvc,

		TerminalHandler: &TerminalHandler{Terminal: termSvc},
		APIHandler:      &APIHandler{Terminal: termSvc, Catalog: catalogSvc, Scanner: scanner.New()},
		AuthHandler:     &AuthHandler{Auth: authSvc},
		AdminHandler:    &AdminHandler{Catalog: catalogSvc},
	}
}
