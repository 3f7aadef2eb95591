package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	applog "freshpos/internal/log"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// every pooled connection to :memory: would get its own empty database
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed demo catalog if the table is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Catalog, keyed by the PLU printed in barcodes
CREATE TABLE IF NOT EXISTS products(
  plu INTEGER PRIMARY KEY CHECK (plu >= 0),
  name TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  unit TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(LOWER(name));

-- Operators & sessions
CREATE TABLE IF NOT EXISTS operators(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  pin_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('OPERATOR','MANAGER')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  operator_id TEXT NULL REFERENCES operators(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_operator ON sessions(operator_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.L().Info("seed.catalog", zap.String("action", "seed.catalog"))

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(plu,name,price,unit) VALUES
	  (42,'Mineral Water 550ml',2.00,'pc'),
	  (1001,'Fuji Apple',12.80,'kg'),
	  (1002,'Banana',6.50,'kg'),
	  (1003,'Pork Belly',32.00,'kg'),
	  (2001,'Sliced Bread',9.90,'pc'),
	  (12345,'Salmon Fillet',98.00,'kg')`)
	return tx.Commit()
}
