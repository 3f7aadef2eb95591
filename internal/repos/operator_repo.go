package repos

import (
	"freshpos/internal/domain"

	"github.com/jmoiron/sqlx"
)

type OperatorRepo struct{ DB *sqlx.DB }

func NewOperatorRepo(db *sqlx.DB) *OperatorRepo { return &OperatorRepo{DB: db} }

func (r *OperatorRepo) ByID(id string) (*domain.Operator, error) {
	var o domain.Operator
	err := r.DB.Get(&o, `SELECT id,name,pin_hash,role FROM operators WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Ensure inserts the operator unless the id already exists.
func (r *OperatorRepo) Ensure(o domain.Operator) error {
	_, err := r.DB.Exec(`
		INSERT INTO operators(id,name,pin_hash,role)
		VALUES(?,?,?,?)
		ON CONFLICT(id) DO NOTHING
	`, o.ID, o.Name, o.Hash, o.Role)
	return err
}

func (r *OperatorRepo) BindSession(sid, operatorID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,operator_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET operator_id=excluded.operator_id,last_seen=CURRENT_TIMESTAMP`, sid, operatorID)
	return err
}

func (r *OperatorRepo) SessionOperator(sid string) (*domain.Operator, error) {
	var o domain.Operator
	err := r.DB.Get(&o, `
      SELECT o.id,o.name,o.pin_hash,o.role
      FROM sessions s
      JOIN operators o ON o.id=s.operator_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OperatorRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET operator_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}
