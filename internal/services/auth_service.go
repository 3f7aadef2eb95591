package services

import (
	"errors"

	"freshpos/internal/domain"
	"freshpos/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCreds  = errors.New("invalid operator or PIN")
	ErrForbidden = errors.New("manager role required")
)

// ManagerID is the operator account seeded at startup.
const ManagerID = "manager"

type AuthService struct {
	Operators *repos.OperatorRepo
}

func NewAuthService(ops *repos.OperatorRepo) *AuthService {
	return &AuthService{Operators: ops}
}

func (s *AuthService) Login(sid, operatorID, pin string) (*domain.Operator, error) {
	o, err := s.Operators.ByID(operatorID)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(o.Hash), []byte(pin)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Operators.BindSession(sid, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Operators.UnbindSession(sid)
}

func (s *AuthService) CurrentOperator(sid string) (*domain.Operator, error) {
	return s.Operators.SessionOperator(sid)
}

// Register stores a new operator with a hashed PIN. Existing ids are left
// untouched.
func (s *AuthService) Register(id, name, pin, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Operators.Ensure(domain.Operator{ID: id, Name: name, Hash: string(hash), Role: role})
}

// EnsureManager seeds the manager account on first start.
func (s *AuthService) EnsureManager(pin string) error {
	return s.Register(ManagerID, "Store Manager", pin, domain.RoleManager)
}

// Manager returns the operator signed in on sid when it is a manager.
// Other operators get ErrForbidden alongside the operator.
func (s *AuthService) Manager(sid string) (*domain.Operator, error) {
	o, err := s.CurrentOperator(sid)
	if err != nil {
		return nil, err
	}
	if !IsManager(o) {
		return o, ErrForbidden
	}
	return o, nil
}

func IsManager(o *domain.Operator) bool {
	return o != nil && o.Role == domain.RoleManager
}
