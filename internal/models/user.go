package models

import (
	"fmt"

	"github.com/udovin/gosql"
)

// Role represents role of user.
type Role int

const (
	// UserRole represents ordinary user.
	UserRole Role = 0
	// AdminRole represents administrator that can see everything.
	AdminRole Role = 1
)

// String returns string representation.
func (r Role) String() string {
	switch r {
	case UserRole:
		return "user"
	case AdminRole:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", r)
	}
}

// MarshalText marshals role to text.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// User represents user.
type User struct {
	baseObject
	Login string `db:"login"`
	Role  Role   `db:"role"`
}

// IsAdmin returns true if user is administrator.
func (o User) IsAdmin() bool {
	return o.Role == AdminRole
}

// UserStore represents store for users.
type UserStore struct {
	baseStore[User, *User]
}

// NewUserStore creates a new instance of UserStore.
func NewUserStore(conn *gosql.DB, table string) *UserStore {
	return &UserStore{
		baseStore: makeBaseStore[User, *User](conn, table),
	}
}
