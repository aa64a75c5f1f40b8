package users

import (
	"errors"
	"time"
)

// Role partitions what an account may do. Cashiers sell; admins additionally
// manage the catalog, cancel sales and read reports.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

// User is an operator account. The password hash never leaves this package.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

// CreateInput describes a new account.
type CreateInput struct {
	Username string
	FullName string
	Password string
	Role     Role
}

var (
	// ErrUserNotFound indicates an unknown user id or username.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrUsernameTaken indicates a duplicate username.
	ErrUsernameTaken = errors.New("users: username already taken")
	// ErrInvalidRole indicates an unknown role.
	ErrInvalidRole = errors.New("users: invalid role")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("users: password must be at least 8 characters")
)
