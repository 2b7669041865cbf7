package models

import (
	"time"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// Role defines what a user is allowed to do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered account.
type User struct {
	ID           utils.SixID `bson:"_id" json:"id"`
	Name         string      `bson:"name" json:"name"`
	Email        string      `bson:"email" json:"email"` // Always stored lower-cased
	PasswordHash string      `bson:"password" json:"-"`
	Role         Role        `bson:"role" json:"role"`
	CreatedAt    time.Time   `bson:"created_at" json:"createdAt"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Caller is the authenticated actor behind a request. It is passed explicitly to every
// mutating operation.
type Caller struct {
	ID   utils.SixID
	Name string
	Role Role
}

// IsAdmin reports whether the caller acts with admin rights.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanManage reports whether the caller may edit, sell or delete a listing owned by sellerID.
func (c Caller) CanManage(sellerID utils.SixID) bool {
	return c.IsAdmin() || c.ID == sellerID
}

// CallerFromUser builds the caller identity for a loaded user.
func CallerFromUser(u *User) Caller {
	return Caller{ID: u.ID, Name: u.Name, Role: u.Role}
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Name     string `json:"name" validate:"required,singleline"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
