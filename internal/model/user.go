package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Phone        string     `db:"phone" json:"phone,omitempty"`
	DOB          *time.Time `db:"dob" json:"dob,omitempty"`
	Role         Role       `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

type CreateUserRequest struct {
	Email     string     `json:"email" binding:"required,email"`
	FirstName string     `json:"first_name" binding:"required"`
	LastName  string     `json:"last_name" binding:"required"`
	Phone     string     `json:"phone"`
	DOB       *time.Time `json:"dob"`
	Role      Role       `json:"role" binding:"omitempty,oneof=user admin doctor"`
	Password  string     `json:"password" binding:"omitempty,min=8"`
}

type UpdateUserRequest struct {
	Email     *string    `json:"email" binding:"omitempty,email"`
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Phone     *string    `json:"phone"`
	DOB       *time.Time `json:"dob"`
}
