package model

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Specialty    string     `db:"specialty" json:"specialty"`
	Phone        string     `db:"phone" json:"phone,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

type CreateDoctorRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Specialty string `json:"specialty" binding:"required"`
	Phone     string `json:"phone"`
	Password  string `json:"password" binding:"omitempty,min=8"`
}

type UpdateDoctorRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Specialty *string `json:"specialty"`
	Phone     *string `json:"phone"`
}
