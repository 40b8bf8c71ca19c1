package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User account statuses.
const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"
)

// JobFunction is a named job role within a company ("função"), e.g.
// electrician or topographer. Project delegations are keyed by it.
type JobFunction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	CompanyID *uint     `json:"company_id,omitempty" gorm:"index"` // nil means shared across companies
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an operator, manager or administrator in the system.
// Every user holds exactly one PermissionLevel and zero-or-one JobFunction.
type User struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	Username          string           `json:"username" gorm:"uniqueIndex;not null"`
	Name              string           `json:"name"`
	PasswordHash      string           `json:"-" gorm:"not null"` // "-" means don't include in JSON responses
	Status            string           `json:"status" gorm:"default:ACTIVE"`
	PermissionLevelID uint             `json:"permission_level_id" gorm:"index;not null"`
	PermissionLevel   *PermissionLevel `json:"permission_level,omitempty" gorm:"foreignKey:PermissionLevelID"`
	JobFunctionID     *uint            `json:"job_function_id,omitempty" gorm:"index"`
	JobFunction       *JobFunction     `json:"job_function,omitempty" gorm:"foreignKey:JobFunctionID"`
	CompanyID         *uint            `json:"company_id,omitempty" gorm:"index"`
	Company           *Company         `json:"-" gorm:"foreignKey:CompanyID"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
