package models

import "time"

// Company is a contractor using the system. Projects, users and
// production activities are scoped to a company.
type Company struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	TaxID     *string   `json:"tax_id,omitempty"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	Projects  []Project `json:"projects,omitempty" gorm:"foreignKey:CompanyID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a construction work ("obra") belonging to a company.
type Project struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"not null"`
	Code        *string    `json:"code,omitempty"`
	CompanyID   uint       `json:"company_id" gorm:"index;not null"`
	Company     Company    `json:"-" gorm:"foreignKey:CompanyID"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Sites       []Site     `json:"sites,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Site is a construction yard ("canteiro") inside a project.
type Site struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	ProjectID uint      `json:"project_id" gorm:"index;not null"`
	Project   Project   `json:"-" gorm:"foreignKey:ProjectID"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
