package models

import "time"

// ProductionCategory groups catalog activities ("Civil", "Elétrica", ...).
type ProductionCategory struct {
	ID         uint                 `json:"id" gorm:"primaryKey"`
	Name       string               `json:"name" gorm:"uniqueIndex;not null"`
	Activities []ProductionActivity `json:"activities,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// ProductionActivity is a canonical catalog entry a WorkStage may mirror.
// CompanyID nil marks a global template visible to every company;
// otherwise the activity belongs to a single company's catalog.
type ProductionActivity struct {
	ID         uint               `json:"id" gorm:"primaryKey"`
	Name       string             `json:"name" gorm:"not null"`
	CategoryID uint               `json:"category_id" gorm:"index;not null"`
	Category   ProductionCategory `json:"-" gorm:"foreignKey:CategoryID"`
	CompanyID  *uint              `json:"company_id,omitempty" gorm:"index"`
	Unit       *string            `json:"unit,omitempty"` // e.g. "m³", "un"
	Weight     float64            `json:"weight" gorm:"default:1"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
