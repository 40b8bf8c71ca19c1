package models

import "time"

// PermissionLevel is a named rank a user account holds (VIEWER, ADMIN, ...).
// Rank orders levels; Bypass marks levels that short-circuit the permission
// matrix entirely (see services.BypassPolicy). Reference data, edited only
// by administrators.
type PermissionLevel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Rank      int       `json:"rank" gorm:"not null;default:0"`
	Bypass    bool      `json:"bypass" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PermissionModule is a named capability the system gates, e.g.
// "daily_report.create". Reference data mirroring permissions.DefinedModules.
type PermissionModule struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PermissionMatrixEntry is the (level, module) -> granted association.
// At most one row per pair; absence means "not granted" (default-deny).
type PermissionMatrixEntry struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	LevelID   uint             `json:"level_id" gorm:"index:idx_level_module,unique;not null"`
	Level     PermissionLevel  `json:"-" gorm:"foreignKey:LevelID"`
	ModuleID  uint             `json:"module_id" gorm:"index:idx_level_module,unique;not null"`
	Module    PermissionModule `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
	IsGranted bool             `json:"is_granted" gorm:"default:false"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TableName overrides the GORM pluralization ("permission_matrix_entries"
// reads better than "permission_matrix_entrys" on some inflectors).
func (PermissionMatrixEntry) TableName() string {
	return "permission_matrix_entries"
}

// ProjectDelegation grants a job function extra modules inside one project.
// Delegations are additive only: they can never revoke a matrix grant.
type ProjectDelegation struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	ProjectID     uint             `json:"project_id" gorm:"index:idx_project_function_module,unique;not null"`
	Project       Project          `json:"-" gorm:"foreignKey:ProjectID"`
	JobFunctionID uint             `json:"job_function_id" gorm:"index:idx_project_function_module,unique;not null"`
	JobFunction   JobFunction      `json:"-" gorm:"foreignKey:JobFunctionID"`
	ModuleID      uint             `json:"module_id" gorm:"index:idx_project_function_module,unique;not null"`
	Module        PermissionModule `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
