package models

import "time"

// Work stage statuses. Stages with production history are never hard
// deleted; they are flipped to disabled instead.
const (
	StageStatusActive   = "active"
	StageStatusDisabled = "disabled"
)

// WorkStage is a node in the two-level (parent/child) ordered tree of work
// phases for a site/project. Parents mirror production categories and carry
// no activity link; children mirror ProductionActivity entries. DisplayOrder
// orders siblings ascending, ties broken by creation order. A non-nil
// ProductionActivityID must be unique across stages in one scope; duplicates
// are a data-integrity defect surfaced by the synchronizer.
type WorkStage struct {
	ID                   uint                   `json:"id" gorm:"primaryKey"`
	Name                 string                 `json:"name" gorm:"not null"`
	Description          *string                `json:"description,omitempty"`
	ProjectID            *uint                  `json:"project_id,omitempty" gorm:"index"`
	SiteID               *uint                  `json:"site_id,omitempty" gorm:"index"`
	ParentID             *uint                  `json:"parent_id,omitempty" gorm:"index"` // nil means top-level
	ProductionActivityID *uint                  `json:"production_activity_id,omitempty" gorm:"index"`
	DisplayOrder         int                    `json:"display_order" gorm:"not null;default:0"`
	Weight               float64                `json:"weight" gorm:"default:1"`
	Status               string                 `json:"status" gorm:"default:active"`
	Metadata             map[string]interface{} `json:"metadata" gorm:"serializer:json"` // open rendering hints bag
	Children             []WorkStage            `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Progress             []StageProgress        `json:"progress,omitempty" gorm:"foreignKey:StageID"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// IsParent reports whether the stage is a top-level (category) node.
func (ws *WorkStage) IsParent() bool {
	return ws.ParentID == nil
}

// StageProgress is one recorded progress point for a stage. One row per
// (stage, recorded date); re-recording the same date updates in place.
type StageProgress struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	StageID          uint      `json:"stage_id" gorm:"index:idx_stage_date,unique;not null"`
	RecordedDate     time.Time `json:"recorded_date" gorm:"index:idx_stage_date,unique;not null"`
	ActualPercentage float64   `json:"actual_percentage"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName keeps the table name regular; GORM would otherwise pluralize
// to "stage_progresses".
func (StageProgress) TableName() string {
	return "stage_progress"
}
