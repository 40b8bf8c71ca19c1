package models

import "time"

// Photo processing task statuses, shared by the report photo worker.
const (
	PhotoStatusPending    = "pending"
	PhotoStatusProcessing = "processing"
	PhotoStatusDone       = "done"
	PhotoStatusError      = "error"
)

// DailyReport is an RDO ("Relatório Diário de Obra") filed by a user for a
// site on a given date.
type DailyReport struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	SiteID     uint          `json:"site_id" gorm:"index;not null"`
	Site       Site          `json:"-" gorm:"foreignKey:SiteID"`
	UserID     uint          `json:"user_id" gorm:"index;not null"`
	User       User          `json:"-" gorm:"foreignKey:UserID"`
	ReportDate time.Time     `json:"report_date" gorm:"index;not null"`
	Weather    *string       `json:"weather,omitempty"`
	Notes      string        `json:"notes"`
	Photos     []ReportPhoto `json:"photos,omitempty" gorm:"foreignKey:ReportID"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ReportPhoto is an uploaded site photo attached to a daily report. The
// thumbnail and captured-at fields are filled asynchronously by the photo
// worker pool.
type ReportPhoto struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	ReportID        uint       `json:"report_id" gorm:"index;not null"`
	OriginalPath    string     `json:"original_path" gorm:"not null"` // relative to the media store
	ThumbnailPath   *string    `json:"thumbnail_path,omitempty"`
	TakenAt         *int64     `json:"taken_at,omitempty"` // unix seconds, from EXIF when present
	ThumbnailStatus string     `json:"thumbnail_status" gorm:"default:pending"`
	ThumbnailError  *string    `json:"thumbnail_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
