package repository

import (
	"time"

	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
)

type GormDailyReportRepository struct {
	db *gorm.DB
}

func NewGormDailyReportRepository(db *gorm.DB) DailyReportRepository {
	return &GormDailyReportRepository{db: db}
}

func (r *GormDailyReportRepository) Create(report *models.DailyReport) error {
	return r.db.Create(report).Error
}

func (r *GormDailyReportRepository) GetByID(id uint) (*models.DailyReport, error) {
	var report models.DailyReport
	if err := r.db.Preload("Photos").First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *GormDailyReportRepository) ListBySite(siteID uint) ([]models.DailyReport, error) {
	var reports []models.DailyReport
	err := r.db.Preload("Photos").Where("site_id = ?", siteID).
		Order("report_date desc").Find(&reports).Error
	return reports, err
}

func (r *GormDailyReportRepository) ListByUser(userID uint) ([]models.DailyReport, error) {
	var reports []models.DailyReport
	err := r.db.Preload("Photos").Where("user_id = ?", userID).
		Order("report_date desc").Find(&reports).Error
	return reports, err
}

func (r *GormDailyReportRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportPhoto{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DailyReport{}, id).Error
	})
}

func (r *GormDailyReportRepository) AddPhoto(photo *models.ReportPhoto) error {
	return r.db.Create(photo).Error
}

func (r *GormDailyReportRepository) GetPhotoByID(id uint) (*models.ReportPhoto, error) {
	var photo models.ReportPhoto
	if err := r.db.First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *GormDailyReportRepository) MarkPhotoProcessing(id uint) error {
	return r.db.Model(&models.ReportPhoto{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"thumbnail_status": models.PhotoStatusProcessing,
			"thumbnail_error":  nil,
			"updated_at":       time.Now(),
		}).Error
}

func (r *GormDailyReportRepository) SetPhotoResult(id uint, thumbPath *string, takenAt *int64, taskErr error) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if taskErr != nil {
		msg := taskErr.Error()
		updates["thumbnail_status"] = models.PhotoStatusError
		updates["thumbnail_error"] = msg
	} else {
		updates["thumbnail_status"] = models.PhotoStatusDone
		updates["thumbnail_error"] = nil
		updates["thumbnail_path"] = thumbPath
		updates["taken_at"] = takenAt
	}
	return r.db.Model(&models.ReportPhoto{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GormDailyReportRepository) ListPhotosRequiringProcessing() ([]models.ReportPhoto, error) {
	var photos []models.ReportPhoto
	err := r.db.Where("thumbnail_status IN ?", []string{
		models.PhotoStatusPending,
		models.PhotoStatusProcessing, // interrupted by a previous shutdown
	}).Find(&photos).Error
	return photos, err
}
