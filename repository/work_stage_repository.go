package repository

import (
	"errors"
	"time"

	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormWorkStageRepository struct {
	db *gorm.DB
}

func NewGormWorkStageRepository(db *gorm.DB) WorkStageRepository {
	return &GormWorkStageRepository{db: db}
}

func (r *GormWorkStageRepository) Create(stage *models.WorkStage) error {
	return r.db.Create(stage).Error
}

func (r *GormWorkStageRepository) GetByID(id uint) (*models.WorkStage, error) {
	var stage models.WorkStage
	err := r.db.Preload("Children", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order asc, id asc")
	}).First(&stage, id).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (r *GormWorkStageRepository) ListByScope(scope StageScope) ([]models.WorkStage, error) {
	var stages []models.WorkStage
	query := r.db.Order("display_order asc, id asc")

	switch {
	case scope.SiteID != nil:
		query = query.Where("site_id = ?", *scope.SiteID)
	case scope.ProjectID != nil:
		query = query.Where("project_id = ?", *scope.ProjectID)
	default:
		return nil, errors.New("work stage scope requires a site or project id")
	}

	err := query.Find(&stages).Error
	return stages, err
}

func (r *GormWorkStageRepository) Update(stage *models.WorkStage) error {
	return r.db.Save(stage).Error
}

func (r *GormWorkStageRepository) SetStatus(id uint, status string) error {
	return r.db.Model(&models.WorkStage{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *GormWorkStageRepository) Delete(id uint) error {
	return r.db.Delete(&models.WorkStage{}, id).Error
}

func (r *GormWorkStageRepository) CountProgressByStageIDs(ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		StageID uint
		N       int64
	}
	err := r.db.Model(&models.StageProgress{}).
		Select("stage_id, COUNT(*) AS n").
		Where("stage_id IN ?", ids).
		Group("stage_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.StageID] = row.N
	}
	return counts, nil
}

func (r *GormWorkStageRepository) ReassignProgress(fromStageID, toStageID uint) error {
	return r.db.Model(&models.StageProgress{}).
		Where("stage_id = ?", fromStageID).
		Update("stage_id", toStageID).Error
}

func (r *GormWorkStageRepository) ReassignChildren(fromParentID, toParentID uint) error {
	return r.db.Model(&models.WorkStage{}).
		Where("parent_id = ?", fromParentID).
		Update("parent_id", toParentID).Error
}

// GetProgressByDate returns the progress row for one stage and date, or nil
// when none was recorded yet.
func (r *GormWorkStageRepository) GetProgressByDate(stageID uint, date time.Time) (*models.StageProgress, error) {
	var progress models.StageProgress
	err := r.db.Where("stage_id = ? AND recorded_date = ?", stageID, date).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *GormWorkStageRepository) UpsertProgress(progress *models.StageProgress) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stage_id"}, {Name: "recorded_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual_percentage", "notes", "updated_at"}),
	}).Create(progress).Error
}

func (r *GormWorkStageRepository) ListProgress(stageID uint) ([]models.StageProgress, error) {
	var progress []models.StageProgress
	err := r.db.Where("stage_id = ?", stageID).
		Order("recorded_date desc").Find(&progress).Error
	return progress, err
}

// LatestProgressByStageIDs returns the most recent recorded percentage per
// stage. Stages with no progress rows are absent from the result map.
func (r *GormWorkStageRepository) LatestProgressByStageIDs(ids []uint) (map[uint]float64, error) {
	latest := make(map[uint]float64, len(ids))
	if len(ids) == 0 {
		return latest, nil
	}

	var rows []models.StageProgress
	err := r.db.Raw(`
		SELECT sp.* FROM stage_progress sp
		JOIN (
			SELECT stage_id, MAX(recorded_date) AS max_date
			FROM stage_progress
			WHERE stage_id IN ?
			GROUP BY stage_id
		) last ON last.stage_id = sp.stage_id AND last.max_date = sp.recorded_date`,
		ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		latest[row.StageID] = row.ActualPercentage
	}
	return latest, nil
}

func (r *GormWorkStageRepository) WithTx(fn func(WorkStageRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormWorkStageRepository{db: tx})
	})
}
