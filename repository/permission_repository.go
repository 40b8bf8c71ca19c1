package repository

import (
	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPermissionRepository struct {
	db *gorm.DB
}

func NewGormPermissionRepository(db *gorm.DB) PermissionRepository {
	return &GormPermissionRepository{db: db}
}

// --- Levels ---

func (r *GormPermissionRepository) CreateLevel(level *models.PermissionLevel) error {
	return r.db.Create(level).Error
}

func (r *GormPermissionRepository) GetLevelByID(id uint) (*models.PermissionLevel, error) {
	var level models.PermissionLevel
	if err := r.db.First(&level, id).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *GormPermissionRepository) GetLevelByName(name string) (*models.PermissionLevel, error) {
	var level models.PermissionLevel
	if err := r.db.Where("name = ?", name).First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *GormPermissionRepository) ListLevels() ([]models.PermissionLevel, error) {
	var levels []models.PermissionLevel
	err := r.db.Order("rank desc").Find(&levels).Error
	return levels, err
}

func (r *GormPermissionRepository) UpdateLevel(level *models.PermissionLevel) error {
	return r.db.Save(level).Error
}

func (r *GormPermissionRepository) DeleteLevel(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("level_id = ?", id).Delete(&models.PermissionMatrixEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PermissionLevel{}, id).Error
	})
}

// --- Modules ---

func (r *GormPermissionRepository) CreateModule(module *models.PermissionModule) error {
	return r.db.Create(module).Error
}

func (r *GormPermissionRepository) GetModuleByCode(code string) (*models.PermissionModule, error) {
	var module models.PermissionModule
	if err := r.db.Where("code = ?", code).First(&module).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *GormPermissionRepository) UpdateModule(module *models.PermissionModule) error {
	return r.db.Save(module).Error
}

func (r *GormPermissionRepository) ListModules() ([]models.PermissionModule, error) {
	var modules []models.PermissionModule
	err := r.db.Order("category asc, code asc").Find(&modules).Error
	return modules, err
}

// --- Matrix ---

func (r *GormPermissionRepository) ListMatrixByLevel(levelID uint) ([]models.PermissionMatrixEntry, error) {
	var entries []models.PermissionMatrixEntry
	err := r.db.Preload("Module").Where("level_id = ?", levelID).Find(&entries).Error
	return entries, err
}

func (r *GormPermissionRepository) SetMatrixEntry(levelID, moduleID uint, granted bool) error {
	entry := models.PermissionMatrixEntry{
		LevelID:   levelID,
		ModuleID:  moduleID,
		IsGranted: granted,
	}
	// upsert on the (level, module) unique index
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level_id"}, {Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_granted", "updated_at"}),
	}).Create(&entry).Error
}

func (r *GormPermissionRepository) DeleteMatrixEntry(levelID, moduleID uint) error {
	return r.db.Where("level_id = ? AND module_id = ?", levelID, moduleID).
		Delete(&models.PermissionMatrixEntry{}).Error
}

// --- Project delegations ---

func (r *GormPermissionRepository) ListDelegations(projectID, jobFunctionID uint) ([]models.ProjectDelegation, error) {
	var delegations []models.ProjectDelegation
	err := r.db.Preload("Module").
		Where("project_id = ? AND job_function_id = ?", projectID, jobFunctionID).
		Find(&delegations).Error
	return delegations, err
}

func (r *GormPermissionRepository) ListDelegationsByProject(projectID uint) ([]models.ProjectDelegation, error) {
	var delegations []models.ProjectDelegation
	err := r.db.Preload("Module").Where("project_id = ?", projectID).Find(&delegations).Error
	return delegations, err
}

func (r *GormPermissionRepository) CreateDelegation(delegation *models.ProjectDelegation) error {
	// avoid error if the delegation already exists
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(delegation).Error
}

func (r *GormPermissionRepository) DeleteDelegation(id uint) error {
	return r.db.Delete(&models.ProjectDelegation{}, id).Error
}
