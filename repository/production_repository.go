package repository

import (
	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
)

type GormProductionRepository struct {
	db *gorm.DB
}

func NewGormProductionRepository(db *gorm.DB) ProductionRepository {
	return &GormProductionRepository{db: db}
}

func (r *GormProductionRepository) CreateCategory(category *models.ProductionCategory) error {
	return r.db.Create(category).Error
}

func (r *GormProductionRepository) GetCategoryByID(id uint) (*models.ProductionCategory, error) {
	var category models.ProductionCategory
	if err := r.db.Preload("Activities").First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormProductionRepository) ListCategories() ([]models.ProductionCategory, error) {
	var categories []models.ProductionCategory
	err := r.db.Order("name asc").Find(&categories).Error
	return categories, err
}

func (r *GormProductionRepository) CreateActivity(activity *models.ProductionActivity) error {
	return r.db.Create(activity).Error
}

func (r *GormProductionRepository) GetActivityByID(id uint) (*models.ProductionActivity, error) {
	var activity models.ProductionActivity
	if err := r.db.Preload("Category").First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *GormProductionRepository) ListActivitiesVisibleTo(companyID uint) ([]models.ProductionActivity, error) {
	var activities []models.ProductionActivity
	err := r.db.Preload("Category").
		Where("company_id IS NULL OR company_id = ?", companyID).
		Order("category_id asc, name asc").
		Find(&activities).Error
	return activities, err
}

func (r *GormProductionRepository) UpdateActivity(activity *models.ProductionActivity) error {
	return r.db.Save(activity).Error
}

func (r *GormProductionRepository) DeleteActivity(id uint) error {
	return r.db.Delete(&models.ProductionActivity{}, id).Error
}
