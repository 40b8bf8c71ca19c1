package repository

import (
	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("PermissionLevel").Preload("JobFunction").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("PermissionLevel").Preload("JobFunction").
		Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *GormUserRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

func (r *GormUserRepository) ListAll() ([]models.User, error) {
	var users []models.User
	err := r.db.Preload("PermissionLevel").Preload("JobFunction").
		Order("name asc").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) ListByCompany(companyID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Preload("PermissionLevel").Preload("JobFunction").
		Where("company_id = ?", companyID).Order("name asc").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) SetPermissionLevel(userID, levelID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("permission_level_id", levelID).Error
}

func (r *GormUserRepository) SetJobFunction(userID uint, jobFunctionID *uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("job_function_id", jobFunctionID).Error
}

func (r *GormUserRepository) SetStatus(userID uint, status string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("status", status).Error
}
