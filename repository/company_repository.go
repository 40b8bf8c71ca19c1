package repository

import (
	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
)

type GormCompanyRepository struct {
	db *gorm.DB
}

func NewGormCompanyRepository(db *gorm.DB) CompanyRepository {
	return &GormCompanyRepository{db: db}
}

func (r *GormCompanyRepository) Create(company *models.Company) error {
	return r.db.Create(company).Error
}

func (r *GormCompanyRepository) GetByID(id uint) (*models.Company, error) {
	var company models.Company
	if err := r.db.Preload("Projects").First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *GormCompanyRepository) ListAll() ([]models.Company, error) {
	var companies []models.Company
	err := r.db.Order("name asc").Find(&companies).Error
	return companies, err
}

func (r *GormCompanyRepository) Update(company *models.Company) error {
	return r.db.Save(company).Error
}

func (r *GormCompanyRepository) Delete(id uint) error {
	return r.db.Delete(&models.Company{}, id).Error
}
