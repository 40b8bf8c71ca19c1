package repository

import (
	"github.com/gestao-virtual/gvbackend/models"
	"gorm.io/gorm"
)

type GormProjectRepository struct {
	db *gorm.DB
}

func NewGormProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

func (r *GormProjectRepository) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.Preload("Sites").First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) ListAll() ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Order("name asc").Find(&projects).Error
	return projects, err
}

func (r *GormProjectRepository) ListByCompany(companyID uint) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Where("company_id = ?", companyID).Order("name asc").Find(&projects).Error
	return projects, err
}

func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

func (r *GormProjectRepository) Delete(id uint) error {
	return r.db.Delete(&models.Project{}, id).Error
}

type GormSiteRepository struct {
	db *gorm.DB
}

func NewGormSiteRepository(db *gorm.DB) SiteRepository {
	return &GormSiteRepository{db: db}
}

func (r *GormSiteRepository) Create(site *models.Site) error {
	return r.db.Create(site).Error
}

func (r *GormSiteRepository) GetByID(id uint) (*models.Site, error) {
	var site models.Site
	if err := r.db.Preload("Project").First(&site, id).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *GormSiteRepository) ListByProject(projectID uint) ([]models.Site, error) {
	var sites []models.Site
	err := r.db.Where("project_id = ?", projectID).Order("name asc").Find(&sites).Error
	return sites, err
}

func (r *GormSiteRepository) Update(site *models.Site) error {
	return r.db.Save(site).Error
}

func (r *GormSiteRepository) Delete(id uint) error {
	return r.db.Delete(&models.Site{}, id).Error
}

type GormJobFunctionRepository struct {
	db *gorm.DB
}

func NewGormJobFunctionRepository(db *gorm.DB) JobFunctionRepository {
	return &GormJobFunctionRepository{db: db}
}

func (r *GormJobFunctionRepository) Create(function *models.JobFunction) error {
	return r.db.Create(function).Error
}

func (r *GormJobFunctionRepository) GetByID(id uint) (*models.JobFunction, error) {
	var function models.JobFunction
	if err := r.db.First(&function, id).Error; err != nil {
		return nil, err
	}
	return &function, nil
}

func (r *GormJobFunctionRepository) ListAll() ([]models.JobFunction, error) {
	var functions []models.JobFunction
	err := r.db.Order("name asc").Find(&functions).Error
	return functions, err
}

func (r *GormJobFunctionRepository) ListByCompany(companyID uint) ([]models.JobFunction, error) {
	var functions []models.JobFunction
	err := r.db.Where("company_id = ? OR company_id IS NULL", companyID).
		Order("name asc").Find(&functions).Error
	return functions, err
}

func (r *GormJobFunctionRepository) Update(function *models.JobFunction) error {
	return r.db.Save(function).Error
}

func (r *GormJobFunctionRepository) Delete(id uint) error {
	return r.db.Delete(&models.JobFunction{}, id).Error
}
