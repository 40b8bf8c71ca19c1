package repository

import (
	"time"

	"github.com/gestao-virtual/gvbackend/models"
)

// StageScope selects the work-stage tree of one site or one project.
// Exactly one of the two fields is expected to be set by callers.
type StageScope struct {
	SiteID    *uint
	ProjectID *uint
}

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	ListAll() ([]models.User, error)
	ListByCompany(companyID uint) ([]models.User, error)

	SetPermissionLevel(userID, levelID uint) error
	SetJobFunction(userID uint, jobFunctionID *uint) error
	SetStatus(userID uint, status string) error
}

// PermissionRepository defines the methods for permission reference data:
// levels, modules, the grant matrix and project delegations
type PermissionRepository interface {
	CreateLevel(level *models.PermissionLevel) error
	GetLevelByID(id uint) (*models.PermissionLevel, error)
	GetLevelByName(name string) (*models.PermissionLevel, error)
	ListLevels() ([]models.PermissionLevel, error)
	UpdateLevel(level *models.PermissionLevel) error
	DeleteLevel(id uint) error

	CreateModule(module *models.PermissionModule) error
	GetModuleByCode(code string) (*models.PermissionModule, error)
	UpdateModule(module *models.PermissionModule) error
	ListModules() ([]models.PermissionModule, error)

	// matrix rows are unique per (level, module); SetMatrixEntry upserts
	ListMatrixByLevel(levelID uint) ([]models.PermissionMatrixEntry, error)
	SetMatrixEntry(levelID, moduleID uint, granted bool) error
	DeleteMatrixEntry(levelID, moduleID uint) error

	ListDelegations(projectID, jobFunctionID uint) ([]models.ProjectDelegation, error)
	ListDelegationsByProject(projectID uint) ([]models.ProjectDelegation, error)
	CreateDelegation(delegation *models.ProjectDelegation) error
	DeleteDelegation(id uint) error
}

// CompanyRepository defines the methods for company data operations
type CompanyRepository interface {
	Create(company *models.Company) error
	GetByID(id uint) (*models.Company, error)
	ListAll() ([]models.Company, error)
	Update(company *models.Company) error
	Delete(id uint) error
}

// ProjectRepository defines the methods for project data operations
type ProjectRepository interface {
	Create(project *models.Project) error
	GetByID(id uint) (*models.Project, error)
	ListAll() ([]models.Project, error)
	ListByCompany(companyID uint) ([]models.Project, error)
	Update(project *models.Project) error
	Delete(id uint) error
}

// SiteRepository defines the methods for site data operations
type SiteRepository interface {
	Create(site *models.Site) error
	GetByID(id uint) (*models.Site, error)
	ListByProject(projectID uint) ([]models.Site, error)
	Update(site *models.Site) error
	Delete(id uint) error
}

// JobFunctionRepository defines the methods for job function data operations
type JobFunctionRepository interface {
	Create(function *models.JobFunction) error
	GetByID(id uint) (*models.JobFunction, error)
	ListAll() ([]models.JobFunction, error)
	ListByCompany(companyID uint) ([]models.JobFunction, error)
	Update(function *models.JobFunction) error
	Delete(id uint) error
}

// ProductionRepository defines the methods for the production catalog
// (categories and canonical activities)
type ProductionRepository interface {
	CreateCategory(category *models.ProductionCategory) error
	GetCategoryByID(id uint) (*models.ProductionCategory, error)
	ListCategories() ([]models.ProductionCategory, error)

	CreateActivity(activity *models.ProductionActivity) error
	GetActivityByID(id uint) (*models.ProductionActivity, error)
	// ListActivitiesVisibleTo returns global templates (nil company) plus
	// the given company's own activities, with Category preloaded
	ListActivitiesVisibleTo(companyID uint) ([]models.ProductionActivity, error)
	UpdateActivity(activity *models.ProductionActivity) error
	DeleteActivity(id uint) error
}

// WorkStageRepository defines the methods for work stage and stage progress
// data operations
type WorkStageRepository interface {
	Create(stage *models.WorkStage) error
	GetByID(id uint) (*models.WorkStage, error)
	ListByScope(scope StageScope) ([]models.WorkStage, error)
	Update(stage *models.WorkStage) error
	SetStatus(id uint, status string) error
	Delete(id uint) error

	// group-by-count over stage_progress, used for delete guards and
	// duplicate-link cleanup ordering
	CountProgressByStageIDs(ids []uint) (map[uint]int64, error)
	ReassignProgress(fromStageID, toStageID uint) error
	ReassignChildren(fromParentID, toParentID uint) error

	GetProgressByDate(stageID uint, date time.Time) (*models.StageProgress, error)
	UpsertProgress(progress *models.StageProgress) error
	ListProgress(stageID uint) ([]models.StageProgress, error)
	LatestProgressByStageIDs(ids []uint) (map[uint]float64, error)

	// WithTx runs fn against a repository bound to one transaction;
	// the synchronizer uses it to make a sync pass all-or-nothing
	WithTx(fn func(WorkStageRepository) error) error
}

// DailyReportRepository defines the methods for daily report (RDO) data
// operations, including the async photo pipeline bookkeeping
type DailyReportRepository interface {
	Create(report *models.DailyReport) error
	GetByID(id uint) (*models.DailyReport, error)
	ListBySite(siteID uint) ([]models.DailyReport, error)
	ListByUser(userID uint) ([]models.DailyReport, error)
	Delete(id uint) error

	AddPhoto(photo *models.ReportPhoto) error
	GetPhotoByID(id uint) (*models.ReportPhoto, error)
	MarkPhotoProcessing(id uint) error
	SetPhotoResult(id uint, thumbPath *string, takenAt *int64, taskErr error) error
	ListPhotosRequiringProcessing() ([]models.ReportPhoto, error)
}

// InviteCodeRepository defines the methods for invite code data operations
type InviteCodeRepository interface {
	Create(inviteCode *models.InviteCode) error
	GetByCode(code string) (*models.InviteCode, error)
	GetByID(id uint) (*models.InviteCode, error)
	Update(inviteCode *models.InviteCode) error
	IncrementUses(id uint) error
	ListAll() ([]models.InviteCode, error)
	Delete(id uint) error
}
