package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
)

// in-memory repository fakes shared by the resolver and synchronizer tests

type fakeUserRepo struct {
	users map[uint]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]*models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) Create(user *models.User) error { f.users[user.ID] = user; return nil }

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error { f.users[user.ID] = user; return nil }
func (f *fakeUserRepo) Delete(id uint) error           { delete(f.users, id); return nil }

func (f *fakeUserRepo) ListAll() ([]models.User, error) {
	var out []models.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserRepo) ListByCompany(companyID uint) ([]models.User, error) {
	var out []models.User
	for _, user := range f.users {
		if user.CompanyID != nil && *user.CompanyID == companyID {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) SetPermissionLevel(userID, levelID uint) error {
	f.users[userID].PermissionLevelID = levelID
	return nil
}

func (f *fakeUserRepo) SetJobFunction(userID uint, jobFunctionID *uint) error {
	f.users[userID].JobFunctionID = jobFunctionID
	return nil
}

func (f *fakeUserRepo) SetStatus(userID uint, status string) error {
	f.users[userID].Status = status
	return nil
}

type delegationKey struct {
	projectID     uint
	jobFunctionID uint
}

type fakePermRepo struct {
	levels      map[uint]*models.PermissionLevel
	modules     []models.PermissionModule
	matrix      map[uint][]models.PermissionMatrixEntry
	delegations map[delegationKey][]models.ProjectDelegation
}

func newFakePermRepo() *fakePermRepo {
	return &fakePermRepo{
		levels:      make(map[uint]*models.PermissionLevel),
		matrix:      make(map[uint][]models.PermissionMatrixEntry),
		delegations: make(map[delegationKey][]models.ProjectDelegation),
	}
}

func (f *fakePermRepo) addModule(id uint, code string) {
	f.modules = append(f.modules, models.PermissionModule{ID: id, Code: code, Name: code})
}

func (f *fakePermRepo) grantMatrix(levelID, moduleID uint) {
	f.matrix[levelID] = append(f.matrix[levelID], models.PermissionMatrixEntry{
		LevelID: levelID, ModuleID: moduleID, IsGranted: true,
	})
}

func (f *fakePermRepo) addDelegation(projectID, jobFunctionID, moduleID uint) {
	key := delegationKey{projectID, jobFunctionID}
	f.delegations[key] = append(f.delegations[key], models.ProjectDelegation{
		ProjectID: projectID, JobFunctionID: jobFunctionID, ModuleID: moduleID,
	})
}

func (f *fakePermRepo) CreateLevel(level *models.PermissionLevel) error {
	f.levels[level.ID] = level
	return nil
}

func (f *fakePermRepo) GetLevelByID(id uint) (*models.PermissionLevel, error) {
	level, ok := f.levels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return level, nil
}

func (f *fakePermRepo) GetLevelByName(name string) (*models.PermissionLevel, error) {
	for _, level := range f.levels {
		if level.Name == name {
			return level, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePermRepo) ListLevels() ([]models.PermissionLevel, error) {
	var out []models.PermissionLevel
	for _, level := range f.levels {
		out = append(out, *level)
	}
	return out, nil
}

func (f *fakePermRepo) UpdateLevel(level *models.PermissionLevel) error {
	f.levels[level.ID] = level
	return nil
}

func (f *fakePermRepo) DeleteLevel(id uint) error { delete(f.levels, id); return nil }

func (f *fakePermRepo) CreateModule(module *models.PermissionModule) error {
	f.modules = append(f.modules, *module)
	return nil
}

func (f *fakePermRepo) GetModuleByCode(code string) (*models.PermissionModule, error) {
	for i := range f.modules {
		if f.modules[i].Code == code {
			return &f.modules[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePermRepo) UpdateModule(module *models.PermissionModule) error {
	for i := range f.modules {
		if f.modules[i].ID == module.ID {
			f.modules[i] = *module
		}
	}
	return nil
}

func (f *fakePermRepo) ListModules() ([]models.PermissionModule, error) {
	return f.modules, nil
}

func (f *fakePermRepo) ListMatrixByLevel(levelID uint) ([]models.PermissionMatrixEntry, error) {
	return f.matrix[levelID], nil
}

func (f *fakePermRepo) SetMatrixEntry(levelID, moduleID uint, granted bool) error {
	f.matrix[levelID] = append(f.matrix[levelID], models.PermissionMatrixEntry{
		LevelID: levelID, ModuleID: moduleID, IsGranted: granted,
	})
	return nil
}

func (f *fakePermRepo) DeleteMatrixEntry(levelID, moduleID uint) error { return nil }

func (f *fakePermRepo) ListDelegations(projectID, jobFunctionID uint) ([]models.ProjectDelegation, error) {
	return f.delegations[delegationKey{projectID, jobFunctionID}], nil
}

func (f *fakePermRepo) ListDelegationsByProject(projectID uint) ([]models.ProjectDelegation, error) {
	var out []models.ProjectDelegation
	for key, delegations := range f.delegations {
		if key.projectID == projectID {
			out = append(out, delegations...)
		}
	}
	return out, nil
}

func (f *fakePermRepo) CreateDelegation(delegation *models.ProjectDelegation) error {
	key := delegationKey{delegation.ProjectID, delegation.JobFunctionID}
	f.delegations[key] = append(f.delegations[key], *delegation)
	return nil
}

func (f *fakePermRepo) DeleteDelegation(id uint) error { return nil }

type fakeCatalogRepo struct {
	activities []models.ProductionActivity
}

func (f *fakeCatalogRepo) CreateCategory(category *models.ProductionCategory) error { return nil }

func (f *fakeCatalogRepo) GetCategoryByID(id uint) (*models.ProductionCategory, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) ListCategories() ([]models.ProductionCategory, error) { return nil, nil }

func (f *fakeCatalogRepo) CreateActivity(activity *models.ProductionActivity) error {
	f.activities = append(f.activities, *activity)
	return nil
}

func (f *fakeCatalogRepo) GetActivityByID(id uint) (*models.ProductionActivity, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) ListActivitiesVisibleTo(companyID uint) ([]models.ProductionActivity, error) {
	var out []models.ProductionActivity
	for _, activity := range f.activities {
		if activity.CompanyID == nil || *activity.CompanyID == companyID {
			out = append(out, activity)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) UpdateActivity(activity *models.ProductionActivity) error { return nil }
func (f *fakeCatalogRepo) DeleteActivity(id uint) error                             { return nil }

type fakeStageRepo struct {
	stages   map[uint]*models.WorkStage
	progress map[uint][]models.StageProgress
	nextID   uint
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{
		stages:   make(map[uint]*models.WorkStage),
		progress: make(map[uint][]models.StageProgress),
		nextID:   1,
	}
}

func (f *fakeStageRepo) seed(stage *models.WorkStage) *models.WorkStage {
	if stage.ID == 0 {
		stage.ID = f.nextID
	}
	if stage.ID >= f.nextID {
		f.nextID = stage.ID + 1
	}
	f.stages[stage.ID] = stage
	return stage
}

func (f *fakeStageRepo) Create(stage *models.WorkStage) error {
	stage.ID = f.nextID
	f.nextID++
	stage.CreatedAt = time.Now()
	copied := *stage
	f.stages[stage.ID] = &copied
	return nil
}

func (f *fakeStageRepo) GetByID(id uint) (*models.WorkStage, error) {
	stage, ok := f.stages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return stage, nil
}

func (f *fakeStageRepo) ListByScope(scope repository.StageScope) ([]models.WorkStage, error) {
	var out []models.WorkStage
	for _, stage := range f.stages {
		if scope.SiteID != nil && (stage.SiteID == nil || *stage.SiteID != *scope.SiteID) {
			continue
		}
		if scope.ProjectID != nil && (stage.ProjectID == nil || *stage.ProjectID != *scope.ProjectID) {
			continue
		}
		out = append(out, *stage)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStageRepo) Update(stage *models.WorkStage) error {
	copied := *stage
	f.stages[stage.ID] = &copied
	return nil
}

func (f *fakeStageRepo) SetStatus(id uint, status string) error {
	stage, ok := f.stages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stage.Status = status
	return nil
}

func (f *fakeStageRepo) Delete(id uint) error {
	delete(f.stages, id)
	delete(f.progress, id)
	return nil
}

func (f *fakeStageRepo) CountProgressByStageIDs(ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64)
	for _, id := range ids {
		counts[id] = int64(len(f.progress[id]))
	}
	return counts, nil
}

func (f *fakeStageRepo) ReassignProgress(fromStageID, toStageID uint) error {
	moved := f.progress[fromStageID]
	for i := range moved {
		moved[i].StageID = toStageID
	}
	f.progress[toStageID] = append(f.progress[toStageID], moved...)
	delete(f.progress, fromStageID)
	return nil
}

func (f *fakeStageRepo) ReassignChildren(fromParentID, toParentID uint) error {
	for _, stage := range f.stages {
		if stage.ParentID != nil && *stage.ParentID == fromParentID {
			parentID := toParentID
			stage.ParentID = &parentID
		}
	}
	return nil
}

func (f *fakeStageRepo) GetProgressByDate(stageID uint, date time.Time) (*models.StageProgress, error) {
	for i := range f.progress[stageID] {
		if f.progress[stageID][i].RecordedDate.Equal(date) {
			return &f.progress[stageID][i], nil
		}
	}
	return nil, nil
}

func (f *fakeStageRepo) UpsertProgress(progress *models.StageProgress) error {
	rows := f.progress[progress.StageID]
	for i := range rows {
		if rows[i].RecordedDate.Equal(progress.RecordedDate) {
			rows[i].ActualPercentage = progress.ActualPercentage
			rows[i].Notes = progress.Notes
			return nil
		}
	}
	f.progress[progress.StageID] = append(rows, *progress)
	return nil
}

func (f *fakeStageRepo) ListProgress(stageID uint) ([]models.StageProgress, error) {
	return f.progress[stageID], nil
}

func (f *fakeStageRepo) LatestProgressByStageIDs(ids []uint) (map[uint]float64, error) {
	latest := make(map[uint]float64)
	for _, id := range ids {
		var best *models.StageProgress
		rows := f.progress[id]
		for i := range rows {
			if best == nil || rows[i].RecordedDate.After(best.RecordedDate) {
				best = &rows[i]
			}
		}
		if best != nil {
			latest[id] = best.ActualPercentage
		}
	}
	return latest, nil
}

func (f *fakeStageRepo) WithTx(fn func(repository.WorkStageRepository) error) error {
	return fn(f)
}
