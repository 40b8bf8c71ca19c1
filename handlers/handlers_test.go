package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/services"
)

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Errors, 1)
	return resp
}

func TestWriteServiceErrorNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, &services.NotFoundError{Entity: "user", ID: uint(7)})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeAPIError(t, rec)
	assert.Equal(t, "not_found", resp.Errors[0].Code)
	assert.Equal(t, "404", resp.Errors[0].Status)
	assert.Equal(t, "user 7 not found", resp.Errors[0].Detail)
}

func TestWriteServiceErrorBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, &services.BadRequestError{Reason: "scope is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeAPIError(t, rec)
	assert.Equal(t, "bad_request", resp.Errors[0].Code)
	assert.Equal(t, "scope is required", resp.Errors[0].Detail)
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, fmt.Errorf("sqlite is on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeAPIError(t, rec)
	assert.Equal(t, "internal_error", resp.Errors[0].Code)
	assert.NotContains(t, resp.Errors[0].Detail, "sqlite")
}

func TestOptionalUintQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/work-stages?site_id=12&project_id=abc", nil)

	siteID := optionalUintQuery(r, "site_id")
	require.NotNil(t, siteID)
	assert.Equal(t, uint(12), *siteID)

	assert.Nil(t, optionalUintQuery(r, "project_id"))
	assert.Nil(t, optionalUintQuery(r, "missing"))
}

func TestScopeFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/work-stages?project_id=4", nil)
	scope := scopeFromQuery(r)
	assert.Nil(t, scope.SiteID)
	require.NotNil(t, scope.ProjectID)
	assert.Equal(t, uint(4), *scope.ProjectID)
}

func newAssetFixture(t *testing.T) (string, http.HandlerFunc) {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "report_photos", "3")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg bytes"), 0644))
	return base, AssetServer(base, "report_photos")
}

func TestAssetServerServesFile(t *testing.T) {
	_, handler := newAssetFixture(t)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/report_photos/3/a.jpg", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=86400")
}

func TestAssetServerRejectsTraversal(t *testing.T) {
	_, handler := newAssetFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/report_photos/3/a.jpg", nil)
	req.URL.Path = "/api/report_photos/../secrets.txt"
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// stub repositories for the sync permission tests; only the methods the
// resolver and synchronizer touch are implemented
type stubUserRepo struct {
	repository.UserRepository
	user *models.User
}

func (s *stubUserRepo) GetByID(id uint) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubPermRepo struct {
	repository.PermissionRepository
	level       *models.PermissionLevel
	modules     []models.PermissionModule
	delegations []models.ProjectDelegation
}

func (s *stubPermRepo) GetLevelByID(id uint) (*models.PermissionLevel, error) {
	return s.level, nil
}

func (s *stubPermRepo) ListModules() ([]models.PermissionModule, error) {
	return s.modules, nil
}

func (s *stubPermRepo) ListMatrixByLevel(levelID uint) ([]models.PermissionMatrixEntry, error) {
	return nil, nil
}

func (s *stubPermRepo) ListDelegations(projectID, jobFunctionID uint) ([]models.ProjectDelegation, error) {
	var matching []models.ProjectDelegation
	for _, delegation := range s.delegations {
		if delegation.ProjectID == projectID && delegation.JobFunctionID == jobFunctionID {
			matching = append(matching, delegation)
		}
	}
	return matching, nil
}

type stubStageRepo struct {
	repository.WorkStageRepository
}

func (s *stubStageRepo) ListByScope(scope repository.StageScope) ([]models.WorkStage, error) {
	return nil, nil
}

type stubCatalogRepo struct {
	repository.ProductionRepository
}

func (s *stubCatalogRepo) ListActivitiesVisibleTo(companyID uint) ([]models.ProductionActivity, error) {
	return nil, nil
}

func newSyncHandlerFixture() (*WorkStageHandler, *models.User) {
	jobFunctionID := uint(7)
	user := &models.User{ID: 1, Username: "ana", PermissionLevelID: 1, JobFunctionID: &jobFunctionID}
	users := &stubUserRepo{user: user}
	perms := &stubPermRepo{
		level:   &models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100},
		modules: []models.PermissionModule{{ID: 10, Code: "work_stages.sync", Name: "work_stages.sync"}},
		delegations: []models.ProjectDelegation{
			{ID: 1, ProjectID: 42, JobFunctionID: jobFunctionID, ModuleID: 10},
		},
	}
	resolver := services.NewPermissionResolver(users, perms, services.BypassPolicy{RankThreshold: services.DefaultBypassRank}, zerolog.Nop())
	stages := &stubStageRepo{}
	synchronizer := services.NewStageSynchronizer(stages, &stubCatalogRepo{}, services.NewScopeLock(), zerolog.Nop())
	return NewWorkStageHandler(stages, synchronizer, resolver, nil), user
}

func syncRequest(user *models.User, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/work-stages/sync", strings.NewReader(body))
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
}

func TestSyncStagesDelegationGrantAppliesFromBody(t *testing.T) {
	handler, user := newSyncHandlerFixture()

	// the project id travels in the body, not the query string
	rec := httptest.NewRecorder()
	handler.SyncStages(rec, syncRequest(user, `{"project_id": 42}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestSyncStagesForbiddenWithoutGrant(t *testing.T) {
	handler, user := newSyncHandlerFixture()

	// project 43 carries no delegation for this job function
	rec := httptest.NewRecorder()
	handler.SyncStages(rec, syncRequest(user, `{"project_id": 43}`))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssetServerMissingFileIs404(t *testing.T) {
	_, handler := newAssetFixture(t)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/report_photos/3/missing.jpg", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
