package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
)

func uintPtr(v uint) *uint { return &v }

func newSyncFixture() (*fakeStageRepo, *fakeCatalogRepo, *StageSynchronizer) {
	stages := newFakeStageRepo()
	catalog := &fakeCatalogRepo{}
	sync := NewStageSynchronizer(stages, catalog, NewScopeLock(), zerolog.Nop())
	return stages, catalog, sync
}

func civilElectricCatalog() []models.ProductionActivity {
	civil := models.ProductionCategory{ID: 1, Name: "Civil"}
	electric := models.ProductionCategory{ID: 2, Name: "Elétrica"}
	return []models.ProductionActivity{
		{ID: 1, Name: "Fundação", CategoryID: 1, Category: civil, Weight: 2},
		{ID: 2, Name: "Alvenaria", CategoryID: 1, Category: civil, Weight: 1},
		{ID: 3, Name: "Cabeamento", CategoryID: 2, Category: electric, Weight: 1},
	}
}

func TestSyncRequiresScope(t *testing.T) {
	_, _, sync := newSyncFixture()

	_, err := sync.SyncStages(repository.StageScope{}, SyncOptions{})
	var badRequest *BadRequestError
	require.ErrorAs(t, err, &badRequest)
}

func TestSyncCreatesParentsAndChildren(t *testing.T) {
	stages, catalog, sync := newSyncFixture()
	catalog.activities = civilElectricCatalog()
	scope := repository.StageScope{SiteID: uintPtr(10)}

	report, err := sync.SyncStages(scope, SyncOptions{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, report.Created, 5)
	assert.Empty(t, report.Warnings)

	tree, err := stages.ListByScope(scope)
	require.NoError(t, err)

	parents := make(map[string]models.WorkStage)
	childCount := 0
	for _, stage := range tree {
		if stage.IsParent() {
			parents[stage.Name] = stage
			assert.Equal(t, "category", stage.Metadata["kind"])
			assert.Nil(t, stage.ProductionActivityID)
		} else {
			childCount++
			assert.Equal(t, "activity", stage.Metadata["kind"])
			require.NotNil(t, stage.ProductionActivityID)
		}
	}
	require.Len(t, parents, 2)
	assert.Equal(t, 3, childCount)

	// parents appended in natural-sort order
	assert.Equal(t, 0, parents["Civil"].DisplayOrder)
	assert.Equal(t, 1, parents["Elétrica"].DisplayOrder)

	// a child's weight mirrors its catalog activity
	for _, stage := range tree {
		if stage.ProductionActivityID != nil && *stage.ProductionActivityID == 1 {
			assert.Equal(t, 2.0, stage.Weight)
			assert.Equal(t, parents["Civil"].ID, *stage.ParentID)
		}
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	_, catalog, sync := newSyncFixture()
	catalog.activities = civilElectricCatalog()
	scope := repository.StageScope{ProjectID: uintPtr(3)}

	first, err := sync.SyncStages(scope, SyncOptions{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, first.Created, 5)

	second, err := sync.SyncStages(scope, SyncOptions{CompanyID: 1})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Warnings)
}

func TestSyncAppendsAfterExistingOrder(t *testing.T) {
	stages, catalog, sync := newSyncFixture()
	catalog.activities = civilElectricCatalog()
	scope := repository.StageScope{SiteID: uintPtr(10)}

	// pre-existing, manually renamed tree: parent matches "Civil" by
	// normalized name and already links one activity
	parent := stages.seed(&models.WorkStage{
		ID: 1, Name: "CIVIL ", SiteID: scope.SiteID, DisplayOrder: 3,
		Status: models.StageStatusActive, Weight: 1,
		Metadata: map[string]interface{}{"kind": "category", "nota": "obra A"},
	})
	stages.seed(&models.WorkStage{
		ID: 2, Name: "Fundação profunda", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		ProductionActivityID: uintPtr(1), DisplayOrder: 5,
		Status: models.StageStatusActive, Weight: 2,
	})

	report, err := sync.SyncStages(scope, SyncOptions{CompanyID: 1})
	require.NoError(t, err)
	// one new parent (Elétrica) plus the two unlinked activities
	require.Len(t, report.Created, 3)

	tree, err := stages.ListByScope(scope)
	require.NoError(t, err)
	for _, stage := range tree {
		switch {
		case stage.ID == parent.ID:
			assert.Equal(t, "CIVIL ", stage.Name, "existing stages must never be renamed")
			assert.Equal(t, 3, stage.DisplayOrder)
			assert.Equal(t, map[string]interface{}{"kind": "category", "nota": "obra A"},
				stage.Metadata, "existing stage metadata must never be touched")
		case stage.IsParent():
			assert.Equal(t, "Elétrica", stage.Name)
			assert.Equal(t, 4, stage.DisplayOrder, "new parents append after the current maximum")
		case *stage.ParentID == parent.ID && stage.ID != 2:
			assert.Equal(t, 6, stage.DisplayOrder, "new children append after the parent's current maximum")
		}
	}
}

func TestSyncDuplicateLinksWarnWithoutCleanup(t *testing.T) {
	stages, catalog, sync := newSyncFixture()
	catalog.activities = civilElectricCatalog()
	scope := repository.StageScope{SiteID: uintPtr(10)}

	parent := stages.seed(&models.WorkStage{
		ID: 1, Name: "Civil", SiteID: scope.SiteID, Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 2, Name: "Fundação", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		ProductionActivityID: uintPtr(1), Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 3, Name: "Fundação (cópia)", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		ProductionActivityID: uintPtr(1), DisplayOrder: 1, Status: models.StageStatusActive, Weight: 1,
	})

	report, err := sync.SyncStages(scope, SyncOptions{CompanyID: 1, IsAdmin: false, Cleanup: true})
	require.NoError(t, err)

	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "production activity 1")
	assert.Contains(t, report.Warnings[0], "[2 3]")

	// cleanup needs both the admin session and the explicit flag
	_, err = stages.GetByID(2)
	assert.NoError(t, err)
	_, err = stages.GetByID(3)
	assert.NoError(t, err)
}

func TestSyncDuplicateCleanupKeepsStageWithMostHistory(t *testing.T) {
	stages, catalog, sync := newSyncFixture()
	catalog.activities = civilElectricCatalog()
	scope := repository.StageScope{SiteID: uintPtr(10)}

	parent := stages.seed(&models.WorkStage{
		ID: 1, Name: "Civil", SiteID: scope.SiteID, Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 2, Name: "Fundação", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		ProductionActivityID: uintPtr(1), Status: models.StageStatusActive, Weight: 1,
	})
	survivor := stages.seed(&models.WorkStage{
		ID: 3, Name: "Fundação (uso real)", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		ProductionActivityID: uintPtr(1), DisplayOrder: 1, Status: models.StageStatusActive, Weight: 1,
	})
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stages.progress[3] = []models.StageProgress{
		{StageID: 3, RecordedDate: day, ActualPercentage: 20},
		{StageID: 3, RecordedDate: day.AddDate(0, 0, 1), ActualPercentage: 35},
	}

	report, err := sync.SyncStages(scope, SyncOptions{CompanyID: 1, IsAdmin: true, Cleanup: true})
	require.NoError(t, err)
	require.NotEmpty(t, report.Warnings)

	_, err = stages.GetByID(2)
	assert.Error(t, err, "the duplicate without history should be removed")
	kept, err := stages.GetByID(survivor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fundação (uso real)", kept.Name)
	assert.Len(t, stages.progress[survivor.ID], 2)
}

func TestRollupRequiresScope(t *testing.T) {
	_, _, sync := newSyncFixture()

	_, err := sync.RollupProgress(repository.StageScope{})
	var badRequest *BadRequestError
	require.ErrorAs(t, err, &badRequest)
}

func TestRollupWeightedAverage(t *testing.T) {
	stages, _, sync := newSyncFixture()
	scope := repository.StageScope{SiteID: uintPtr(10)}

	parent := stages.seed(&models.WorkStage{
		ID: 1, Name: "Civil", SiteID: scope.SiteID, Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 2, Name: "Fundação", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 3, Name: "Alvenaria", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		DisplayOrder: 1, Status: models.StageStatusActive, Weight: 3,
	})
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stages.progress[2] = []models.StageProgress{{StageID: 2, RecordedDate: day, ActualPercentage: 100}}
	stages.progress[3] = []models.StageProgress{{StageID: 3, RecordedDate: day, ActualPercentage: 40}}

	written, err := sync.RollupProgress(scope)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	rows := stages.progress[parent.ID]
	require.Len(t, rows, 1)
	// (1*100 + 3*40) / 4
	assert.InDelta(t, 55.0, rows[0].ActualPercentage, 0.001)
	assert.Equal(t, "Agregação ponderada (sincronização)", rows[0].Notes)

	// unchanged children: the repeat run writes nothing
	written, err = sync.RollupProgress(scope)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func TestRollupIgnoresDisabledChildren(t *testing.T) {
	stages, _, sync := newSyncFixture()
	scope := repository.StageScope{SiteID: uintPtr(10)}

	parent := stages.seed(&models.WorkStage{
		ID: 1, Name: "Civil", SiteID: scope.SiteID, Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 2, Name: "Fundação", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		Status: models.StageStatusActive, Weight: 1,
	})
	stages.seed(&models.WorkStage{
		ID: 3, Name: "Etapa antiga", SiteID: scope.SiteID, ParentID: uintPtr(parent.ID),
		DisplayOrder: 1, Status: models.StageStatusDisabled, Weight: 10,
	})
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stages.progress[2] = []models.StageProgress{{StageID: 2, RecordedDate: day, ActualPercentage: 60}}
	stages.progress[3] = []models.StageProgress{{StageID: 3, RecordedDate: day, ActualPercentage: 100}}

	written, err := sync.RollupProgress(scope)
	require.NoError(t, err)
	require.Equal(t, 1, written)

	rows := stages.progress[parent.ID]
	require.Len(t, rows, 1)
	assert.InDelta(t, 60.0, rows[0].ActualPercentage, 0.001, "disabled children must not count")
}
