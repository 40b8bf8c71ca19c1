package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/facette/natsort"
	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/rs/zerolog"
)

// SyncOptions carries the caller context for one sync pass.
type SyncOptions struct {
	CompanyID uint
	IsAdmin   bool
	// Cleanup allows merging duplicate activity-linked stages. Ignored
	// unless IsAdmin is also set.
	Cleanup bool
}

// SyncReport is the outcome of one sync pass: the stages created plus any
// data-integrity warnings collected along the way. Warnings never abort the
// pass.
type SyncReport struct {
	Created  []models.WorkStage `json:"created"`
	Warnings []string           `json:"warnings"`
}

// StageSynchronizer reconciles the work-stage tree of a site/project with
// the production activity catalog. Synchronization is additive only: it
// creates missing parent (category) and child (activity) stages, appends
// display orders after the current maximum, and never touches the name,
// metadata or ordering of existing stages. Passes over the same scope are
// serialized through an advisory lock; all creates of one pass share a
// single transaction.
type StageSynchronizer struct {
	stages  repository.WorkStageRepository
	catalog repository.ProductionRepository
	locks   *ScopeLock
	logger  zerolog.Logger
}

func NewStageSynchronizer(stages repository.WorkStageRepository, catalog repository.ProductionRepository, locks *ScopeLock, logger zerolog.Logger) *StageSynchronizer {
	return &StageSynchronizer{stages: stages, catalog: catalog, locks: locks, logger: logger}
}

// SyncStages runs one idempotent reconciliation pass for the given scope.
// Calling it again on an unchanged catalog creates nothing.
func (s *StageSynchronizer) SyncStages(scope repository.StageScope, opts SyncOptions) (*SyncReport, error) {
	if scope.SiteID == nil && scope.ProjectID == nil {
		return nil, &BadRequestError{Reason: "a site or project id is required"}
	}

	release := s.locks.Acquire(scopeKey(scope))
	defer release()

	s.logger.Info().
		Str("scope", scopeKey(scope)).
		Uint("company_id", opts.CompanyID).
		Msg("starting work stage synchronization")

	activities, err := s.catalog.ListActivitiesVisibleTo(opts.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("stage sync: failed to load activity catalog: %w", err)
	}
	stages, err := s.stages.ListByScope(scope)
	if err != nil {
		return nil, fmt.Errorf("stage sync: failed to load stages: %w", err)
	}

	report := &SyncReport{Created: []models.WorkStage{}, Warnings: []string{}}

	// index the existing tree: parents by normalized name, children by
	// activity link, plus the append positions for display order
	parentByName := make(map[string]*models.WorkStage)
	linkedByActivity := make(map[uint][]*models.WorkStage)
	maxParentOrder := -1
	maxChildOrder := make(map[uint]int)
	for i := range stages {
		stage := &stages[i]
		if stage.IsParent() {
			parentByName[normalizeStageName(stage.Name)] = stage
			if stage.DisplayOrder > maxParentOrder {
				maxParentOrder = stage.DisplayOrder
			}
		} else {
			order, seen := maxChildOrder[*stage.ParentID]
			if !seen || stage.DisplayOrder > order {
				maxChildOrder[*stage.ParentID] = stage.DisplayOrder
			}
		}
		if stage.ProductionActivityID != nil {
			linkedByActivity[*stage.ProductionActivityID] = append(linkedByActivity[*stage.ProductionActivityID], stage)
		}
	}

	s.detectDuplicateLinks(linkedByActivity, opts, report)

	// categories come from the visible activities, so a category with no
	// activity for this company never produces an empty parent
	type categoryGroup struct {
		category   models.ProductionCategory
		activities []models.ProductionActivity
	}
	groupsByName := make(map[string]*categoryGroup)
	for _, activity := range activities {
		key := normalizeStageName(activity.Category.Name)
		group, ok := groupsByName[key]
		if !ok {
			group = &categoryGroup{category: activity.Category}
			groupsByName[key] = group
		}
		group.activities = append(group.activities, activity)
	}

	// missing categories are appended in natural-sort order so repeated
	// syncs agree on ordering regardless of map iteration
	var missingCategoryNames []string
	for key, group := range groupsByName {
		if _, ok := parentByName[key]; !ok {
			missingCategoryNames = append(missingCategoryNames, group.category.Name)
		}
	}
	natsort.Sort(missingCategoryNames)

	newParentByName := make(map[string]*models.WorkStage)
	var newParents []*models.WorkStage
	nextParentOrder := maxParentOrder + 1
	for _, name := range missingCategoryNames {
		parent := &models.WorkStage{
			Name:         name,
			SiteID:       scope.SiteID,
			ProjectID:    scope.ProjectID,
			DisplayOrder: nextParentOrder,
			Weight:       1,
			Status:       models.StageStatusActive,
			Metadata:     map[string]interface{}{"kind": "category"},
		}
		nextParentOrder++
		newParentByName[normalizeStageName(name)] = parent
		newParents = append(newParents, parent)
	}

	// child stages for activities not yet linked anywhere in the scope
	type childPlan struct {
		stage     *models.WorkStage
		parentKey string
	}
	var newChildren []childPlan
	nextChildOrder := make(map[string]int)
	for key, group := range groupsByName {
		if existing, ok := parentByName[key]; ok {
			if order, seen := maxChildOrder[existing.ID]; seen {
				nextChildOrder[key] = order + 1
			}
		}
		for i := range group.activities {
			activity := group.activities[i]
			if len(linkedByActivity[activity.ID]) > 0 {
				continue
			}
			activityID := activity.ID
			child := &models.WorkStage{
				Name:                 activity.Name,
				SiteID:               scope.SiteID,
				ProjectID:            scope.ProjectID,
				ProductionActivityID: &activityID,
				DisplayOrder:         nextChildOrder[key],
				Weight:               activity.Weight,
				Status:               models.StageStatusActive,
				Metadata:             map[string]interface{}{"kind": "activity"},
			}
			nextChildOrder[key]++
			newChildren = append(newChildren, childPlan{stage: child, parentKey: key})
		}
	}

	if len(newParents) == 0 && len(newChildren) == 0 {
		s.logger.Info().Str("scope", scopeKey(scope)).Msg("work stage tree already in sync")
		return report, nil
	}

	// one transaction for the whole pass: parents are created before their
	// children, and either everything lands or nothing does
	err = s.stages.WithTx(func(tx repository.WorkStageRepository) error {
		for _, parent := range newParents {
			if err := tx.Create(parent); err != nil {
				return fmt.Errorf("failed to create parent stage %q: %w", parent.Name, err)
			}
		}
		for _, plan := range newChildren {
			parent, ok := parentByName[plan.parentKey]
			if !ok {
				parent = newParentByName[plan.parentKey]
			}
			if parent == nil {
				return fmt.Errorf("no parent stage for category key %q", plan.parentKey)
			}
			parentID := parent.ID
			plan.stage.ParentID = &parentID
			if err := tx.Create(plan.stage); err != nil {
				return fmt.Errorf("failed to create child stage %q: %w", plan.stage.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stage sync: %w", err)
	}

	for _, parent := range newParents {
		report.Created = append(report.Created, *parent)
	}
	for _, plan := range newChildren {
		report.Created = append(report.Created, *plan.stage)
	}

	s.logger.Info().
		Str("scope", scopeKey(scope)).
		Int("created", len(report.Created)).
		Int("warnings", len(report.Warnings)).
		Msg("work stage synchronization finished")

	return report, nil
}

// detectDuplicateLinks reports activities linked by more than one stage in
// the scope. This indicates either a race between two concurrent syncs
// (before scope locking) or manual corruption. Rows are only merged when an
// administrator explicitly asked for cleanup.
func (s *StageSynchronizer) detectDuplicateLinks(linkedByActivity map[uint][]*models.WorkStage, opts SyncOptions, report *SyncReport) {
	var activityIDs []uint
	for activityID, linked := range linkedByActivity {
		if len(linked) > 1 {
			activityIDs = append(activityIDs, activityID)
		}
	}
	sort.Slice(activityIDs, func(i, j int) bool { return activityIDs[i] < activityIDs[j] })

	for _, activityID := range activityIDs {
		linked := linkedByActivity[activityID]
		stageIDs := make([]uint, len(linked))
		for i, stage := range linked {
			stageIDs[i] = stage.ID
		}
		sort.Slice(stageIDs, func(i, j int) bool { return stageIDs[i] < stageIDs[j] })
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"production activity %d is linked by stages %v; duplicate links require manual review",
			activityID, stageIDs))

		if !(opts.IsAdmin && opts.Cleanup) {
			continue
		}
		if err := s.mergeDuplicates(linked); err != nil {
			s.logger.Error().Err(err).
				Uint("activity_id", activityID).
				Msg("duplicate stage cleanup failed")
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"cleanup of duplicate stages for activity %d failed: %v", activityID, err))
		}
	}
}

// mergeDuplicates keeps the stage holding the most progress history (ties
// broken by age, oldest wins) and folds the rest into it: progress rows and
// children are reassigned to the survivor before the duplicates are removed.
func (s *StageSynchronizer) mergeDuplicates(linked []*models.WorkStage) error {
	ids := make([]uint, len(linked))
	for i, stage := range linked {
		ids[i] = stage.ID
	}
	counts, err := s.stages.CountProgressByStageIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to count progress rows: %w", err)
	}

	ordered := make([]*models.WorkStage, len(linked))
	copy(ordered, linked)
	sort.SliceStable(ordered, func(i, j int) bool {
		if counts[ordered[i].ID] != counts[ordered[j].ID] {
			return counts[ordered[i].ID] > counts[ordered[j].ID]
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	master := ordered[0]
	return s.stages.WithTx(func(tx repository.WorkStageRepository) error {
		for _, slave := range ordered[1:] {
			if err := tx.ReassignProgress(slave.ID, master.ID); err != nil {
				return fmt.Errorf("failed to move progress from stage %d: %w", slave.ID, err)
			}
			if err := tx.ReassignChildren(slave.ID, master.ID); err != nil {
				return fmt.Errorf("failed to move children from stage %d: %w", slave.ID, err)
			}
			if err := tx.Delete(slave.ID); err != nil {
				return fmt.Errorf("failed to delete duplicate stage %d: %w", slave.ID, err)
			}
			s.logger.Info().
				Uint("master_id", master.ID).
				Uint("removed_id", slave.ID).
				Msg("merged duplicate work stage")
		}
		return nil
	})
}

func scopeKey(scope repository.StageScope) string {
	if scope.SiteID != nil {
		return fmt.Sprintf("site:%d", *scope.SiteID)
	}
	return fmt.Sprintf("project:%d", *scope.ProjectID)
}

func normalizeStageName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
