package services

import (
	"fmt"
	"math"
	"time"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
)

const rollupNotes = "Agregação ponderada (sincronização)"

// progressEpsilon is the smallest parent-level change worth persisting;
// rollups below it leave the history untouched.
const progressEpsilon = 0.01

// RollupProgress recomputes the progress of every parent stage in the scope
// as the weight-averaged latest progress of its active children and records
// the result as today's progress row. Parents whose aggregate moved by less
// than progressEpsilon are skipped so repeated rollups do not churn history.
// It returns the number of parent rows written.
func (s *StageSynchronizer) RollupProgress(scope repository.StageScope) (int, error) {
	if scope.SiteID == nil && scope.ProjectID == nil {
		return 0, &BadRequestError{Reason: "a site or project id is required"}
	}

	release := s.locks.Acquire(scopeKey(scope))
	defer release()

	stages, err := s.stages.ListByScope(scope)
	if err != nil {
		return 0, fmt.Errorf("progress rollup: failed to load stages: %w", err)
	}

	childrenByParent := make(map[uint][]*models.WorkStage)
	var parents []*models.WorkStage
	var childIDs []uint
	for i := range stages {
		stage := &stages[i]
		if stage.IsParent() {
			parents = append(parents, stage)
			continue
		}
		if stage.Status != models.StageStatusActive {
			continue
		}
		childrenByParent[*stage.ParentID] = append(childrenByParent[*stage.ParentID], stage)
		childIDs = append(childIDs, stage.ID)
	}
	if len(childIDs) == 0 {
		return 0, nil
	}

	latest, err := s.stages.LatestProgressByStageIDs(childIDs)
	if err != nil {
		return 0, fmt.Errorf("progress rollup: failed to load child progress: %w", err)
	}

	today := truncateToDay(time.Now())
	written := 0
	for _, parent := range parents {
		children := childrenByParent[parent.ID]
		if len(children) == 0 {
			continue
		}
		var weightedSum, totalWeight float64
		for _, child := range children {
			weight := child.Weight
			if weight <= 0 {
				weight = 1
			}
			weightedSum += weight * latest[child.ID]
			totalWeight += weight
		}
		aggregate := math.Min(weightedSum/totalWeight, 100)

		current, err := s.stages.GetProgressByDate(parent.ID, today)
		if err != nil {
			return written, fmt.Errorf("progress rollup: failed to load progress for stage %d: %w", parent.ID, err)
		}
		if current != nil && math.Abs(current.ActualPercentage-aggregate) < progressEpsilon {
			continue
		}

		row := &models.StageProgress{
			StageID:          parent.ID,
			RecordedDate:     today,
			ActualPercentage: aggregate,
			Notes:            rollupNotes,
		}
		if err := s.stages.UpsertProgress(row); err != nil {
			return written, fmt.Errorf("progress rollup: failed to record progress for stage %d: %w", parent.ID, err)
		}
		written++
	}

	if written > 0 {
		s.logger.Info().
			Str("scope", scopeKey(scope)).
			Int("written", written).
			Msg("rolled up parent stage progress")
	}
	return written, nil
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
