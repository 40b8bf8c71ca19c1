package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/realtime"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/services"
)

// WorkStageHandler serves the work-stage tree of a site/project: listing,
// manual CRUD, catalog synchronization, and progress recording.
type WorkStageHandler struct {
	StageRepo    repository.WorkStageRepository
	Synchronizer *services.StageSynchronizer
	Resolver     *services.PermissionResolver
	Hub          *realtime.Hub
}

func NewWorkStageHandler(stageRepo repository.WorkStageRepository, synchronizer *services.StageSynchronizer, resolver *services.PermissionResolver, hub *realtime.Hub) *WorkStageHandler {
	return &WorkStageHandler{StageRepo: stageRepo, Synchronizer: synchronizer, Resolver: resolver, Hub: hub}
}

// scopeFromQuery builds the stage scope from site_id / project_id query
// parameters. Validation of "at least one" is left to the service layer.
func scopeFromQuery(r *http.Request) repository.StageScope {
	return repository.StageScope{
		SiteID:    optionalUintQuery(r, "site_id"),
		ProjectID: optionalUintQuery(r, "project_id"),
	}
}

// StageTreeNode is a parent stage with its ordered children inlined.
type StageTreeNode struct {
	models.WorkStage
	ChildStages []models.WorkStage `json:"child_stages"`
}

// ListStages returns the scope's stages as an ordered two-level tree.
func (h *WorkStageHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	if scope.SiteID == nil && scope.ProjectID == nil {
		http.Error(w, "site_id or project_id query parameter is required", http.StatusBadRequest)
		return
	}

	stages, err := h.StageRepo.ListByScope(scope)
	if err != nil {
		http.Error(w, "Failed to retrieve work stages: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// ListByScope orders by display_order, id; children inherit that order
	var tree []StageTreeNode
	nodeIndex := make(map[uint]int)
	for _, stage := range stages {
		if stage.IsParent() {
			nodeIndex[stage.ID] = len(tree)
			tree = append(tree, StageTreeNode{WorkStage: stage, ChildStages: []models.WorkStage{}})
		}
	}
	for _, stage := range stages {
		if stage.IsParent() {
			continue
		}
		if idx, ok := nodeIndex[*stage.ParentID]; ok {
			tree[idx].ChildStages = append(tree[idx].ChildStages, stage)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tree)
}

type StageCreatePayload struct {
	Name         string                 `json:"name"`
	Description  *string                `json:"description,omitempty"`
	SiteID       *uint                  `json:"site_id,omitempty"`
	ProjectID    *uint                  `json:"project_id,omitempty"`
	ParentID     *uint                  `json:"parent_id,omitempty"`
	DisplayOrder int                    `json:"display_order"`
	Weight       float64                `json:"weight"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// CreateStage adds a manual stage outside the catalog sync (no activity
// link). Linked stages are only ever created by the synchronizer.
func (h *WorkStageHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	var payload StageCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Stage name is required", http.StatusBadRequest)
		return
	}
	if payload.SiteID == nil && payload.ProjectID == nil {
		http.Error(w, "site_id or project_id is required", http.StatusBadRequest)
		return
	}

	if payload.ParentID != nil {
		parent, err := h.StageRepo.GetByID(*payload.ParentID)
		if err != nil {
			http.Error(w, "Parent stage not found", http.StatusBadRequest)
			return
		}
		if !parent.IsParent() {
			http.Error(w, "Parent stage must be a top-level stage", http.StatusBadRequest)
			return
		}
	}

	weight := payload.Weight
	if weight <= 0 {
		weight = 1
	}

	stage := &models.WorkStage{
		Name:         payload.Name,
		Description:  payload.Description,
		SiteID:       payload.SiteID,
		ProjectID:    payload.ProjectID,
		ParentID:     payload.ParentID,
		DisplayOrder: payload.DisplayOrder,
		Weight:       weight,
		Status:       models.StageStatusActive,
		Metadata:     payload.Metadata,
	}
	if err := h.StageRepo.Create(stage); err != nil {
		http.Error(w, "Failed to create work stage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(stage)
}

type StageUpdatePayload struct {
	Name         *string                 `json:"name,omitempty"`
	Description  *string                 `json:"description,omitempty"`
	DisplayOrder *int                    `json:"display_order,omitempty"`
	Weight       *float64                `json:"weight,omitempty"`
	Metadata     *map[string]interface{} `json:"metadata,omitempty"`
}

func (h *WorkStageHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	stageID, ok := parseIDParam(w, r, "stageID")
	if !ok {
		return
	}

	var payload StageUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	stage, err := h.StageRepo.GetByID(stageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Work stage not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve work stage: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if payload.Name != nil && *payload.Name != "" {
		stage.Name = *payload.Name
	}
	if payload.Description != nil {
		stage.Description = payload.Description
	}
	if payload.DisplayOrder != nil {
		stage.DisplayOrder = *payload.DisplayOrder
	}
	if payload.Weight != nil && *payload.Weight > 0 {
		stage.Weight = *payload.Weight
	}
	if payload.Metadata != nil {
		stage.Metadata = *payload.Metadata
	}

	if err := h.StageRepo.Update(stage); err != nil {
		http.Error(w, "Failed to update work stage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stage)
}

type StageStatusPayload struct {
	Status string `json:"status"`
}

// SetStageStatus flips a stage between active and disabled. Disabling keeps
// the stage and its history while hiding it from rollups.
func (h *WorkStageHandler) SetStageStatus(w http.ResponseWriter, r *http.Request) {
	stageID, ok := parseIDParam(w, r, "stageID")
	if !ok {
		return
	}

	var payload StageStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Status != models.StageStatusActive && payload.Status != models.StageStatusDisabled {
		http.Error(w, "Invalid status value", http.StatusBadRequest)
		return
	}

	if _, err := h.StageRepo.GetByID(stageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Work stage not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve work stage: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.StageRepo.SetStatus(stageID, payload.Status); err != nil {
		http.Error(w, "Failed to update stage status: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteStage removes a stage. Stages carrying progress history cannot be
// hard deleted; disable them instead.
func (h *WorkStageHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	stageID, ok := parseIDParam(w, r, "stageID")
	if !ok {
		return
	}

	stage, err := h.StageRepo.GetByID(stageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Work stage not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve work stage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(stage.Children) > 0 {
		http.Error(w, "Stage has child stages; delete or move them first", http.StatusConflict)
		return
	}

	counts, err := h.StageRepo.CountProgressByStageIDs([]uint{stageID})
	if err != nil {
		http.Error(w, "Failed to check stage progress history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if counts[stageID] > 0 {
		http.Error(w, "Stage has recorded progress and cannot be deleted; disable it instead", http.StatusConflict)
		return
	}

	if err := h.StageRepo.Delete(stageID); err != nil {
		http.Error(w, "Failed to delete work stage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SyncRequestPayload struct {
	SiteID    *uint `json:"site_id,omitempty"`
	ProjectID *uint `json:"project_id,omitempty"`
	Cleanup   bool  `json:"cleanup,omitempty"`
}

// SyncStages runs one catalog reconciliation pass for the scope and
// broadcasts the result to websocket clients.
func (h *WorkStageHandler) SyncStages(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var payload SyncRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	// the project context comes from the payload, not the query string, so
	// the module check happens here where delegations can apply
	session, err := h.Resolver.ResolveSession(user.ID, payload.ProjectID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !session.Modules.Has("work_stages.sync") {
		http.Error(w, "Forbidden: requires module 'work_stages.sync'", http.StatusForbidden)
		return
	}

	companyID := uint(0)
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}

	scope := repository.StageScope{SiteID: payload.SiteID, ProjectID: payload.ProjectID}
	report, err := h.Synchronizer.SyncStages(scope, services.SyncOptions{
		CompanyID: companyID,
		IsAdmin:   session.IsAdmin,
		Cleanup:   payload.Cleanup,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if h.Hub != nil {
		h.Hub.Broadcast(realtime.Event{
			Type:   realtime.EventStageSync,
			Status: "done",
			Extra: map[string]interface{}{
				"created":  len(report.Created),
				"warnings": report.Warnings,
			},
			Timestamp: time.Now().Unix(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"results": report,
	})
}

// RollupProgress recomputes parent progress from children for the scope.
func (h *WorkStageHandler) RollupProgress(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	written, err := h.Synchronizer.RollupProgress(scope)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "updated": written})
}

type ProgressPayload struct {
	Percentage float64 `json:"percentage"`
	Date       *string `json:"date,omitempty"` // "2006-01-02", defaults to today
	Notes      string  `json:"notes"`
}

// RecordProgress upserts a stage's progress row for one date.
func (h *WorkStageHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	stageID, ok := parseIDParam(w, r, "stageID")
	if !ok {
		return
	}

	var payload ProgressPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Percentage < 0 || payload.Percentage > 100 {
		http.Error(w, "Percentage must be between 0 and 100", http.StatusBadRequest)
		return
	}

	stage, err := h.StageRepo.GetByID(stageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Work stage not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve work stage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if stage.Status != models.StageStatusActive {
		http.Error(w, "Cannot record progress on a disabled stage", http.StatusConflict)
		return
	}

	recordedDate := time.Now().UTC().Truncate(24 * time.Hour)
	if payload.Date != nil && *payload.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *payload.Date, time.UTC)
		if err != nil {
			http.Error(w, "Invalid date format (must be YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		recordedDate = parsed
	}

	row := &models.StageProgress{
		StageID:          stageID,
		RecordedDate:     recordedDate,
		ActualPercentage: payload.Percentage,
		Notes:            payload.Notes,
	}
	if err := h.StageRepo.UpsertProgress(row); err != nil {
		http.Error(w, "Failed to record progress: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(row)
}

// ListProgress returns a stage's full progress history, newest first.
func (h *WorkStageHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	stageID, ok := parseIDParam(w, r, "stageID")
	if !ok {
		return
	}

	progress, err := h.StageRepo.ListProgress(stageID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progress)
}
