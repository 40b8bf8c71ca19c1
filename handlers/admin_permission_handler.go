package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/permissions"
	"github.com/gestao-virtual/gvbackend/repository"
)

// AdminPermissionHandler manages permission levels, the grant matrix and
// project delegations. All routes require an administrative session.
type AdminPermissionHandler struct {
	PermRepo repository.PermissionRepository
}

func NewAdminPermissionHandler(permRepo repository.PermissionRepository) *AdminPermissionHandler {
	return &AdminPermissionHandler{PermRepo: permRepo}
}

// --- DTOs ---

type LevelCreatePayload struct {
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Bypass bool   `json:"bypass"`
}

type LevelUpdatePayload struct {
	Name   *string `json:"name,omitempty"`
	Rank   *int    `json:"rank,omitempty"`
	Bypass *bool   `json:"bypass,omitempty"`
}

type MatrixEntryPayload struct {
	ModuleCode string `json:"module_code"`
	IsGranted  bool   `json:"is_granted"`
}

type DelegationCreatePayload struct {
	ProjectID     uint   `json:"project_id"`
	JobFunctionID uint   `json:"job_function_id"`
	ModuleCode    string `json:"module_code"`
}

// --- Levels ---

func (h *AdminPermissionHandler) ListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.PermRepo.ListLevels()
	if err != nil {
		http.Error(w, "Failed to retrieve permission levels: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(levels)
}

func (h *AdminPermissionHandler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	var payload LevelCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Level name is required", http.StatusBadRequest)
		return
	}

	level := &models.PermissionLevel{Name: payload.Name, Rank: payload.Rank, Bypass: payload.Bypass}
	if err := h.PermRepo.CreateLevel(level); err != nil {
		http.Error(w, "Failed to create permission level: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(level)
}

func (h *AdminPermissionHandler) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	levelID, ok := parseIDParam(w, r, "levelID")
	if !ok {
		return
	}

	var payload LevelUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	level, err := h.PermRepo.GetLevelByID(levelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Permission level not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve permission level: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if payload.Name != nil {
		level.Name = *payload.Name
	}
	if payload.Rank != nil {
		level.Rank = *payload.Rank
	}
	if payload.Bypass != nil {
		level.Bypass = *payload.Bypass
	}

	if err := h.PermRepo.UpdateLevel(level); err != nil {
		http.Error(w, "Failed to update permission level: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(level)
}

func (h *AdminPermissionHandler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	levelID, ok := parseIDParam(w, r, "levelID")
	if !ok {
		return
	}

	if _, err := h.PermRepo.GetLevelByID(levelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Permission level not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to check permission level before delete: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.PermRepo.DeleteLevel(levelID); err != nil {
		http.Error(w, "Failed to delete permission level: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Matrix ---

// GetLevelMatrix returns the stored matrix rows for one level, with modules
// preloaded. Absent rows mean "denied".
func (h *AdminPermissionHandler) GetLevelMatrix(w http.ResponseWriter, r *http.Request) {
	levelID, ok := parseIDParam(w, r, "levelID")
	if !ok {
		return
	}

	if _, err := h.PermRepo.GetLevelByID(levelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Permission level not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to verify permission level: "+err.Error(), http.StatusInternalServerError)
		return
	}

	entries, err := h.PermRepo.ListMatrixByLevel(levelID)
	if err != nil {
		http.Error(w, "Failed to retrieve matrix entries: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// SetLevelMatrixEntry upserts the grant flag for one (level, module) pair.
func (h *AdminPermissionHandler) SetLevelMatrixEntry(w http.ResponseWriter, r *http.Request) {
	levelID, ok := parseIDParam(w, r, "levelID")
	if !ok {
		return
	}

	var payload MatrixEntryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !permissions.IsValidModuleCode(payload.ModuleCode) {
		http.Error(w, "Invalid module code: "+payload.ModuleCode, http.StatusBadRequest)
		return
	}

	module, err := h.PermRepo.GetModuleByCode(payload.ModuleCode)
	if err != nil {
		http.Error(w, "Module not found in database: "+payload.ModuleCode, http.StatusNotFound)
		return
	}

	if err := h.PermRepo.SetMatrixEntry(levelID, module.ID, payload.IsGranted); err != nil {
		http.Error(w, "Failed to set matrix entry: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Delegations ---

func (h *AdminPermissionHandler) ListProjectDelegations(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(w, r, "projectID")
	if !ok {
		return
	}

	delegations, err := h.PermRepo.ListDelegationsByProject(projectID)
	if err != nil {
		http.Error(w, "Failed to retrieve delegations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(delegations)
}

func (h *AdminPermissionHandler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	var payload DelegationCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.ProjectID == 0 || payload.JobFunctionID == 0 {
		http.Error(w, "project_id and job_function_id are required", http.StatusBadRequest)
		return
	}
	if !permissions.IsValidModuleCode(payload.ModuleCode) {
		http.Error(w, "Invalid module code: "+payload.ModuleCode, http.StatusBadRequest)
		return
	}

	module, err := h.PermRepo.GetModuleByCode(payload.ModuleCode)
	if err != nil {
		http.Error(w, "Module not found in database: "+payload.ModuleCode, http.StatusNotFound)
		return
	}

	delegation := &models.ProjectDelegation{
		ProjectID:     payload.ProjectID,
		JobFunctionID: payload.JobFunctionID,
		ModuleID:      module.ID,
	}
	if err := h.PermRepo.CreateDelegation(delegation); err != nil {
		http.Error(w, "Failed to create delegation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(delegation)
}

func (h *AdminPermissionHandler) DeleteDelegation(w http.ResponseWriter, r *http.Request) {
	delegationID, ok := parseIDParam(w, r, "delegationID")
	if !ok {
		return
	}

	if err := h.PermRepo.DeleteDelegation(delegationID); err != nil {
		http.Error(w, "Failed to delete delegation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseIDParam reads a uint URL parameter, writing a 400 on bad input.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		http.Error(w, "Invalid "+name+" format", http.StatusBadRequest)
		return 0, false
	}
	return uint(parsed), true
}
