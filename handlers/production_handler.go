package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
)

// ProductionHandler serves the production catalog: categories and canonical
// activities. Activities with no company are global templates.
type ProductionHandler struct {
	ProductionRepo repository.ProductionRepository
}

func NewProductionHandler(productionRepo repository.ProductionRepository) *ProductionHandler {
	return &ProductionHandler{ProductionRepo: productionRepo}
}

func (h *ProductionHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.ProductionRepo.ListCategories()
	if err != nil {
		http.Error(w, "Failed to retrieve categories: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

type CategoryPayload struct {
	Name string `json:"name"`
}

func (h *ProductionHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload CategoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Category name is required", http.StatusBadRequest)
		return
	}

	category := &models.ProductionCategory{Name: payload.Name}
	if err := h.ProductionRepo.CreateCategory(category); err != nil {
		http.Error(w, "Failed to create category: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(category)
}

// ListActivities returns the catalog visible to the caller's company:
// global templates plus company-owned entries. Administrators may pass
// company_id to inspect another company's view.
func (h *ProductionHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	companyID := uint(0)
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}
	if override := optionalUintQuery(r, "company_id"); override != nil {
		companyID = *override
	}

	activities, err := h.ProductionRepo.ListActivitiesVisibleTo(companyID)
	if err != nil {
		http.Error(w, "Failed to retrieve activities: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(activities)
}

type ActivityPayload struct {
	Name       string  `json:"name"`
	CategoryID uint    `json:"category_id"`
	CompanyID  *uint   `json:"company_id,omitempty"` // nil creates a global template
	Unit       *string `json:"unit,omitempty"`
	Weight     float64 `json:"weight"`
}

func (h *ProductionHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var payload ActivityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.CategoryID == 0 {
		http.Error(w, "Activity name and category_id are required", http.StatusBadRequest)
		return
	}

	if _, err := h.ProductionRepo.GetCategoryByID(payload.CategoryID); err != nil {
		http.Error(w, "Category not found", http.StatusBadRequest)
		return
	}

	weight := payload.Weight
	if weight <= 0 {
		weight = 1
	}

	activity := &models.ProductionActivity{
		Name:       payload.Name,
		CategoryID: payload.CategoryID,
		CompanyID:  payload.CompanyID,
		Unit:       payload.Unit,
		Weight:     weight,
	}
	if err := h.ProductionRepo.CreateActivity(activity); err != nil {
		http.Error(w, "Failed to create activity: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(activity)
}

type ActivityUpdatePayload struct {
	Name   *string  `json:"name,omitempty"`
	Unit   *string  `json:"unit,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

func (h *ProductionHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := parseIDParam(w, r, "activityID")
	if !ok {
		return
	}

	var payload ActivityUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	activity, err := h.ProductionRepo.GetActivityByID(activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Activity not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve activity for update: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if payload.Name != nil {
		activity.Name = *payload.Name
	}
	if payload.Unit != nil {
		activity.Unit = payload.Unit
	}
	if payload.Weight != nil && *payload.Weight > 0 {
		activity.Weight = *payload.Weight
	}

	if err := h.ProductionRepo.UpdateActivity(activity); err != nil {
		http.Error(w, "Failed to update activity: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(activity)
}

func (h *ProductionHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := parseIDParam(w, r, "activityID")
	if !ok {
		return
	}
	if err := h.ProductionRepo.DeleteActivity(activityID); err != nil {
		http.Error(w, "Failed to delete activity: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
