package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gestao-virtual/gvbackend/database"
)

// AnalyticsHandler serves read-only reporting queries over the raw SQL
// handle.
type AnalyticsHandler struct {
	DB *sql.DB
}

func NewAnalyticsHandler(db *sql.DB) *AnalyticsHandler {
	return &AnalyticsHandler{DB: db}
}

// ProgressCurve returns the per-day average of top-level stage progress for
// a site or project.
func (h *AnalyticsHandler) ProgressCurve(w http.ResponseWriter, r *http.Request) {
	siteID := optionalUintQuery(r, "site_id")
	projectID := optionalUintQuery(r, "project_id")
	if siteID == nil && projectID == nil {
		http.Error(w, "site_id or project_id query parameter is required", http.StatusBadRequest)
		return
	}

	points, err := database.GetProgressCurve(h.DB, siteID, projectID)
	if err != nil {
		http.Error(w, "Failed to compute progress curve: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []database.ProgressCurvePoint{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

// StageDistribution returns each top-level stage with its latest recorded
// percentage.
func (h *AnalyticsHandler) StageDistribution(w http.ResponseWriter, r *http.Request) {
	siteID := optionalUintQuery(r, "site_id")
	projectID := optionalUintQuery(r, "project_id")
	if siteID == nil && projectID == nil {
		http.Error(w, "site_id or project_id query parameter is required", http.StatusBadRequest)
		return
	}

	rows, err := database.GetStageDistribution(h.DB, siteID, projectID)
	if err != nil {
		http.Error(w, "Failed to compute stage distribution: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []database.StageDistributionRow{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
