package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/config"
	"github.com/gestao-virtual/gvbackend/media"
	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/utils"
	"github.com/gestao-virtual/gvbackend/workers"
)

const maxPhotoUploadBytes = 32 << 20 // 32 MiB

// DailyReportHandler manages RDO creation, listing, photo uploads and the
// per-report photo archive download.
type DailyReportHandler struct {
	ReportRepo     repository.DailyReportRepository
	SiteRepo       repository.SiteRepository
	Processor      *media.Processor
	PhotoProcessor *workers.PhotoProcessor
	Config         config.Config
}

func NewDailyReportHandler(reportRepo repository.DailyReportRepository, siteRepo repository.SiteRepository, processor *media.Processor, photoProcessor *workers.PhotoProcessor, cfg config.Config) *DailyReportHandler {
	return &DailyReportHandler{
		ReportRepo:     reportRepo,
		SiteRepo:       siteRepo,
		Processor:      processor,
		PhotoProcessor: photoProcessor,
		Config:         cfg,
	}
}

type DailyReportPayload struct {
	SiteID     uint    `json:"site_id"`
	ReportDate string  `json:"report_date"` // "2006-01-02", defaults to today
	Weather    *string `json:"weather,omitempty"`
	Notes      string  `json:"notes"`
}

func (h *DailyReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var payload DailyReportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.SiteID == 0 {
		http.Error(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if _, err := h.SiteRepo.GetByID(payload.SiteID); err != nil {
		http.Error(w, "Site not found", http.StatusBadRequest)
		return
	}

	reportDate := time.Now().UTC().Truncate(24 * time.Hour)
	if payload.ReportDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.ReportDate, time.UTC)
		if err != nil {
			http.Error(w, "Invalid report_date format (must be YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		reportDate = parsed
	}

	report := &models.DailyReport{
		SiteID:     payload.SiteID,
		UserID:     user.ID,
		ReportDate: reportDate,
		Weather:    payload.Weather,
		Notes:      payload.Notes,
	}
	if err := h.ReportRepo.Create(report); err != nil {
		http.Error(w, "Failed to create report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(report)
}

func (h *DailyReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := parseIDParam(w, r, "reportID")
	if !ok {
		return
	}
	report, err := h.ReportRepo.GetByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Report not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve report: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// ListReports filters by site_id when given, otherwise lists the caller's
// own reports.
func (h *DailyReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	var (
		reports []models.DailyReport
		err     error
	)
	if siteID := optionalUintQuery(r, "site_id"); siteID != nil {
		reports, err = h.ReportRepo.ListBySite(*siteID)
	} else {
		user, ok := UserFromContext(r)
		if !ok {
			http.Error(w, "User not found in context", http.StatusInternalServerError)
			return
		}
		reports, err = h.ReportRepo.ListByUser(user.ID)
	}
	if err != nil {
		http.Error(w, "Failed to retrieve reports: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}

// DeleteReport removes a report and its photo rows. Only the author or an
// admin (admin routes enforce that upstream) may delete.
func (h *DailyReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}
	reportID, ok := parseIDParam(w, r, "reportID")
	if !ok {
		return
	}

	report, err := h.ReportRepo.GetByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Report not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve report: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if report.UserID != user.ID {
		http.Error(w, "You can only delete your own reports", http.StatusForbidden)
		return
	}

	if err := h.ReportRepo.Delete(reportID); err != nil {
		http.Error(w, "Failed to delete report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto accepts one multipart photo, stores the original, records the
// photo row as pending and queues background thumbnail/EXIF processing.
func (h *DailyReportHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	reportID, ok := parseIDParam(w, r, "reportID")
	if !ok {
		return
	}
	if _, err := h.ReportRepo.GetByID(reportID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Report not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve report: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		http.Error(w, "Failed to parse multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "Missing 'photo' form file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !media.IsSupportedPhoto(header.Filename) {
		http.Error(w, "Unsupported photo format", http.StatusUnsupportedMediaType)
		return
	}

	relativePath, err := h.Processor.SavePhoto(reportID, header.Filename, file)
	if err != nil {
		http.Error(w, "Failed to store photo: "+err.Error(), http.StatusInternalServerError)
		return
	}

	photo := &models.ReportPhoto{
		ReportID:        reportID,
		OriginalPath:    relativePath,
		ThumbnailStatus: models.PhotoStatusPending,
	}
	if err := h.ReportRepo.AddPhoto(photo); err != nil {
		http.Error(w, "Failed to record photo: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if h.PhotoProcessor != nil {
		h.PhotoProcessor.QueueJob(workers.PhotoJob{PhotoID: photo.ID})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(photo)
}

// DownloadPhotoArchive zips the report's photo directory and streams it.
func (h *DailyReportHandler) DownloadPhotoArchive(w http.ResponseWriter, r *http.Request) {
	reportID, ok := parseIDParam(w, r, "reportID")
	if !ok {
		return
	}
	report, err := h.ReportRepo.GetByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Report not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve report: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if len(report.Photos) == 0 {
		http.Error(w, "Report has no photos", http.StatusNotFound)
		return
	}

	photosDir := filepath.Join(h.Config.PhotosPath, fmt.Sprintf("%d", reportID))
	zipPath, _, err := utils.CreateReportPhotoZip(photosDir, h.Config.ArchivesPath)
	if err != nil {
		http.Error(w, "Failed to create photo archive: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(zipPath)))
	http.ServeFile(w, r, zipPath)
}
