package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
)

// CompanyHandler serves the corporate reference data: companies, projects
// ("obras"), sites ("canteiros") and job functions.
type CompanyHandler struct {
	CompanyRepo     repository.CompanyRepository
	ProjectRepo     repository.ProjectRepository
	SiteRepo        repository.SiteRepository
	JobFunctionRepo repository.JobFunctionRepository
}

func NewCompanyHandler(companyRepo repository.CompanyRepository, projectRepo repository.ProjectRepository, siteRepo repository.SiteRepository, jobFunctionRepo repository.JobFunctionRepository) *CompanyHandler {
	return &CompanyHandler{
		CompanyRepo:     companyRepo,
		ProjectRepo:     projectRepo,
		SiteRepo:        siteRepo,
		JobFunctionRepo: jobFunctionRepo,
	}
}

// --- Companies ---

func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.CompanyRepo.ListAll()
	if err != nil {
		http.Error(w, "Failed to retrieve companies: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(companies)
}

func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(w, r, "companyID")
	if !ok {
		return
	}

	company, err := h.CompanyRepo.GetByID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Company not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve company: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(company)
}

type CompanyPayload struct {
	Name  string  `json:"name"`
	TaxID *string `json:"tax_id,omitempty"`
}

func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var payload CompanyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Company name is required", http.StatusBadRequest)
		return
	}

	company := &models.Company{Name: payload.Name, TaxID: payload.TaxID, IsActive: true}
	if err := h.CompanyRepo.Create(company); err != nil {
		http.Error(w, "Failed to create company: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(company)
}

func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(w, r, "companyID")
	if !ok {
		return
	}

	var payload CompanyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	company, err := h.CompanyRepo.GetByID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Company not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve company for update: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if payload.Name != "" {
		company.Name = payload.Name
	}
	if payload.TaxID != nil {
		company.TaxID = payload.TaxID
	}

	if err := h.CompanyRepo.Update(company); err != nil {
		http.Error(w, "Failed to update company: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(company)
}

func (h *CompanyHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(w, r, "companyID")
	if !ok {
		return
	}
	if err := h.CompanyRepo.Delete(companyID); err != nil {
		http.Error(w, "Failed to delete company: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Projects ---

func (h *CompanyHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	var projects []models.Project
	var err error
	if companyID := optionalUintQuery(r, "company_id"); companyID != nil {
		projects, err = h.ProjectRepo.ListByCompany(*companyID)
	} else {
		projects, err = h.ProjectRepo.ListAll()
	}
	if err != nil {
		http.Error(w, "Failed to retrieve projects: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projects)
}

func (h *CompanyHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(w, r, "projectID")
	if !ok {
		return
	}

	project, err := h.ProjectRepo.GetByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Project not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve project: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

type ProjectPayload struct {
	Name      string  `json:"name"`
	Code      *string `json:"code,omitempty"`
	CompanyID uint    `json:"company_id"`
}

func (h *CompanyHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var payload ProjectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.CompanyID == 0 {
		http.Error(w, "Project name and company_id are required", http.StatusBadRequest)
		return
	}

	if _, err := h.CompanyRepo.GetByID(payload.CompanyID); err != nil {
		http.Error(w, "Company not found", http.StatusBadRequest)
		return
	}

	project := &models.Project{Name: payload.Name, Code: payload.Code, CompanyID: payload.CompanyID}
	if err := h.ProjectRepo.Create(project); err != nil {
		http.Error(w, "Failed to create project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(project)
}

func (h *CompanyHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(w, r, "projectID")
	if !ok {
		return
	}

	var payload ProjectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	project, err := h.ProjectRepo.GetByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Project not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve project for update: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if payload.Name != "" {
		project.Name = payload.Name
	}
	if payload.Code != nil {
		project.Code = payload.Code
	}

	if err := h.ProjectRepo.Update(project); err != nil {
		http.Error(w, "Failed to update project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

func (h *CompanyHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(w, r, "projectID")
	if !ok {
		return
	}
	if err := h.ProjectRepo.Delete(projectID); err != nil {
		http.Error(w, "Failed to delete project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Sites ---

func (h *CompanyHandler) ListProjectSites(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(w, r, "projectID")
	if !ok {
		return
	}

	sites, err := h.SiteRepo.ListByProject(projectID)
	if err != nil {
		http.Error(w, "Failed to retrieve sites: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sites)
}

type SitePayload struct {
	Name     string  `json:"name"`
	Location *string `json:"location,omitempty"`
}

func (h *CompanyHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIDParam(w, r, "projectID")
	if !ok {
		return
	}

	var payload SitePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Site name is required", http.StatusBadRequest)
		return
	}

	if _, err := h.ProjectRepo.GetByID(projectID); err != nil {
		http.Error(w, "Project not found", http.StatusBadRequest)
		return
	}

	site := &models.Site{Name: payload.Name, Location: payload.Location, ProjectID: projectID}
	if err := h.SiteRepo.Create(site); err != nil {
		http.Error(w, "Failed to create site: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(site)
}

func (h *CompanyHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := parseIDParam(w, r, "siteID")
	if !ok {
		return
	}
	if err := h.SiteRepo.Delete(siteID); err != nil {
		http.Error(w, "Failed to delete site: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Job functions ---

func (h *CompanyHandler) ListJobFunctions(w http.ResponseWriter, r *http.Request) {
	var functions []models.JobFunction
	var err error
	if companyID := optionalUintQuery(r, "company_id"); companyID != nil {
		functions, err = h.JobFunctionRepo.ListByCompany(*companyID)
	} else {
		functions, err = h.JobFunctionRepo.ListAll()
	}
	if err != nil {
		http.Error(w, "Failed to retrieve job functions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(functions)
}

type JobFunctionPayload struct {
	Name      string `json:"name"`
	CompanyID *uint  `json:"company_id,omitempty"`
}

func (h *CompanyHandler) CreateJobFunction(w http.ResponseWriter, r *http.Request) {
	var payload JobFunctionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Job function name is required", http.StatusBadRequest)
		return
	}

	function := &models.JobFunction{Name: payload.Name, CompanyID: payload.CompanyID}
	if err := h.JobFunctionRepo.Create(function); err != nil {
		http.Error(w, "Failed to create job function: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(function)
}

func (h *CompanyHandler) DeleteJobFunction(w http.ResponseWriter, r *http.Request) {
	functionID, ok := parseIDParam(w, r, "functionID")
	if !ok {
		return
	}
	if err := h.JobFunctionRepo.Delete(functionID); err != nil {
		http.Error(w, "Failed to delete job function: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
