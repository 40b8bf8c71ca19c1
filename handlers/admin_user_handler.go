package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
)

type AdminUserHandler struct {
	UserRepo repository.UserRepository
	PermRepo repository.PermissionRepository
}

func NewAdminUserHandler(userRepo repository.UserRepository, permRepo repository.PermissionRepository) *AdminUserHandler {
	return &AdminUserHandler{UserRepo: userRepo, PermRepo: permRepo}
}

// UserResponseDTO hides the password hash and flattens the level for lists.
type UserResponseDTO struct {
	ID            uint    `json:"id"`
	Username      string  `json:"username"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	LevelID       uint    `json:"permission_level_id"`
	LevelName     string  `json:"permission_level_name,omitempty"`
	JobFunctionID *uint   `json:"job_function_id,omitempty"`
	CompanyID     *uint   `json:"company_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toUserResponseDTO(user *models.User) UserResponseDTO {
	dto := UserResponseDTO{
		ID:            user.ID,
		Username:      user.Username,
		Name:          user.Name,
		Status:        user.Status,
		LevelID:       user.PermissionLevelID,
		JobFunctionID: user.JobFunctionID,
		CompanyID:     user.CompanyID,
		CreatedAt:     user.CreatedAt.Format(http.TimeFormat),
	}
	if user.PermissionLevel != nil {
		dto.LevelName = user.PermissionLevel.Name
	}
	return dto
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	var err error
	if companyID := optionalUintQuery(r, "company_id"); companyID != nil {
		users, err = h.UserRepo.ListByCompany(*companyID)
	} else {
		users, err = h.UserRepo.ListAll()
	}
	if err != nil {
		http.Error(w, "Failed to retrieve users: "+err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]UserResponseDTO, len(users))
	for i := range users {
		dtos[i] = toUserResponseDTO(&users[i])
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dtos)
}

func (h *AdminUserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve user: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponseDTO(user))
}

type UserUpdatePayload struct {
	Name          *string `json:"name,omitempty"`
	LevelID       *uint   `json:"permission_level_id,omitempty"`
	JobFunctionID *uint   `json:"job_function_id,omitempty"`
	// ClearJobFunction removes the current job function when true
	ClearJobFunction bool    `json:"clear_job_function,omitempty"`
	Status           *string `json:"status,omitempty"`
}

func (h *AdminUserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userID")
	if !ok {
		return
	}

	var payload UserUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve user for update: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if payload.Name != nil {
		user.Name = *payload.Name
		if err := h.UserRepo.Update(user); err != nil {
			http.Error(w, "Failed to update user: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if payload.LevelID != nil {
		if _, err := h.PermRepo.GetLevelByID(*payload.LevelID); err != nil {
			http.Error(w, "Permission level not found", http.StatusBadRequest)
			return
		}
		if err := h.UserRepo.SetPermissionLevel(user.ID, *payload.LevelID); err != nil {
			http.Error(w, "Failed to set permission level: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if payload.ClearJobFunction {
		if err := h.UserRepo.SetJobFunction(user.ID, nil); err != nil {
			http.Error(w, "Failed to clear job function: "+err.Error(), http.StatusInternalServerError)
			return
		}
	} else if payload.JobFunctionID != nil {
		if err := h.UserRepo.SetJobFunction(user.ID, payload.JobFunctionID); err != nil {
			http.Error(w, "Failed to set job function: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if payload.Status != nil {
		if *payload.Status != models.UserStatusActive && *payload.Status != models.UserStatusInactive {
			http.Error(w, "Invalid status value", http.StatusBadRequest)
			return
		}
		if err := h.UserRepo.SetStatus(user.ID, *payload.Status); err != nil {
			http.Error(w, "Failed to set user status: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	updated, err := h.UserRepo.GetByID(user.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve updated user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponseDTO(updated))
}

func (h *AdminUserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userID")
	if !ok {
		return
	}

	currentUser, ok := UserFromContext(r)
	if ok && currentUser.ID == userID {
		http.Error(w, "You cannot delete your own account", http.StatusBadRequest)
		return
	}

	if _, err := h.UserRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to check user before delete: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.UserRepo.Delete(userID); err != nil {
		http.Error(w, "Failed to delete user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
