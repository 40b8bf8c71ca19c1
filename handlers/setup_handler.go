package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/permissions"
	"github.com/gestao-virtual/gvbackend/repository"
)

type SetupHandler struct {
	UserRepo repository.UserRepository
	PermRepo repository.PermissionRepository
	DB       *gorm.DB
}

func NewSetupHandler(db *gorm.DB, userRepo repository.UserRepository, permRepo repository.PermissionRepository) *SetupHandler {
	return &SetupHandler{UserRepo: userRepo, PermRepo: permRepo, DB: db}
}

type FirstAdminPayload struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SyncPermissionDefinitions seeds the standard permission levels and module
// catalog into the database. Idempotent and safe to run on every startup:
// existing rows are updated in place, never deleted, so custom levels and
// matrix entries survive.
func SyncPermissionDefinitions(permRepo repository.PermissionRepository) error {
	fmt.Println("Syncing permission levels and module definitions...")

	for _, def := range permissions.StandardLevels {
		level, err := permRepo.GetLevelByName(def.Name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				newLevel := &models.PermissionLevel{Name: def.Name, Rank: def.Rank, Bypass: def.Bypass}
				if err := permRepo.CreateLevel(newLevel); err != nil {
					return fmt.Errorf("failed to create permission level '%s': %w", def.Name, err)
				}
				continue
			}
			return fmt.Errorf("failed to query permission level '%s': %w", def.Name, err)
		}
		if level.Rank != def.Rank || level.Bypass != def.Bypass {
			level.Rank = def.Rank
			level.Bypass = def.Bypass
			if err := permRepo.UpdateLevel(level); err != nil {
				return fmt.Errorf("failed to update permission level '%s': %w", def.Name, err)
			}
		}
	}

	for _, def := range permissions.DefinedModules {
		module, err := permRepo.GetModuleByCode(def.Code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				newModule := &models.PermissionModule{Code: def.Code, Name: def.Name, Category: def.Category}
				if err := permRepo.CreateModule(newModule); err != nil {
					return fmt.Errorf("failed to create permission module '%s': %w", def.Code, err)
				}
				continue
			}
			return fmt.Errorf("failed to query permission module '%s': %w", def.Code, err)
		}
		if module.Name != def.Name || module.Category != def.Category {
			module.Name = def.Name
			module.Category = def.Category
			if err := permRepo.UpdateModule(module); err != nil {
				return fmt.Errorf("failed to update permission module '%s': %w", def.Code, err)
			}
		}
	}

	fmt.Println("Permission definitions are up to date.")
	return nil
}

// CreateFirstAdmin handles the creation of the initial administrator user.
// This endpoint is only usable while no users exist in the system.
func (h *SetupHandler) CreateFirstAdmin(w http.ResponseWriter, r *http.Request) {
	var count int64
	if err := h.DB.Model(&models.User{}).Count(&count).Error; err != nil {
		http.Error(w, "Database error while checking for existing users.", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		http.Error(w, "Setup has already been completed: users exist.", http.StatusForbidden)
		return
	}

	var payload FirstAdminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if payload.Username == "" || payload.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var innerCount int64
		if err := tx.Model(&models.User{}).Count(&innerCount).Error; err != nil {
			return fmt.Errorf("failed to count existing users in transaction: %w", err)
		}
		if innerCount > 0 {
			return errors.New("setup already completed")
		}

		var adminLevel models.PermissionLevel
		err := tx.Where("name = ?", "ADMIN").First(&adminLevel).Error
		if err != nil {
			return fmt.Errorf("could not find the ADMIN level, which should have been seeded at startup: %w", err)
		}

		adminUser := &models.User{
			Username:          payload.Username,
			Name:              payload.Name,
			Status:            models.UserStatusActive,
			PermissionLevelID: adminLevel.ID,
		}
		if err := adminUser.SetPassword(payload.Password); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		if err := tx.Create(adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		fmt.Printf("Successfully created initial admin user '%s'.\n", adminUser.Username)
		return nil
	})

	if txErr != nil {
		if txErr.Error() == "setup already completed" {
			http.Error(w, "Setup has already been completed.", http.StatusForbidden)
		} else {
			http.Error(w, "Failed to create first admin user: "+txErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "Initial admin user created successfully. Please log in."})
}
