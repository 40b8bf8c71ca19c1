package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gestao-virtual/gvbackend/permissions"
	"github.com/gestao-virtual/gvbackend/services"
)

type PermissionHandler struct {
	Resolver *services.PermissionResolver
}

func NewPermissionHandler(resolver *services.PermissionResolver) *PermissionHandler {
	return &PermissionHandler{Resolver: resolver}
}

// ListModuleDefinitions serves the statically defined permission modules.
// Used by the admin matrix UI to render rows.
func (h *PermissionHandler) ListModuleDefinitions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(permissions.DefinedModules); err != nil {
		http.Error(w, "Failed to serve module definitions", http.StatusInternalServerError)
	}
}

// ListModuleCodes serves just the codes of all defined modules.
func (h *PermissionHandler) ListModuleCodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(permissions.GetAllModuleCodes()); err != nil {
		http.Error(w, "Failed to serve module codes", http.StatusInternalServerError)
	}
}

// MyPermissions resolves the authenticated user's effective permissions,
// optionally in a project context (?project_id=N) so delegations apply.
func (h *PermissionHandler) MyPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	projectID := optionalUintQuery(r, "project_id")
	session, err := h.Resolver.ResolveSession(user.ID, projectID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}
