package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/services"
)

const jwtExpirationHours = 24

type AuthHandler struct {
	UserRepo       repository.UserRepository
	InviteCodeRepo repository.InviteCodeRepository
	Resolver       *services.PermissionResolver
	JWTKey         []byte
}

func NewAuthHandler(userRepo repository.UserRepository, inviteCodeRepo repository.InviteCodeRepository, resolver *services.PermissionResolver, jwtKey []byte) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, InviteCodeRepo: inviteCodeRepo, Resolver: resolver, JWTKey: jwtKey}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string                       `json:"token"`
	User        models.User                  `json:"user"`
	Permissions *services.SessionPermissions `json:"permissions"`
	ExpiresAt   time.Time                    `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if !user.CheckPassword(payload.Password) {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if !user.IsActive() {
		http.Error(w, "Account is inactive", http.StatusForbidden)
		return
	}

	session, err := h.Resolver.ResolveSession(user.ID, nil)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	expirationTime := time.Now().Add(jwtExpirationHours * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "gvbackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.JWTKey)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	response := LoginResponse{
		Token:       tokenString,
		User:        userForResponse,
		Permissions: session,
		ExpiresAt:   expirationTime,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

type RegisterPayload struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

// Register handles new user registration using an invite code. The invite
// code decides the permission level and company the new account starts with.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if payload.Username == "" || payload.Password == "" || payload.InviteCode == "" {
		http.Error(w, "Username, password, and invite code are required", http.StatusBadRequest)
		return
	}

	inviteCode, err := h.InviteCodeRepo.GetByCode(payload.InviteCode)
	if err != nil {
		http.Error(w, "Invalid or expired invite code", http.StatusForbidden)
		return
	}

	if !inviteCode.IsValid() {
		http.Error(w, "Invite code is not valid (expired, inactive, or max uses reached)", http.StatusForbidden)
		return
	}
	if inviteCode.PermissionLevelID == nil {
		http.Error(w, "Invite code has no permission level attached", http.StatusForbidden)
		return
	}

	newUser := &models.User{
		Username:          payload.Username,
		Name:              payload.Name,
		Status:            models.UserStatusActive,
		PermissionLevelID: *inviteCode.PermissionLevelID,
		CompanyID:         inviteCode.CompanyID,
	}
	if err := newUser.SetPassword(payload.Password); err != nil {
		http.Error(w, "Failed to hash password: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.UserRepo.Create(newUser); err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.InviteCodeRepo.IncrementUses(inviteCode.ID); err != nil {
		// user exists already, so log and keep going
		fmt.Printf("CRITICAL: User %s created but failed to increment uses for invite code %s (ID: %d): %v\n", newUser.Username, inviteCode.Code, inviteCode.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "User registered successfully. Please log in."})
}

// CurrentUser retrieves the authenticated user from the request context
// together with their freshly resolved permissions. Protected by
// AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		http.Error(w, "Could not retrieve user from context", http.StatusInternalServerError)
		return
	}

	projectID := optionalUintQuery(r, "project_id")
	session, err := h.Resolver.ResolveSession(user.ID, projectID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":        userForResponse,
		"permissions": session,
	})
}
