package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultBypassRank is the rank at which a permission level short-circuits
// the matrix even without an explicit bypass flag. Matches the built-in
// ADMIN level.
const DefaultBypassRank = 1500

// adminRank is the rank from which a resolved session is considered
// administrative (COMPANY_ADMIN and above).
const adminRank = 1000

// PermissionSet is a flat moduleCode -> granted mapping. Every known module
// code is present; resolver callers must treat it as immutable.
type PermissionSet map[string]bool

// Has reports whether the set grants the given module code.
func (s PermissionSet) Has(code string) bool {
	return s[code]
}

// BypassPolicy decides which permission levels skip the matrix entirely.
// It is passed into the resolver explicitly so the escape hatch is visible
// at the call site rather than living in ambient global state.
type BypassPolicy struct {
	RankThreshold int
}

// Allows reports whether the level short-circuits permission resolution.
func (p BypassPolicy) Allows(level *models.PermissionLevel) bool {
	if level.Bypass {
		return true
	}
	return p.RankThreshold > 0 && level.Rank >= p.RankThreshold
}

// SessionPermissions is the resolved payload cached in the session by the
// auth layer: the module map plus the derived admin flag.
type SessionPermissions struct {
	Modules   PermissionSet `json:"modules"`
	IsAdmin   bool          `json:"is_admin"`
	LevelName string        `json:"level_name"`
	Rank      int           `json:"rank"`
}

// PermissionResolver computes effective permissions for a user by combining
// the level's matrix rows with any project delegations for the user's job
// function. Pure read; callers cache per request.
type PermissionResolver struct {
	users  repository.UserRepository
	perms  repository.PermissionRepository
	policy BypassPolicy
	logger zerolog.Logger
}

func NewPermissionResolver(users repository.UserRepository, perms repository.PermissionRepository, policy BypassPolicy, logger zerolog.Logger) *PermissionResolver {
	return &PermissionResolver{users: users, perms: perms, policy: policy, logger: logger}
}

// Resolve produces the moduleCode -> granted mapping for a user, optionally
// in a project context. Unknown user or level is a NotFoundError; an
// unlisted module is always denied, never an error.
func (r *PermissionResolver) Resolve(userID uint, projectID *uint) (PermissionSet, error) {
	set, _, err := r.resolve(userID, projectID)
	return set, err
}

// ResolveSession resolves permissions and derives the session admin flag.
func (r *PermissionResolver) ResolveSession(userID uint, projectID *uint) (*SessionPermissions, error) {
	set, level, err := r.resolve(userID, projectID)
	if err != nil {
		return nil, err
	}
	isAdmin := level.Rank >= adminRank || r.policy.Allows(level) ||
		set.Has("users.manage") || set.Has("companies.manage")
	return &SessionPermissions{
		Modules:   set,
		IsAdmin:   isAdmin,
		LevelName: level.Name,
		Rank:      level.Rank,
	}, nil
}

func (r *PermissionResolver) resolve(userID uint, projectID *uint) (PermissionSet, *models.PermissionLevel, error) {
	user, err := r.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &NotFoundError{Entity: "user", ID: userID}
		}
		return nil, nil, fmt.Errorf("permission resolve: failed to load user %d: %w", userID, err)
	}

	// the level (and with it the bypass flag) is always re-read rather than
	// taken from the preloaded association, so a revoked bypass takes
	// effect immediately even when the user row was cached upstream
	level, err := r.perms.GetLevelByID(user.PermissionLevelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &NotFoundError{Entity: "permission level", ID: user.PermissionLevelID}
		}
		return nil, nil, fmt.Errorf("permission resolve: failed to load level %d: %w", user.PermissionLevelID, err)
	}

	modules, err := r.perms.ListModules()
	if err != nil {
		return nil, nil, fmt.Errorf("permission resolve: failed to list modules: %w", err)
	}

	// default-deny: every known module starts out false
	set := make(PermissionSet, len(modules))
	codeByID := make(map[uint]string, len(modules))
	for _, module := range modules {
		set[module.Code] = false
		codeByID[module.ID] = module.Code
	}

	if r.policy.Allows(level) {
		// the bypass skips the auditable grant trail, so every use is logged
		r.logger.Warn().
			Uint("user_id", user.ID).
			Str("level", level.Name).
			Int("rank", level.Rank).
			Msg("permission bypass exercised; matrix not consulted")
		for code := range set {
			set[code] = true
		}
		return set, level, nil
	}

	entries, err := r.perms.ListMatrixByLevel(level.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("permission resolve: failed to load matrix for level %d: %w", level.ID, err)
	}
	for _, entry := range entries {
		code, ok := codeByID[entry.ModuleID]
		if !ok {
			// row points at a module that no longer exists
			r.logger.Warn().
				Uint("level_id", level.ID).
				Uint("module_id", entry.ModuleID).
				Msg("skipping matrix row for unknown module")
			continue
		}
		if entry.IsGranted {
			grant(set, code)
		}
	}

	// delegations only ever add; a user without a job function skips this
	// step entirely
	if projectID != nil && user.JobFunctionID != nil {
		delegations, err := r.perms.ListDelegations(*projectID, *user.JobFunctionID)
		if err != nil {
			return nil, nil, fmt.Errorf("permission resolve: failed to load delegations for project %d: %w", *projectID, err)
		}
		for _, delegation := range delegations {
			code, ok := codeByID[delegation.ModuleID]
			if !ok {
				r.logger.Warn().
					Uint("delegation_id", delegation.ID).
					Uint("module_id", delegation.ModuleID).
					Msg("skipping malformed project delegation")
				continue
			}
			grant(set, code)
		}
	}

	return set, level, nil
}

// grant marks a module code granted. Granting a dotted sub-module (e.g.
// "clock.manual_id") also grants its parent module when one is defined,
// mirroring how the admin matrix UI groups capabilities.
func grant(set PermissionSet, code string) {
	set[code] = true
	if i := strings.IndexByte(code, '.'); i > 0 {
		prefix := code[:i]
		if _, known := set[prefix]; known {
			set[prefix] = true
		}
	}
}
