package services

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestao-virtual/gvbackend/models"
)

const (
	moduleDashboard    uint = 1
	moduleClock        uint = 2
	moduleClockManual  uint = 3
	moduleStagesManage uint = 4
	moduleUsersManage  uint = 5
)

func newResolverFixture() (*fakeUserRepo, *fakePermRepo, *PermissionResolver) {
	users := newFakeUserRepo()
	perms := newFakePermRepo()
	perms.addModule(moduleDashboard, "dashboard")
	perms.addModule(moduleClock, "clock")
	perms.addModule(moduleClockManual, "clock.manual_id")
	perms.addModule(moduleStagesManage, "work_stages.manage")
	perms.addModule(moduleUsersManage, "users.manage")

	resolver := NewPermissionResolver(users, perms, BypassPolicy{RankThreshold: DefaultBypassRank}, zerolog.Nop())
	return users, perms, resolver
}

func TestResolveDefaultDeny(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "VIEWER", Rank: 50})
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1})

	set, err := resolver.Resolve(1, nil)
	require.NoError(t, err)

	require.Len(t, set, 5)
	for code, granted := range set {
		assert.False(t, granted, "module %q should be denied by default", code)
	}
}

func TestResolveMatrixGrants(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100})
	perms.grantMatrix(1, moduleDashboard)
	perms.grantMatrix(1, moduleStagesManage)
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1})

	set, err := resolver.Resolve(1, nil)
	require.NoError(t, err)

	assert.True(t, set.Has("dashboard"))
	assert.True(t, set.Has("work_stages.manage"))
	assert.False(t, set.Has("clock"))
	assert.False(t, set.Has("users.manage"))
}

func TestResolveDottedGrantPropagatesToParent(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100})
	perms.grantMatrix(1, moduleClockManual)
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1})

	set, err := resolver.Resolve(1, nil)
	require.NoError(t, err)

	assert.True(t, set.Has("clock.manual_id"))
	assert.True(t, set.Has("clock"), "granting a sub-module should grant its defined parent")
	// "work_stages" is not a defined module, so no phantom entry appears
	_, exists := set["work_stages"]
	assert.False(t, exists)
}

func TestResolveBypassGrantsEverything(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "ADMIN", Rank: 1500, Bypass: true})
	perms.CreateLevel(&models.PermissionLevel{ID: 2, Name: "CUSTOM_HIGH", Rank: 1600})
	users.Create(&models.User{ID: 1, Username: "root", PermissionLevelID: 1})
	users.Create(&models.User{ID: 2, Username: "high", PermissionLevelID: 2})

	for _, userID := range []uint{1, 2} {
		set, err := resolver.Resolve(userID, nil)
		require.NoError(t, err)
		for code, granted := range set {
			assert.True(t, granted, "bypass should grant %q for user %d", code, userID)
		}
	}
}

func TestResolveDelegationsAreAdditive(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100})
	jobFunctionID := uint(7)
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1, JobFunctionID: &jobFunctionID})
	perms.addDelegation(42, jobFunctionID, moduleStagesManage)

	// no project context: delegation does not apply
	set, err := resolver.Resolve(1, nil)
	require.NoError(t, err)
	assert.False(t, set.Has("work_stages.manage"))

	// inside project 42 the delegation grants the module
	projectID := uint(42)
	set, err = resolver.Resolve(1, &projectID)
	require.NoError(t, err)
	assert.True(t, set.Has("work_stages.manage"))

	// a different project gets nothing
	otherProject := uint(43)
	set, err = resolver.Resolve(1, &otherProject)
	require.NoError(t, err)
	assert.False(t, set.Has("work_stages.manage"))
}

func TestResolveSkipsDelegationsWithoutJobFunction(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100})
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1})
	perms.addDelegation(42, 7, moduleStagesManage)

	projectID := uint(42)
	set, err := resolver.Resolve(1, &projectID)
	require.NoError(t, err)
	assert.False(t, set.Has("work_stages.manage"))
}

func TestResolveSkipsMalformedDelegations(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100})
	jobFunctionID := uint(7)
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1, JobFunctionID: &jobFunctionID})
	// delegation to a module that no longer exists, alongside a valid one
	perms.addDelegation(42, jobFunctionID, 999)
	perms.addDelegation(42, jobFunctionID, moduleStagesManage)

	projectID := uint(42)
	set, err := resolver.Resolve(1, &projectID)
	require.NoError(t, err)

	assert.True(t, set.Has("work_stages.manage"), "the valid delegation still applies")
	assert.Len(t, set, 5, "the dangling delegation must not inject a phantom module")
}

func TestResolveSkipsMatrixRowsForUnknownModules(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "OPERATIONAL", Rank: 100})
	perms.grantMatrix(1, 999)
	perms.grantMatrix(1, moduleDashboard)
	users.Create(&models.User{ID: 1, Username: "ana", PermissionLevelID: 1})

	set, err := resolver.Resolve(1, nil)
	require.NoError(t, err)

	assert.True(t, set.Has("dashboard"))
	assert.Len(t, set, 5)
}

func TestResolveUnknownUser(t *testing.T) {
	_, _, resolver := newResolverFixture()

	_, err := resolver.Resolve(999, nil)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Entity)
}

func TestResolveSessionAdminFlag(t *testing.T) {
	users, perms, resolver := newResolverFixture()
	perms.CreateLevel(&models.PermissionLevel{ID: 1, Name: "COMPANY_ADMIN", Rank: 1000})
	perms.CreateLevel(&models.PermissionLevel{ID: 2, Name: "OPERATIONAL", Rank: 100})
	perms.CreateLevel(&models.PermissionLevel{ID: 3, Name: "SUPERVISOR", Rank: 600})
	perms.grantMatrix(3, moduleUsersManage)
	users.Create(&models.User{ID: 1, Username: "chief", PermissionLevelID: 1})
	users.Create(&models.User{ID: 2, Username: "worker", PermissionLevelID: 2})
	users.Create(&models.User{ID: 3, Username: "hr", PermissionLevelID: 3})

	session, err := resolver.ResolveSession(1, nil)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin, "rank 1000 should be administrative")
	assert.Equal(t, "COMPANY_ADMIN", session.LevelName)

	session, err = resolver.ResolveSession(2, nil)
	require.NoError(t, err)
	assert.False(t, session.IsAdmin)

	session, err = resolver.ResolveSession(3, nil)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin, "holding users.manage should imply an admin session")
}
