package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleCodesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, mod := range DefinedModules {
		assert.False(t, seen[mod.Code], "duplicate module code %q", mod.Code)
		seen[mod.Code] = true
	}
}

func TestModuleAccessors(t *testing.T) {
	assert.True(t, IsValidModuleCode("daily_report.create"))
	assert.False(t, IsValidModuleCode("does.not.exist"))

	def, ok := GetModuleDefinition("work_stages.sync")
	require.True(t, ok)
	assert.Equal(t, "Produção", def.Category)

	codes := GetAllModuleCodes()
	assert.Len(t, codes, len(DefinedModules))

	// returned slice is a copy; mutating it must not leak back
	codes[0] = "mutated"
	assert.NotEqual(t, "mutated", GetAllModuleCodes()[0])
}

func TestStandardLevelsOrderedByRank(t *testing.T) {
	for i := 1; i < len(StandardLevels); i++ {
		assert.Greater(t, StandardLevels[i-1].Rank, StandardLevels[i].Rank,
			"levels should be declared highest rank first")
	}
}
