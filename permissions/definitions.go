package permissions

// ModuleDefinition describes a single gated capability
type ModuleDefinition struct {
	Code     string `json:"code"`     // unique code, e.g. "daily_report.create"
	Name     string `json:"name"`     // friendly name shown in the admin matrix UI
	Category string `json:"category"` // grouping used by the matrix UI
}

// LevelDefinition describes a standard permission level and its rank.
// Bypass levels short-circuit the matrix entirely (see services.BypassPolicy)
type LevelDefinition struct {
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Bypass bool   `json:"bypass"`
}

// StandardLevels holds the built-in permission levels, highest rank first.
// Seeded into the database on startup; administrators may add custom levels
var StandardLevels = []LevelDefinition{
	{Name: "HELPER_SYSTEM", Rank: 2000, Bypass: true},
	{Name: "ADMIN", Rank: 1500, Bypass: true},
	{Name: "TI_SOFTWARE", Rank: 1200},
	{Name: "COMPANY_ADMIN", Rank: 1000},
	{Name: "PROJECT_MANAGER", Rank: 800},
	{Name: "SITE_MANAGER", Rank: 700},
	{Name: "SUPERVISOR", Rank: 600},
	{Name: "OPERATIONAL", Rank: 100},
	{Name: "VIEWER", Rank: 50},
}

// DefinedModules holds all statically defined permission modules
var DefinedModules = []ModuleDefinition{
	{Code: "dashboard", Name: "Painel Geral", Category: "Geral"},
	{Code: "messages.view", Name: "Mensagens Corporativas", Category: "Geral"},

	{Code: "clock", Name: "Bate-ponto (Câmera)", Category: "Ponto Eletrônico"},
	{Code: "clock.manual_id", Name: "Ponto via Matrícula", Category: "Ponto Eletrônico"},
	{Code: "daily_report.create", Name: "Preencher RDO", Category: "Ponto Eletrônico"},
	{Code: "daily_report.list", Name: "Histórico de RDOs", Category: "Ponto Eletrônico"},
	{Code: "time_records.view", Name: "Visualizar Registros", Category: "Ponto Eletrônico"},

	{Code: "companies.view", Name: "Visualizar Empresas", Category: "Corporativo"},
	{Code: "companies.manage", Name: "Gerenciar Empresas", Category: "Corporativo"},
	{Code: "projects.view", Name: "Visualizar Obras", Category: "Corporativo"},
	{Code: "projects.manage", Name: "Gerenciar Obras", Category: "Corporativo"},
	{Code: "sites.view", Name: "Visualizar Canteiros", Category: "Corporativo"},

	{Code: "projects.progress", Name: "Andamento de Projetos (Mapa)", Category: "Gráficos"},
	{Code: "work_progress.view", Name: "Andamento da Obra (Gráficos)", Category: "Gráficos"},

	{Code: "team_composition", Name: "Composição de Equipe", Category: "Equipes"},
	{Code: "employees.manage", Name: "Gestão de Funcionários", Category: "Equipes"},
	{Code: "functions.manage", Name: "Gestão de Funções", Category: "Equipes"},

	{Code: "costs.view", Name: "Gestão de Custos", Category: "Produção"},
	{Code: "production.planning", Name: "Planejamento de Produção", Category: "Produção"},
	{Code: "production.analytics", Name: "Analytics de Produção", Category: "Produção"},
	{Code: "work_stages.manage", Name: "Gerenciar Etapas de Obra", Category: "Produção"},
	{Code: "work_stages.sync", Name: "Sincronizar Etapas de Obra", Category: "Produção"},

	{Code: "viewer_3d.view", Name: "Visualizador 3D", Category: "Ferramentas"},
	{Code: "geo_viewer.view", Name: "Visualizador Geográfico", Category: "Ferramentas"},

	{Code: "users.manage", Name: "Gestão de Usuários", Category: "Administração"},
	{Code: "custom_su.manage", Name: "Configurar Matriz SU", Category: "Administração"},
	{Code: "audit_logs.view", Name: "Logs de Auditoria", Category: "Administração"},
	{Code: "db_hub.manage", Name: "Database Hub", Category: "Administração"},
	{Code: "data_ingestion", Name: "Ingestão de Dados", Category: "Administração"},

	{Code: "settings.profile", Name: "Editar Perfil", Category: "Configurações"},
	{Code: "settings.mfa", Name: "Gerenciar MFA", Category: "Configurações"},

	{Code: "support.ticket", Name: "Chamados de Suporte", Category: "Suporte"},
}

var (
	allModuleCodesMap map[string]ModuleDefinition
	allModuleCodes    []string
)

func init() {
	allModuleCodesMap = make(map[string]ModuleDefinition)
	for _, mod := range DefinedModules {
		if _, exists := allModuleCodesMap[mod.Code]; exists {
			// indicates a duplicate module code definition, which should be avoided
		}
		allModuleCodesMap[mod.Code] = mod
		allModuleCodes = append(allModuleCodes, mod.Code)
	}
}

// GetAllModuleDefinitions returns a map of all defined modules, keyed by code
func GetAllModuleDefinitions() map[string]ModuleDefinition {
	return allModuleCodesMap
}

// GetAllModuleCodes returns a slice of all unique module codes
func GetAllModuleCodes() []string {
	// return a copy to prevent modification of the internal slice
	codes := make([]string, len(allModuleCodes))
	copy(codes, allModuleCodes)
	return codes
}

// IsValidModuleCode checks if a given module code is defined
func IsValidModuleCode(code string) bool {
	_, ok := allModuleCodesMap[code]
	return ok
}

// GetModuleDefinition retrieves a specific module definition by its code.
// Returns the definition and true if found, otherwise an empty definition and false.
func GetModuleDefinition(code string) (ModuleDefinition, bool) {
	def, ok := allModuleCodesMap[code]
	return def, ok
}
