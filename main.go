package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gestao-virtual/gvbackend/config"
	"github.com/gestao-virtual/gvbackend/database"
	"github.com/gestao-virtual/gvbackend/handlers"
	"github.com/gestao-virtual/gvbackend/media"
	"github.com/gestao-virtual/gvbackend/realtime"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/services"
	"github.com/gestao-virtual/gvbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	storagePaths := []string{cfg.PhotosPath, cfg.ThumbnailsPath, cfg.ArchivesPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to run database migrations: %v", err)
	}

	analyticsDB, err := database.InitAnalyticsDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize analytics database handle: %v", err)
	}
	defer analyticsDB.Close()

	userRepo := repository.NewGormUserRepository(gormDB)
	permRepo := repository.NewGormPermissionRepository(gormDB)
	companyRepo := repository.NewGormCompanyRepository(gormDB)
	projectRepo := repository.NewGormProjectRepository(gormDB)
	siteRepo := repository.NewGormSiteRepository(gormDB)
	jobFunctionRepo := repository.NewGormJobFunctionRepository(gormDB)
	inviteCodeRepo := repository.NewGormInviteCodeRepository(gormDB)
	productionRepo := repository.NewGormProductionRepository(gormDB)
	stageRepo := repository.NewGormWorkStageRepository(gormDB)
	reportRepo := repository.NewGormDailyReportRepository(gormDB)

	if err := handlers.SyncPermissionDefinitions(permRepo); err != nil {
		log.Fatalf("FATAL: Failed to sync permission definitions: %v", err)
	}

	resolver := services.NewPermissionResolver(userRepo, permRepo, services.BypassPolicy{RankThreshold: cfg.BypassRankThreshold}, logger)
	scopeLocks := services.NewScopeLock()
	synchronizer := services.NewStageSynchronizer(stageRepo, productionRepo, scopeLocks, logger)

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypePhoto:     filepath.Base(cfg.PhotosPath),
		media.AssetTypeThumbnail: filepath.Base(cfg.ThumbnailsPath),
		media.AssetTypeArchive:   filepath.Base(cfg.ArchivesPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore)

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Initializing report photo worker pool (Workers: %d, Queue Size: %d)...", cfg.NumPhotoWorkers, cfg.PhotoQueueSize)
	photoProcessor := workers.NewPhotoProcessor(cfg, reportRepo, mediaStore, mediaProcessor, hub, logger)
	photoProcessor.RequeueUnprocessed()
	defer photoProcessor.Stop()

	jwtKey := []byte(cfg.JWTSecret)

	setupHandler := handlers.NewSetupHandler(gormDB, userRepo, permRepo)
	authHandler := handlers.NewAuthHandler(userRepo, inviteCodeRepo, resolver, jwtKey)
	permissionHandler := handlers.NewPermissionHandler(resolver)
	adminPermissionHandler := handlers.NewAdminPermissionHandler(permRepo)
	adminUserHandler := handlers.NewAdminUserHandler(userRepo, permRepo)
	adminInviteCodeHandler := handlers.NewAdminInviteCodeHandler(inviteCodeRepo)
	companyHandler := handlers.NewCompanyHandler(companyRepo, projectRepo, siteRepo, jobFunctionRepo)
	productionHandler := handlers.NewProductionHandler(productionRepo)
	workStageHandler := handlers.NewWorkStageHandler(stageRepo, synchronizer, resolver, hub)
	dailyReportHandler := handlers.NewDailyReportHandler(reportRepo, siteRepo, mediaProcessor, photoProcessor, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsDB)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		// public
		r.Post("/setup/first-admin", setupHandler.CreateFirstAdmin)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)

		// authenticated
		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(jwtKey, userRepo))

			r.Get("/auth/me", authHandler.CurrentUser)
			r.Get("/ws", hub.ServeWS)

			r.Route("/permissions", func(r chi.Router) {
				r.Get("/modules", permissionHandler.ListModuleDefinitions)
				r.Get("/module-codes", permissionHandler.ListModuleCodes)
				r.Get("/me", permissionHandler.MyPermissions)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Use(handlers.RequireModule(resolver, "companies.view"))
				r.Get("/", companyHandler.ListCompanies)
				r.Get("/{companyID}", companyHandler.GetCompany)
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "companies.manage"))
					r.Post("/", companyHandler.CreateCompany)
					r.Put("/{companyID}", companyHandler.UpdateCompany)
					r.Delete("/{companyID}", companyHandler.DeleteCompany)
				})
			})

			r.Route("/projects", func(r chi.Router) {
				r.Use(handlers.RequireModule(resolver, "projects.view"))
				r.Get("/", companyHandler.ListProjects)
				r.Get("/{projectID}", companyHandler.GetProject)
				r.Get("/{projectID}/sites", companyHandler.ListProjectSites)
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "projects.manage"))
					r.Post("/", companyHandler.CreateProject)
					r.Put("/{projectID}", companyHandler.UpdateProject)
					r.Delete("/{projectID}", companyHandler.DeleteProject)
					r.Post("/{projectID}/sites", companyHandler.CreateSite)
					r.Delete("/sites/{siteID}", companyHandler.DeleteSite)
				})
			})

			r.Route("/job-functions", func(r chi.Router) {
				r.Get("/", companyHandler.ListJobFunctions)
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "functions.manage"))
					r.Post("/", companyHandler.CreateJobFunction)
					r.Delete("/{functionID}", companyHandler.DeleteJobFunction)
				})
			})

			r.Route("/production", func(r chi.Router) {
				r.Use(handlers.RequireModule(resolver, "production.planning"))
				r.Get("/categories", productionHandler.ListCategories)
				r.Post("/categories", productionHandler.CreateCategory)
				r.Get("/activities", productionHandler.ListActivities)
				r.Post("/activities", productionHandler.CreateActivity)
				r.Put("/activities/{activityID}", productionHandler.UpdateActivity)
				r.Delete("/activities/{activityID}", productionHandler.DeleteActivity)
			})

			r.Route("/work-stages", func(r chi.Router) {
				r.Get("/", workStageHandler.ListStages)
				r.Get("/{stageID}/progress", workStageHandler.ListProgress)
				r.Post("/{stageID}/progress", workStageHandler.RecordProgress)
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "work_stages.manage"))
					r.Post("/", workStageHandler.CreateStage)
					r.Put("/{stageID}", workStageHandler.UpdateStage)
					r.Put("/{stageID}/status", workStageHandler.SetStageStatus)
					r.Delete("/{stageID}", workStageHandler.DeleteStage)
				})
				// the sync handler checks work_stages.sync itself against the
				// project id in the request body, where delegations apply
				r.Post("/sync", workStageHandler.SyncStages)
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "work_stages.sync"))
					r.Post("/rollup", workStageHandler.RollupProgress)
				})
			})

			r.Route("/daily-reports", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "daily_report.list"))
					r.Get("/", dailyReportHandler.ListReports)
					r.Get("/{reportID}", dailyReportHandler.GetReport)
					r.Get("/{reportID}/archive", dailyReportHandler.DownloadPhotoArchive)
				})
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireModule(resolver, "daily_report.create"))
					r.Post("/", dailyReportHandler.CreateReport)
					r.Post("/{reportID}/photos", dailyReportHandler.UploadPhoto)
					r.Delete("/{reportID}", dailyReportHandler.DeleteReport)
				})
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Use(handlers.RequireModule(resolver, "work_progress.view"))
				r.Get("/progress-curve", analyticsHandler.ProgressCurve)
				r.Get("/stage-distribution", analyticsHandler.StageDistribution)
			})

			// admin
			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireAdmin(resolver))

				r.Route("/admin/levels", func(r chi.Router) {
					r.Get("/", adminPermissionHandler.ListLevels)
					r.Post("/", adminPermissionHandler.CreateLevel)
					r.Put("/{levelID}", adminPermissionHandler.UpdateLevel)
					r.Delete("/{levelID}", adminPermissionHandler.DeleteLevel)
					r.Get("/{levelID}/matrix", adminPermissionHandler.GetLevelMatrix)
					r.Put("/{levelID}/matrix", adminPermissionHandler.SetLevelMatrixEntry)
				})

				r.Get("/admin/projects/{projectID}/delegations", adminPermissionHandler.ListProjectDelegations)
				r.Route("/admin/delegations", func(r chi.Router) {
					r.Post("/", adminPermissionHandler.CreateDelegation)
					r.Delete("/{delegationID}", adminPermissionHandler.DeleteDelegation)
				})

				r.Route("/admin/users", func(r chi.Router) {
					r.Get("/", adminUserHandler.ListUsers)
					r.Get("/{userID}", adminUserHandler.GetUser)
					r.Put("/{userID}", adminUserHandler.UpdateUser)
					r.Delete("/{userID}", adminUserHandler.DeleteUser)
				})

				r.Route("/admin/invite-codes", func(r chi.Router) {
					r.Get("/", adminInviteCodeHandler.ListInviteCodes)
					r.Post("/", adminInviteCodeHandler.CreateInviteCode)
					r.Get("/{id}", adminInviteCodeHandler.GetInviteCode)
					r.Put("/{id}", adminInviteCodeHandler.UpdateInviteCode)
					r.Delete("/{id}", adminInviteCodeHandler.DeleteInviteCode)
				})
			})
		})

		photoSubDir := filepath.Base(cfg.PhotosPath)
		r.Get(fmt.Sprintf("/%s/*", photoSubDir), handlers.AssetServer(cfg.MediaStoragePath, photoSubDir))
		log.Printf("Registered photo server at /%s/*", photoSubDir)

		thumbnailSubDir := filepath.Base(cfg.ThumbnailsPath)
		r.Get(fmt.Sprintf("/%s/*", thumbnailSubDir), handlers.AssetServer(cfg.MediaStoragePath, thumbnailSubDir))
		log.Printf("Registered thumbnail server at /%s/*", thumbnailSubDir)

		archiveSubDir := filepath.Base(cfg.ArchivesPath)
		r.Get(fmt.Sprintf("/%s/*", archiveSubDir), handlers.AssetServer(cfg.MediaStoragePath, archiveSubDir))
		log.Printf("Registered archive server at /%s/*", archiveSubDir)
	})

	fmt.Printf("Server starting on %s\n", cfg.ListenAddr)
	log.Printf("Using database: %s", cfg.DatabasePath)
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
