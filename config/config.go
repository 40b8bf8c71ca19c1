package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultPhotosSubDir     = "report_photos"
	DefaultThumbnailsSubDir = "report_thumbnails"
	DefaultArchivesSubDir   = "report_archives"
)

const (
	defaultPhotoQueueSize  = 200
	defaultNumPhotoWorkers = 4
	defaultThumbnailMaxPx  = 480
	defaultBypassRank      = 1500
)

type Config struct {
	// http
	ListenAddr string

	// database path (shared by the ORM and the analytics handle)
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored assets
	PhotosPath       string // full-calculated path for original report photos
	ThumbnailsPath   string // full-calculated path for generated thumbnails
	ArchivesPath     string // full-calculated path for report photo archives

	// thumbnail generation settings
	ThumbnailMaxPx int

	// worker settings
	PhotoQueueSize  int
	NumPhotoWorkers int

	// auth settings
	JWTSecret string
	// permission levels with rank >= BypassRankThreshold skip the matrix
	BypassRankThreshold int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	listenAddr := getEnvOrDefault("LISTEN_ADDR", ":8080")

	dbPath := getEnvOrDefault("DATABASE_PATH", "gestao.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	photoSubDir := getEnvOrDefault("PHOTOS_SUBDIR", DefaultPhotosSubDir)
	absPhotosPath := filepath.Join(absMediaStorage, photoSubDir)

	thumbSubDir := getEnvOrDefault("THUMBNAILS_SUBDIR", DefaultThumbnailsSubDir)
	absThumbnailsPath := filepath.Join(absMediaStorage, thumbSubDir)

	archiveSubDir := getEnvOrDefault("ARCHIVES_SUBDIR", DefaultArchivesSubDir)
	absArchivesPath := filepath.Join(absMediaStorage, archiveSubDir)

	thumbMaxPx := getEnvIntOrDefault("THUMBNAIL_MAX_PX", defaultThumbnailMaxPx)

	queueSize := getEnvIntOrDefault("PHOTO_QUEUE_SIZE", defaultPhotoQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_PHOTO_WORKERS", defaultNumPhotoWorkers)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	bypassRank := getEnvIntOrDefault("BYPASS_RANK_THRESHOLD", defaultBypassRank)

	cfg := Config{
		ListenAddr:          listenAddr,
		DatabasePath:        dbPath,
		MediaStoragePath:    absMediaStorage,
		PhotosPath:          absPhotosPath,
		ThumbnailsPath:      absThumbnailsPath,
		ArchivesPath:        absArchivesPath,
		ThumbnailMaxPx:      thumbMaxPx,
		PhotoQueueSize:      queueSize,
		NumPhotoWorkers:     numWorkers,
		JWTSecret:           jwtSecret,
		BypassRankThreshold: bypassRank,
	}

	return cfg, nil
}
