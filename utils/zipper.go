package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// CreateReportPhotoZip creates a ZIP archive of every photo stored for one
// daily report.
// photosDir: the *full, absolute* directory holding the report's original photos.
// archiveSaveDir: the *full, absolute* path where the ZIP file should be saved.
// Returns: full path of the archive, size in bytes, error.
func CreateReportPhotoZip(photosDir, archiveSaveDir string) (string, int64, error) {
	photosDir = filepath.Clean(photosDir)

	if _, err := os.Stat(photosDir); os.IsNotExist(err) {
		return "", 0, fmt.Errorf("report photo folder not found: %s", photosDir)
	} else if err != nil {
		return "", 0, fmt.Errorf("error stating report photo folder %s: %w", photosDir, err)
	}

	if err := os.MkdirAll(archiveSaveDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create zip save directory %s: %w", archiveSaveDir, err)
	}

	timestamp := time.Now().Unix()
	archiveUUID, _ := uuid.NewRandom()
	zipFilename := fmt.Sprintf("rdo_%d_%s.zip", timestamp, archiveUUID.String()[:8])
	zipFilePath := filepath.Join(archiveSaveDir, zipFilename)

	zipFile, err := os.Create(zipFilePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create zip file %s: %w", zipFilePath, err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	entries, err := os.ReadDir(photosDir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read report photo directory %s: %w", photosDir, err)
	}

	foundFiles := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		photoPath := filepath.Join(photosDir, entry.Name())
		fileToZip, err := os.Open(photoPath)
		if err != nil {
			log.Printf("zipper: Failed to open file %s for zipping: %v. Skipping.", photoPath, err)
			continue
		}

		writer, err := zipWriter.Create(entry.Name())
		if err != nil {
			fileToZip.Close()
			log.Printf("zipper: Failed to create entry in zip for %s: %v. Skipping.", entry.Name(), err)
			continue
		}

		_, err = io.Copy(writer, fileToZip)
		fileToZip.Close()
		if err != nil {
			log.Printf("zipper: Failed to write file %s to zip: %v. Skipping.", entry.Name(), err)
			continue
		}
		foundFiles = true
	}

	if !foundFiles {
		zipWriter.Close()
		zipFile.Close()
		os.Remove(zipFilePath)
		return "", 0, fmt.Errorf("no photos found in %s to zip", photosDir)
	}

	if err := zipWriter.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to finalize zip writer for %s: %w", zipFilePath, err)
	}

	zipInfo, err := os.Stat(zipFilePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat created zip file %s: %w", zipFilePath, err)
	}

	return zipFilePath, zipInfo.Size(), nil
}
