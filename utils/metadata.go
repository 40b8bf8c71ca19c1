package utils

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/gestao-virtual/gvbackend/media"
)

// helper to safely get a string tag, trimming null terminators
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val := strings.TrimRight(strings.Trim(tag.String(), `"`), "\x00")
	if val == "" {
		return nil
	}
	return &val
}

// GetPhotoMetadata extracts dimensions and the EXIF fields kept for report
// photos. A photo without EXIF data is normal; only the dimensions are
// returned then.
func GetPhotoMetadata(filePath string) (*media.PhotoMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	meta := &media.PhotoMetadata{}

	config, _, err := image.DecodeConfig(file)
	if err == nil {
		w, h := config.Width, config.Height
		meta.Width = &w
		meta.Height = &h
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("metadata: failed to seek file %s: %w", filePath, err)
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// not fatal, the file might simply lack EXIF data
		return meta, nil
	}

	meta.CameraMake = getString(exifData, exif.Make)
	meta.CameraModel = getString(exifData, exif.Model)

	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	}

	return meta, nil
}
