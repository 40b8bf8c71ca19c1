package media

import (
	"fmt"
	"image"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	ThumbnailJpegQuality   = 85
	ThumbnailFileExtension = ".jpg"
)

var supportedPhotoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".heic": false,
	".bmp": true, ".tif": true, ".tiff": true,
}

// IsSupportedPhoto checks if the filename has an accepted raster extension
func IsSupportedPhoto(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedPhotoExtensions[ext]
}

// Processor handles photo transformations. It relies on a Store
// implementation for saving the results.
type Processor struct {
	store Store
}

func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// SavePhoto stores an uploaded report photo under a per-report directory
// with a generated filename, returning the relative path.
func (p *Processor) SavePhoto(reportID uint, originalFilename string, data io.Reader) (string, error) {
	if !IsSupportedPhoto(originalFilename) {
		return "", fmt.Errorf("unsupported photo format '%s'", filepath.Ext(originalFilename))
	}

	photoUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for photo: %w", err)
	}
	targetFilename := photoUUID.String() + strings.ToLower(filepath.Ext(originalFilename))

	relPath, err := p.store.Save(AssetTypePhoto, fmt.Sprintf("%d", reportID), targetFilename, data)
	if err != nil {
		return "", fmt.Errorf("failed to save photo via store: %w", err)
	}
	return relPath, nil
}

// GenerateThumbnail creates a thumbnail where the longest side matches maxPx
// and saves it through the Store. Returns the relative path of the saved
// thumbnail.
func (p *Processor) GenerateThumbnail(originalImg image.Image, maxPx int) (string, error) {
	origBounds := originalImg.Bounds()
	origWidth := origBounds.Dx()
	origHeight := origBounds.Dy()
	if origWidth <= 0 || origHeight <= 0 {
		return "", fmt.Errorf("invalid original image dimensions: %dx%d", origWidth, origHeight)
	}

	newWidth, newHeight := fitWithin(origWidth, origHeight, maxPx)
	thumb := imaging.Resize(originalImg, newWidth, newHeight, imaging.Lanczos)

	reader, writer := io.Pipe()
	go func() {
		err := imaging.Encode(writer, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJpegQuality))
		if err != nil {
			writer.CloseWithError(fmt.Errorf("thumbnail encoding failed: %w", err))
			return
		}
		writer.Close()
	}()

	thumbUUID, err := uuid.NewRandom()
	if err != nil {
		reader.Close()
		return "", fmt.Errorf("failed to generate UUID for thumbnail: %w", err)
	}
	targetFilename := thumbUUID.String() + ThumbnailFileExtension

	savedRelPath, err := p.store.Save(AssetTypeThumbnail, "", targetFilename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to save thumbnail via store: %w", err)
	}
	return savedRelPath, nil
}

// fitWithin scales (w, h) down so the longest side is at most maxPx,
// preserving aspect ratio. Images already small enough keep their size.
func fitWithin(w, h, maxPx int) (int, int) {
	if w <= maxPx && h <= maxPx {
		return w, h
	}
	if w > h {
		scaled := int(math.Round(float64(h) * (float64(maxPx) / float64(w))))
		return maxPx, maxInt(1, scaled)
	}
	scaled := int(math.Round(float64(w) * (float64(maxPx) / float64(h))))
	return maxInt(1, scaled), maxPx
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
