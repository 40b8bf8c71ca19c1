package media

type AssetType string

const (
	AssetTypePhoto     AssetType = "photo"     // original report photos
	AssetTypeThumbnail AssetType = "thumbnail" // generated previews
	AssetTypeArchive   AssetType = "archive"   // zipped photo bundles
	AssetTypeUnknown   AssetType = "unknown"
)

// PhotoMetadata holds the EXIF fields extracted from an uploaded report
// photo. All fields are optional; field cameras frequently strip EXIF.
type PhotoMetadata struct {
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	CameraMake  *string `json:"camera_make,omitempty"`
	CameraModel *string `json:"camera_model,omitempty"`
	TakenAt     *int64  `json:"taken_at,omitempty"` // unix seconds
}
