package models

import "time"

// StoredFile is the metadata row of an uploaded document or image.
type StoredFile struct {
	ID           uint      `gorm:"primaryKey;column:id" json:"id"`
	Handle       string    `gorm:"column:handle;type:varchar(191);uniqueIndex;not null" json:"handle"`
	OriginalName string    `gorm:"column:original_name;type:varchar(255)" json:"original_name"`
	MimeType     string    `gorm:"column:mime_type;type:varchar(128)" json:"mime_type"`
	FileSize     int64     `gorm:"column:file_size" json:"file_size"`
	OwnerID      string    `gorm:"column:owner_id;type:varchar(64);index" json:"owner_id"`
	SpecID       *uint     `gorm:"column:spec_id;index" json:"spec_id,omitempty"`
	UploadedAt   time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// TableName overrides the table name.
func (StoredFile) TableName() string {
	return "stored_files"
}

var imageMimeTypes = []string{"image/jpeg", "image/jpg", "image/png"}

var documentMimeTypes = []string{"application/pdf"}

// IsValidImageType reports whether the file is an accepted image.
func (f *StoredFile) IsValidImageType() bool {
	return containsString(imageMimeTypes, f.MimeType)
}

// IsValidDocumentType reports whether the file is an accepted document.
func (f *StoredFile) IsValidDocumentType() bool {
	return containsString(documentMimeTypes, f.MimeType)
}

// GetFileSizeInMB returns the file size in megabytes.
func (f *StoredFile) GetFileSizeInMB() float64 {
	return float64(f.FileSize) / (1024 * 1024)
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
