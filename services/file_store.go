package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileMeta describes an upload.
type FileMeta struct {
	OriginalName string
	OwnerID      string
	SpecID       *uint
}

// FileStore keeps uploaded attachments and hands out opaque handles.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, meta FileMeta) (*models.StoredFile, error)
	Retrieve(ctx context.Context, handle string) (io.ReadCloser, *models.StoredFile, error)
}

var allowedUploadExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// handles look like 2025/01/<uuid>.pdf
var handlePattern = regexp.MustCompile(`^[0-9]{4}/[0-9]{2}/[0-9a-f-]{36}\.[a-z]{3,4}$`)

// LocalFileStore writes files under a root directory and their metadata to
// the stored_files table.
type LocalFileStore struct {
	root     string
	db       *gorm.DB
	maxBytes int64
	now      func() time.Time
}

func NewLocalFileStore(db *gorm.DB, root string, maxBytes int64) *LocalFileStore {
	if db == nil {
		db = config.DB
	}
	if strings.TrimSpace(root) == "" {
		root = config.App.UploadPath
	}
	if maxBytes <= 0 {
		maxBytes = config.App.MaxUploadBytes
	}
	return &LocalFileStore{root: root, db: db, maxBytes: maxBytes, now: time.Now}
}

// Store saves r and records it. The content type is sniffed from the data.
func (s *LocalFileStore) Store(ctx context.Context, r io.Reader, meta FileMeta) (*models.StoredFile, error) {
	name := utils.SanitizeFilename(meta.OriginalName)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedUploadExtensions[ext] {
		return nil, newValidationError("file", "file type %q is not allowed", ext)
	}
	if strings.TrimSpace(meta.OwnerID) == "" {
		return nil, ErrUnauthorized
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, persistenceError("read upload", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, newValidationError("file", "file is empty")
	}

	record := &models.StoredFile{
		OriginalName: name,
		MimeType:     strings.Split(http.DetectContentType(head), ";")[0],
		OwnerID:      meta.OwnerID,
		SpecID:       meta.SpecID,
		UploadedAt:   s.now(),
	}
	if !record.IsValidDocumentType() && !record.IsValidImageType() {
		return nil, newValidationError("file", "content type %s is not allowed", record.MimeType)
	}

	record.Handle = fmt.Sprintf("%s/%s%s", record.UploadedAt.Format("2006/01"), uuid.NewString(), ext)
	fullPath, err := s.resolve(record.Handle)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, persistenceError("create upload directory", err)
	}

	dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, persistenceError("create upload file", err)
	}
	written, copyErr := io.Copy(dst, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1))
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(fullPath)
		return nil, persistenceError("write upload file", errors.Join(copyErr, closeErr))
	}
	if written > s.maxBytes {
		os.Remove(fullPath)
		return nil, newValidationError("file", "file exceeds %.0f MB", float64(s.maxBytes)/(1024*1024))
	}
	record.FileSize = written

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		// remove the orphaned file when the row cannot be saved
		os.Remove(fullPath)
		return nil, persistenceError("save file info", err)
	}
	return record, nil
}

// Retrieve opens the file behind handle. The caller closes the reader.
func (s *LocalFileStore) Retrieve(ctx context.Context, handle string) (io.ReadCloser, *models.StoredFile, error) {
	fullPath, err := s.resolve(handle)
	if err != nil {
		return nil, nil, err
	}

	var record models.StoredFile
	if err := s.db.WithContext(ctx).Where("handle = ?", handle).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("file %s: %w", handle, ErrNotFound)
		}
		return nil, nil, persistenceError("load file info", err)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("file %s: %w", handle, ErrNotFound)
		}
		return nil, nil, persistenceError("open file", err)
	}
	return f, &record, nil
}

// AttachToSpec links uploaded files owned by ownerID to a record.
func (s *LocalFileStore) AttachToSpec(ctx context.Context, ownerID string, specID uint, handles []string) error {
	if len(handles) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.StoredFile{}).
		Where("handle IN ? AND owner_id = ?", handles, ownerID).
		Update("spec_id", specID).Error
	return persistenceError("attach files", err)
}

// resolve maps a handle to a path under root, rejecting anything that could
// escape it.
func (s *LocalFileStore) resolve(handle string) (string, error) {
	if !handlePattern.MatchString(handle) {
		return "", newValidationError("handle", "invalid file handle")
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", persistenceError("resolve upload root", err)
	}
	full := filepath.Join(root, filepath.FromSlash(handle))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newValidationError("handle", "invalid file handle")
	}
	return full, nil
}

// CanAccessFile reports whether identity may download file.
func CanAccessFile(identity *Identity, file *models.StoredFile) bool {
	if identity == nil || file == nil {
		return false
	}
	if identity.Role != RoleApplicant {
		return true
	}
	return file.OwnerID == identity.UserID
}
