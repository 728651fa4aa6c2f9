// Package domain contains core concepts of the uploader.
// This file defines the upload item and its status lifecycle.
// Items are owned by the upload worker once queued; the presentation
// layer only renders them.
package domain

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const KB = 1024
const MB = KB * KB

const (
	// MaxFileSize is the Discord webhook payload cap. Files above it are
	// rejected before any network attempt.
	MaxFileSize int64 = 8 * MB

	// MaxRetries bounds attempts per item, rate-limit waits included.
	MaxRetries = 5
)

// UploadItem represents a single queued file as the presentation layer sees it.
type UploadItem struct {
	ID       uuid.UUID
	Path     string
	Name     string
	Status   ItemStatus
	Progress int
}

// NewUploadItem builds a Pending item for an absolute file path.
func NewUploadItem(path string) UploadItem {
	return UploadItem{
		ID:     uuid.New(),
		Path:   path,
		Name:   filepath.Base(path),
		Status: StatusPending,
	}
}

type ItemStatus int

const (
	StatusPending ItemStatus = iota
	StatusUploading
	StatusSuccess
	StatusSkippedDuplicate
	StatusSkippedDeclined
	StatusSkippedTimeout
	StatusFailedNoID
	StatusFailedTooLarge
	StatusFailedNetwork
	StatusFailedError
)

func (s ItemStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUploading:
		return "Uploading..."
	case StatusSuccess:
		return "Success"
	case StatusSkippedDuplicate:
		return "Skipped (Duplicate)"
	case StatusSkippedDeclined:
		return "Skipped (User choice)"
	case StatusSkippedTimeout:
		return "Skipped (Timeout)"
	case StatusFailedNoID:
		return "Failed (No VRC ID)"
	case StatusFailedTooLarge:
		return "Failed (Too Large)"
	case StatusFailedNetwork:
		return "Failed (Network)"
	case StatusFailedError:
		return "Failed (Error)"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the item will not change state again.
func (s ItemStatus) Terminal() bool {
	return s != StatusPending && s != StatusUploading
}

// acceptedExtensions are the VRChat asset formats the queue accepts.
var acceptedExtensions = map[string]struct{}{
	".unity3d": {},
	".vrca":    {},
	".vrcw":    {},
	".prefab":  {},
}

// AcceptedFile reports whether the path carries a supported asset extension.
func AcceptedFile(path string) bool {
	_, ok := acceptedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
