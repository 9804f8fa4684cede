// Package upload hands file parts to the object-storage collaborator and
// assembles the upload metadata that replaces raw file references in stored
// submissions.
package upload

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// Input is one file part to be stored.
type Input struct {
	// FieldName is the schema field the file was posted under
	FieldName string

	// Filename is the client-supplied file name
	Filename string

	// ContentType is the part's MIME type
	ContentType string

	// FieldType is the declared schema kind (image/video/audio/file)
	FieldType mockapi.FieldType

	// Data is the raw file content
	Data []byte
}

// Uploader is the object-storage collaborator contract. Implementations are
// opaque to the pipeline: they either return complete upload metadata or an
// error.
type Uploader interface {
	Upload(ctx context.Context, in Input) (*mockapi.UploadedFile, error)
}

// formatOf derives the format label from a filename extension.
func formatOf(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return strings.ToLower(ext)
}

// resourceTypeOf maps a schema field kind to the stored resource type.
func resourceTypeOf(t mockapi.FieldType) string {
	switch t {
	case mockapi.FieldImage:
		return "image"
	case mockapi.FieldVideo:
		return "video"
	case mockapi.FieldAudio:
		return "audio"
	default:
		return "raw"
	}
}
