package upload

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mockstack/mockstack/pkg/formdata"
	"github.com/mockstack/mockstack/pkg/logging"
	"github.com/mockstack/mockstack/pkg/mockapi"
	"github.com/mockstack/mockstack/pkg/validation"
)

// Pipeline uploads the file parts of a request and merges the resulting
// metadata into the submission payload.
type Pipeline struct {
	uploader Uploader
	log      *slog.Logger
}

// NewPipeline creates a Pipeline over the given uploader.
func NewPipeline(uploader Uploader) *Pipeline {
	return &Pipeline{uploader: uploader, log: logging.Nop()}
}

// SetLogger sets the operational logger.
func (p *Pipeline) SetLogger(log *slog.Logger) {
	if log != nil {
		p.log = log
	}
}

// Output is the result of processing a request's file parts.
type Output struct {
	// Files is the metadata for every uploaded file, in schema order
	Files []mockapi.UploadedFile

	// TotalSize is the bytes about to be persisted: the sum of uploaded
	// file sizes plus the JSON byte length of the non-file fields
	TotalSize int64
}

// Process validates and uploads the request's file parts against the
// endpoint's declared file-kind fields, merging upload metadata into the
// payload under each field name. Individual upload failures are recorded as
// validation errors for their field and do not abort the remaining files;
// the request fails as a whole if any error was recorded.
func (p *Pipeline) Process(ctx context.Context, fields []mockapi.FieldDef, files map[string]*formdata.FilePart, payload map[string]any) (*Output, *validation.Result) {
	result := &validation.Result{}

	// The non-file portion of the payload is sized before metadata is
	// merged in, so file metadata does not count twice.
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		// Payload came from our own decoder, so this is unexpected
		p.log.Warn("failed to size payload", "error", err)
		payloadJSON = nil
	}

	out := &Output{TotalSize: int64(len(payloadJSON))}

	for _, field := range fields {
		if !field.Type.IsFileKind() {
			continue
		}

		part, ok := files[field.Name]
		if !ok {
			if field.Required {
				result.AddError(validation.NewRequiredError(field.Name))
			}
			continue
		}

		meta, err := p.uploader.Upload(ctx, Input{
			FieldName:   field.Name,
			Filename:    part.Filename,
			ContentType: part.ContentType,
			FieldType:   field.Type,
			Data:        part.Data,
		})
		if err != nil {
			p.log.Warn("file upload failed", "field", field.Name, "file", part.Filename, "error", err)
			result.AddError(validation.NewUploadError(field.Name, err))
			continue
		}

		out.Files = append(out.Files, *meta)
		out.TotalSize += meta.FileSize
		payload[field.Name] = meta.ToMap()
	}

	if !result.Valid() {
		return nil, result
	}
	return out, result
}
