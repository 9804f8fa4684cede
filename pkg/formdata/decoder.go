// Package formdata decodes request bodies into a uniform (fields, files)
// result. JSON bodies are parsed directly; multipart/form-data bodies go
// through a hand-rolled parser that tracks boundary positions against CRLF
// line framing, so boundary-like byte runs inside binary file payloads do
// not split a part.
package formdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Decode errors. All of them surface to callers as validation failures.
var (
	ErrInvalidJSON         = errors.New("invalid JSON body")
	ErrUnsupportedType     = errors.New("unsupported content type")
	ErrNoBoundary          = errors.New("multipart content type without boundary")
	ErrMalformedMultipart  = errors.New("malformed multipart body")
	ErrMalformedPartHeader = errors.New("malformed multipart part header")
)

// FilePart is one file entry extracted from a multipart body.
type FilePart struct {
	// FieldName is the form field the file was posted under
	FieldName string

	// Filename is the client-supplied file name
	Filename string

	// ContentType is the part's own Content-Type header
	ContentType string

	// Data is the raw file content
	Data []byte
}

// Body is the uniform decoding result for both JSON and multipart requests.
type Body struct {
	// Fields maps field names to their decoded values. Multipart text
	// fields arrive as trimmed strings; JSON fields keep their JSON types.
	Fields map[string]any

	// Files maps field names to file parts (multipart only)
	Files map[string]*FilePart
}

// Decode parses a request body according to its Content-Type header.
// JSON and multipart/form-data are supported.
func Decode(contentType string, body []byte) (*Body, error) {
	mediaType := mediaTypeOf(contentType)

	switch {
	case strings.HasPrefix(mediaType, "multipart/form-data"):
		boundary, ok := boundaryOf(contentType)
		if !ok {
			return nil, ErrNoBoundary
		}
		return decodeMultipart(body, boundary)
	case mediaType == "" || mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSON(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
}

// decodeJSON parses the body as a JSON object.
func decodeJSON(body []byte) (*Body, error) {
	fields := make(map[string]any)
	if len(bytes.TrimSpace(body)) == 0 {
		return &Body{Fields: fields, Files: map[string]*FilePart{}}, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &Body{Fields: fields, Files: map[string]*FilePart{}}, nil
}

// mediaTypeOf returns the lowercased media type without parameters.
func mediaTypeOf(contentType string) string {
	mt := contentType
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = mt[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// boundaryOf extracts the boundary parameter from a multipart Content-Type.
func boundaryOf(contentType string) (string, bool) {
	for _, param := range strings.Split(contentType, ";")[1:] {
		param = strings.TrimSpace(param)
		key, value, found := strings.Cut(param, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "boundary") {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		if value != "" {
			return value, true
		}
	}
	return "", false
}

var crlf = []byte("\r\n")

// decodeMultipart splits the body into parts at boundary delimiters and
// classifies each part as a text field or a file.
func decodeMultipart(body []byte, boundary string) (*Body, error) {
	parts, err := splitParts(body, boundary)
	if err != nil {
		return nil, err
	}

	out := &Body{
		Fields: make(map[string]any),
		Files:  make(map[string]*FilePart),
	}

	for _, raw := range parts {
		headers, content, err := splitPart(raw)
		if err != nil {
			return nil, err
		}

		name, filename := dispositionOf(headers["content-disposition"])
		if name == "" {
			// Parts without a field name are ignored
			continue
		}

		if filename != "" {
			partType := headers["content-type"]
			if partType == "" {
				partType = "application/octet-stream"
			}
			out.Files[name] = &FilePart{
				FieldName:   name,
				Filename:    filename,
				ContentType: partType,
				Data:        content,
			}
			continue
		}

		out.Fields[name] = strings.TrimSpace(string(content))
	}

	return out, nil
}

// splitParts returns the raw content of each part between boundary
// delimiters. A delimiter only counts when it sits at the start of a line
// (offset 0 or right after CRLF); a matching byte run in the middle of a
// binary payload is passed over.
func splitParts(body []byte, boundary string) ([][]byte, error) {
	delim := []byte("--" + boundary)

	var parts [][]byte
	partStart := -1
	pos := 0

	for pos <= len(body)-len(delim) {
		idx := bytes.Index(body[pos:], delim)
		if idx < 0 {
			break
		}
		at := pos + idx

		if at != 0 && !(at >= 2 && bytes.Equal(body[at-2:at], crlf)) {
			pos = at + 1
			continue
		}

		if partStart >= 0 {
			part := body[partStart:at]
			part = bytes.TrimSuffix(part, crlf)
			parts = append(parts, part)
		}

		rest := body[at+len(delim):]
		if bytes.HasPrefix(rest, []byte("--")) {
			// Closing delimiter
			return parts, nil
		}
		if !bytes.HasPrefix(rest, crlf) {
			return nil, fmt.Errorf("%w: delimiter not followed by CRLF", ErrMalformedMultipart)
		}

		partStart = at + len(delim) + len(crlf)
		pos = partStart
	}

	if partStart >= 0 {
		return nil, fmt.Errorf("%w: missing closing delimiter", ErrMalformedMultipart)
	}
	return nil, fmt.Errorf("%w: no boundary delimiter found", ErrMalformedMultipart)
}

// splitPart divides a raw part into its header map and content at the first
// blank line. Header keys are lowercased.
func splitPart(raw []byte) (map[string]string, []byte, error) {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(raw, sep)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: missing blank line", ErrMalformedPartHeader)
	}

	headers := make(map[string]string)
	for _, line := range strings.Split(string(raw[:idx]), "\r\n") {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, nil, fmt.Errorf("%w: %q", ErrMalformedPartHeader, line)
		}
		headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return headers, raw[idx+len(sep):], nil
}

// dispositionOf extracts the field name and optional filename from a
// Content-Disposition header value.
func dispositionOf(header string) (name, filename string) {
	for _, param := range strings.Split(header, ";") {
		param = strings.TrimSpace(param)
		key, value, found := strings.Cut(param, "=")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			name = value
		case "filename":
			filename = value
		}
	}
	return name, filename
}
